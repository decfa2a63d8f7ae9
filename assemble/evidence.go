package assemble

// cellKey identifies a (kmer, position) cell, the unit that
// KmerSupportNode and KmerPathNode offsets are both expressed in terms of.
// Only a support cell's Start is part of the key; its End is ignored.
type cellKey struct {
	kmer  Kmer
	start Pos
}

// EvidenceTracker maintains the bidirectional association between
// KmerEvidence items and the cells each contributes: a forward index from
// evidence ID to cells and a reverse index from cell to the evidence IDs
// supporting it, built up by Register calls and drained by Untrack.
type EvidenceTracker struct {
	byID   map[EvidenceID]KmerEvidence
	byCell map[cellKey][]EvidenceID
}

// NewEvidenceTracker constructs an empty tracker.
func NewEvidenceTracker() *EvidenceTracker {
	return &EvidenceTracker{
		byID:   make(map[EvidenceID]KmerEvidence),
		byCell: make(map[cellKey][]EvidenceID),
	}
}

// Register admits ev, indexing its cells for future Support/untrack
// lookups.
func (t *EvidenceTracker) Register(ev KmerEvidence) {
	if _, exists := t.byID[ev.ID]; exists {
		panicPrecondition("evidence %d registered twice", ev.ID)
	}
	t.byID[ev.ID] = ev
	for _, cell := range ev.Support {
		key := cellKey{kmer: cell.Kmer, start: cell.Start}
		t.byCell[key] = append(t.byCell[key], ev.ID)
	}
}

// Unregister drops ev from the tracker.
func (t *EvidenceTracker) Unregister(id EvidenceID) {
	ev, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	for _, cell := range ev.Support {
		key := cellKey{kmer: cell.Kmer, start: cell.Start}
		refs := t.byCell[key]
		for i, other := range refs {
			if other == id {
				refs = append(refs[:i], refs[i+1:]...)
				break
			}
		}
		if len(refs) == 0 {
			delete(t.byCell, key)
		} else {
			t.byCell[key] = refs
		}
	}
}

// Support returns the evidence whose cells intersect any subnode of
// contig.
func (t *EvidenceTracker) Support(contig Contig) []KmerEvidence {
	seen := make(map[EvidenceID]bool)
	var out []KmerEvidence
	for _, sub := range contig.Subnodes {
		for i := sub.Start; i < sub.End; i++ {
			key := cellKey{kmer: sub.Node.kmers[i], start: sub.Node.firstStart + Pos(i)}
			for _, id := range t.byCell[key] {
				if seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, t.byID[id])
			}
		}
	}
	return out
}

// Untrack is Support followed by Unregister of each returned item,
// returning the set untracked.
func (t *EvidenceTracker) Untrack(contig Contig) []KmerEvidence {
	support := t.Support(contig)
	for _, ev := range support {
		t.Unregister(ev.ID)
	}
	return support
}

// MatchesExpected is a debug-mode sanity check: it confirms that every
// cell of sub is covered by at least one currently-registered evidence
// item.
func (t *EvidenceTracker) MatchesExpected(sub KmerPathSubnode) bool {
	for i := sub.Start; i < sub.End; i++ {
		key := cellKey{kmer: sub.Node.kmers[i], start: sub.Node.firstStart + Pos(i)}
		if len(t.byCell[key]) == 0 {
			return false
		}
	}
	return true
}

// Len returns the number of currently registered evidence items.
func (t *EvidenceTracker) Len() int { return len(t.byID) }
