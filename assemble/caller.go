package assemble

// callerEntry is the memoized best-scoring path ending at one node. Entries
// are kept per node, holding the best known incoming score and the chosen
// predecessor.
type callerEntry struct {
	valid bool

	// cumulative is the path's total weight; reference-node offsets
	// contribute zero.
	cumulative int64
	// startIsReference records whether the path's very first (source) node
	// is reference-marked; it propagates unchanged as the path is extended,
	// independent of what any interior node is.
	startIsReference bool
	// anchored is true iff the path terminates on a reference node at
	// either end: startIsReference, or the current (last) node is itself
	// reference. A reference node that merely appears in the interior of
	// the path must not grant the bonus.
	anchored bool
	score    int64

	pathLen    int
	firstStart Pos
	firstKmer  Kmer

	hasPrev bool
	prev    NodeID

	// nodeVersion is the KmerPathNode.version observed when this entry was
	// computed; a mismatch against the live node's current version means
	// the entry is stale even though nothing explicitly invalidated it
	// (e.g. removeWeight changed this node's own contribution).
	nodeVersion uint64
}

// Caller maintains the score-maximal prefix paths over a shared Graph,
// memoized so insertions and removals trigger only local reevaluation. Two
// instances share one graph, parameterized only by bonus: the anchored
// caller uses anchoredScore, the unanchored caller uses 1.
type Caller struct {
	g     *Graph
	k     int
	bonus int64

	entries map[NodeID]*callerEntry
	// dependents[p] is the set of node IDs whose current best path chooses
	// p as its immediate predecessor. Invalidating or removing p must
	// cascade to every entry in dependents[p], transitively.
	dependents map[NodeID]map[NodeID]bool
}

// NewCaller constructs a caller sharing g, scoring anchored-at-either-end
// paths with the given bonus.
func NewCaller(g *Graph, k int, bonus int64) *Caller {
	return &Caller{
		g:          g,
		k:          k,
		bonus:      bonus,
		entries:    make(map[NodeID]*callerEntry),
		dependents: make(map[NodeID]map[NodeID]bool),
	}
}

func nodeScoreContribution(n *KmerPathNode) int64 {
	if n.isReference {
		return 0
	}
	return int64(n.TotalWeight())
}

// Add registers n (already live in the graph) as a source, or as an
// extension of the best memoized path ending at whichever of n's
// predecessors currently has the best score.
func (c *Caller) Add(id NodeID) {
	c.compute(id, make(map[NodeID]bool))
}

// compute derives id's entry from its predecessors, recursively ensuring
// each predecessor is itself fresh first. inProgress breaks cycles that
// repeat-induced adjacency loops can form: a predecessor already being
// resolved on this call stack is treated as unusable rather than recursed
// into again.
func (c *Caller) compute(id NodeID, inProgress map[NodeID]bool) *callerEntry {
	n := c.g.Node(id)
	if n == nil {
		delete(c.entries, id)
		return nil
	}
	if e, ok := c.entries[id]; ok && e.valid && e.nodeVersion == n.Version() {
		return e
	}

	inProgress[id] = true
	defer delete(inProgress, id)

	var best *callerEntry
	var bestPrev NodeID
	for _, predID := range n.Prev() {
		if inProgress[predID] {
			continue
		}
		pe := c.compute(predID, inProgress)
		if pe == nil || !pe.valid {
			continue
		}
		if best == nil || c.betterEntry(pe, best) {
			best = pe
			bestPrev = predID
		}
	}

	e := &callerEntry{valid: true, nodeVersion: n.Version()}
	contribution := nodeScoreContribution(n)
	if best == nil {
		e.cumulative = contribution
		e.startIsReference = n.isReference
		e.anchored = n.isReference
		e.pathLen = 1
		e.firstStart = n.firstStart
		e.firstKmer = n.FirstKmer()
	} else {
		e.cumulative = best.cumulative + contribution
		e.startIsReference = best.startIsReference
		e.anchored = best.startIsReference || n.isReference
		e.pathLen = best.pathLen + 1
		e.firstStart = best.firstStart
		e.firstKmer = best.firstKmer
		e.hasPrev = true
		e.prev = bestPrev
	}
	e.score = e.cumulative
	if e.anchored {
		e.score += c.bonus
	}

	c.setEntry(id, e)
	return e
}

// betterEntry applies the canonical ranking: higher score; then earlier
// firstStart; then shorter path; then lexicographically smaller first
// k-mer.
func (c *Caller) betterEntry(a, b *callerEntry) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.firstStart != b.firstStart {
		return a.firstStart < b.firstStart
	}
	if a.pathLen != b.pathLen {
		return a.pathLen < b.pathLen
	}
	return a.firstKmer < b.firstKmer
}

func (c *Caller) setEntry(id NodeID, e *callerEntry) {
	if old, ok := c.entries[id]; ok && old.hasPrev {
		if deps := c.dependents[old.prev]; deps != nil {
			delete(deps, id)
		}
	}
	c.entries[id] = e
	if e.hasPrev {
		if c.dependents[e.prev] == nil {
			c.dependents[e.prev] = make(map[NodeID]bool)
		}
		c.dependents[e.prev][id] = true
	}
}

// Remove evicts every node in ids from the caller's memo. Entries whose
// path transitively depended on a removed node are invalidated, not
// deleted: they stay in the memo and are rebuilt lazily from surviving
// predecessors on the next BestContig.
func (c *Caller) Remove(ids []NodeID) {
	for _, id := range ids {
		c.Touch(id)
	}
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			if e.hasPrev {
				if deps := c.dependents[e.prev]; deps != nil {
					delete(deps, id)
				}
			}
			delete(c.entries, id)
		}
		delete(c.dependents, id)
	}
}

// Touch invalidates id's entry (e.g. after removeWeight changed its
// contribution) and cascades to its transitive dependents, without
// deleting id itself from the memo or the graph.
func (c *Caller) Touch(id NodeID) {
	if e, ok := c.entries[id]; ok {
		e.valid = false
	}
	for d := range c.dependents[id] {
		c.Touch(d)
	}
}

// BestContig returns the highest-scoring finalised path: one whose final
// node's LastEnd is strictly less than cutoff, so that no pending input
// could still extend, merge into, or outscore it. Paths with zero
// cumulative weight (pure reference runs) are never candidates: the
// assembler only ever calls contigs carrying non-reference support, and a
// bare reference island must instead age out through orphan removal.
// Returns ok=false if no finalised path exists.
func (c *Caller) BestContig(cutoff Pos) (contig Contig, nodes []NodeID, ok bool) {
	var bestID NodeID
	var best *callerEntry
	for id := range c.entries {
		e := c.compute(id, make(map[NodeID]bool))
		if e == nil || !e.valid || e.cumulative <= 0 {
			continue
		}
		n := c.g.Node(id)
		if n == nil || n.LastEnd() >= cutoff {
			continue
		}
		switch {
		case best == nil || c.betterEntry(e, best):
			best = e
			bestID = id
		case !c.betterEntry(best, e) && id < bestID:
			// Exact tie on every ranking key: prefer the smaller node ID so
			// the winner does not depend on map iteration order.
			best = e
			bestID = id
		}
	}
	if best == nil {
		return Contig{}, nil, false
	}

	// Walk the prev chain backward, then reverse.
	var chain []NodeID
	cur := bestID
	for {
		chain = append(chain, cur)
		e := c.entries[cur]
		if !e.hasPrev {
			break
		}
		cur = e.prev
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	subnodes := make([]KmerPathSubnode, 0, len(chain))
	for _, id := range chain {
		n := c.g.Node(id)
		subnodes = append(subnodes, KmerPathSubnode{Node: n, Start: 0, End: n.Length()})
	}
	return Contig{Subnodes: subnodes}, chain, true
}

// Reset discards all memo state, used when the driver decides a change is
// too large to memoize incrementally (misassembly removal discards and
// reinitialises both callers).
func (c *Caller) Reset() {
	c.entries = make(map[NodeID]*callerEntry)
	c.dependents = make(map[NodeID]map[NodeID]bool)
}

// SanityCheckFrontier recomputes the best finalised path from scratch, over
// a throwaway caller rebuilt from every currently live graph node, and
// asserts that it agrees with this caller's memoized answer at the same
// cutoff. A mismatch means the memo has drifted from the graph it is
// supposed to describe. This rebuilds an entire caller, so it is only meant
// to run under a debug flag, never on every advancement in production.
func (c *Caller) SanityCheckFrontier(cutoff Pos, debug bool) {
	_, memoNodes, memoOK := c.BestContig(cutoff)

	fresh := NewCaller(c.g, c.k, c.bonus)
	it := c.g.RangeByFirstStart(negInfinity, posInfinity)
	for {
		n := it.Next()
		if n == nil {
			break
		}
		fresh.Add(n.ID())
	}
	_, freshNodes, freshOK := fresh.BestContig(cutoff)

	if memoOK != freshOK || !sameNodeChain(memoNodes, freshNodes) {
		sanityCheckFailed(debug, "caller memo disagrees with fresh recomputation at cutoff=%d", cutoff)
	}
}

func sameNodeChain(a, b []NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
