package assemble

// flatOffset locates one k-mer position within a contig by (subnode index,
// offset within that subnode's node).
type flatOffset struct {
	subIdx, offset int
}

func flattenContig(c Contig) []flatOffset {
	var out []flatOffset
	for si, s := range c.Subnodes {
		for off := s.Start; off < s.End; off++ {
			out = append(out, flatOffset{si, off})
		}
	}
	return out
}

func positionAt(c Contig, flat []flatOffset, idx int) Pos {
	fo := flat[idx]
	n := c.Subnodes[fo.subIdx].Node
	return n.firstStart + Pos(fo.offset)
}

// findRepeat scans contig's flattened k-mer sequence for the first k-mer
// that occurs twice. Only primary kmers are compared; a repeat involving a
// node's collapsedKmers is not detected, and the fix below does not
// correct it.
func findRepeat(c Contig) (flat []flatOffset, i1, i2 int, found bool) {
	flat = flattenContig(c)
	seen := make(map[Kmer]int, len(flat))
	for idx, fo := range flat {
		km := c.Subnodes[fo.subIdx].Node.kmers[fo.offset]
		if prev, ok := seen[km]; ok {
			return flat, prev, idx, true
		}
		seen[km] = idx
	}
	return flat, 0, 0, false
}

func trimContigAt(c Contig, flat []flatOffset, idx int) Contig {
	fo := flat[idx]
	out := make([]KmerPathSubnode, fo.subIdx+1)
	copy(out, c.Subnodes[:fo.subIdx+1])
	out[fo.subIdx].End = fo.offset + 1
	return Contig{Subnodes: out}
}

// repeatFix corrects a contig that revisits a k-mer: the evidence
// supporting it is partitioned by which occurrence
// each item's cells best match (nearest by position), and the contig is
// reconstructed from the dominant (more-supported) partition, trimmed at
// that occurrence. Ties are broken toward the later occurrence, which by
// construction keeps the longer of the two candidate contigs. Returns
// ok=false if the correction would empty the contig.
func repeatFix(contig Contig, evTracker *EvidenceTracker) (Contig, bool) {
	flat, i1, i2, found := findRepeat(contig)
	if !found {
		if contig.Length() == 0 {
			return Contig{}, false
		}
		return contig, true
	}

	pos1 := positionAt(contig, flat, i1)
	pos2 := positionAt(contig, flat, i2)

	support := evTracker.Support(contig)
	countA, countB := 0, 0
	for _, ev := range support {
		da, db := evidenceDistance(ev, pos1), evidenceDistance(ev, pos2)
		if da <= db {
			countA++
		} else {
			countB++
		}
	}

	cut := i1
	if countB >= countA {
		cut = i2
	}
	fixed := trimContigAt(contig, flat, cut)
	if fixed.Length() == 0 {
		return Contig{}, false
	}
	return fixed, true
}

// evidenceDistance returns the minimum distance from any of ev's support
// cells to pos, used to decide which repeated-k-mer occurrence an
// evidence item best matches.
func evidenceDistance(ev KmerEvidence, pos Pos) Pos {
	best := Pos(-1)
	for _, cell := range ev.Support {
		d := cell.Start - pos
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
	}
	if best < 0 {
		return posInfinity
	}
	return best
}
