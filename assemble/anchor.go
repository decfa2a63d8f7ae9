package assemble

// targetAnchorLength is max(contigLength, maxAnchorLength), the extension
// budget for each flank.
func targetAnchorLength(contigLength, maxAnchorLength int) int {
	if contigLength > maxAnchorLength {
		return contigLength
	}
	return maxAnchorLength
}

// bestNext picks the neighbor from candidates with the highest total
// weight, ties broken by earlier first-start. The candidates are already
// filtered to one-base-extension neighbors, so their weight is
// concentrated in the overlap region shared with the node being extended.
func bestNext(g *Graph, candidates []NodeID) *KmerPathNode {
	var best *KmerPathNode
	for _, id := range candidates {
		n := g.Node(id)
		if n == nil {
			continue
		}
		if best == nil {
			best = n
			continue
		}
		if n.TotalWeight() > best.TotalWeight() {
			best = n
		} else if n.TotalWeight() == best.TotalWeight() && n.FirstStart() < best.FirstStart() {
			best = n
		}
	}
	return best
}

// extendFlank greedily walks forward (or, if !forward, backward) from
// start up to targetLen bases of path-node adjacency, stopping as soon as
// it reaches a reference node (the anchor) or runs out of budget or
// graph. It returns the extension subnodes (in the direction walked, not
// yet reversed for a backward walk) and the anchor found, if any.
func extendFlank(g *Graph, start *KmerPathNode, forward bool, targetLen int) (ext []KmerPathSubnode, anchor Anchor) {
	current := start
	remaining := targetLen
	consumed := 0
	for remaining > 0 {
		var candidates []NodeID
		if forward {
			candidates = current.Next()
		} else {
			candidates = current.Prev()
		}
		next := bestNext(g, candidates)
		if next == nil {
			return ext, anchor
		}
		ext = append(ext, KmerPathSubnode{Node: next, Start: 0, End: next.Length()})
		consumed += next.Length()
		remaining -= next.Length()
		current = next
		if next.IsReference() {
			anchor.Present = true
			anchor.AnchorBases = consumed
			if forward {
				anchor.Position = next.FirstStart()
			} else {
				anchor.Position = next.LastEnd()
			}
			return ext, anchor
		}
	}
	return ext, anchor
}

// coreOf strips any leading/trailing subnodes that already sit on a
// reference node: the caller's score rewards paths that terminate on
// reference, so a called contig commonly carries its anchor as its own
// first or last subnode rather than needing extendFlank to discover one.
// Those subnodes aren't breakend evidence; extendFlank re-derives them
// (and whatever reference lies beyond them) by walking out from the core's
// edge, since they're still live in the graph. If the whole contig is
// reference (shouldn't happen for a path the caller would ever prefer, but
// the caller makes no such guarantee), the contig is returned unchanged.
func coreOf(contig Contig) Contig {
	lo, hi := 0, len(contig.Subnodes)
	for lo < hi && contig.Subnodes[lo].Node.isReference {
		lo++
	}
	for hi > lo && contig.Subnodes[hi-1].Node.isReference {
		hi--
	}
	if lo >= hi {
		return contig
	}
	return Contig{Subnodes: contig.Subnodes[lo:hi]}
}

// extendAndClassify extends a called contig with reference-supported
// flanks on both ends, then classifies and validates the output shape. It
// returns ok=false when the contig should be dropped (both anchors'
// lengths together cover the whole base length, leaving no breakend
// sequence).
//
// A flank is only extended when the core's boundary subnode ends on a node
// boundary: a subnode trimmed mid-node by the repeat-kmer fix has no
// path-node adjacency at the trim point (the only graph continuation is
// the very run of k-mers the fix just cut away), so that end stays
// unextended and unanchored.
func extendAndClassify(g *Graph, contig Contig, evTracker *EvidenceTracker, opts Opts) (Record, bool) {
	core := coreOf(contig)
	target := targetAnchorLength(core.Length(), opts.MaxAnchorLength)

	var forwardExt []KmerPathSubnode
	var anchorEnd Anchor
	lastSub := core.Subnodes[len(core.Subnodes)-1]
	if lastSub.End == lastSub.Node.Length() {
		forwardExt, anchorEnd = extendFlank(g, lastSub.Node, true, target)
	}

	var backwardExt []KmerPathSubnode
	var anchorStart Anchor
	firstSub := core.Subnodes[0]
	if firstSub.Start == 0 {
		backwardExt, anchorStart = extendFlank(g, firstSub.Node, false, target)
	}

	full := make([]KmerPathSubnode, 0, len(backwardExt)+len(core.Subnodes)+len(forwardExt))
	for i := len(backwardExt) - 1; i >= 0; i-- {
		full = append(full, backwardExt[i])
	}
	full = append(full, core.Subnodes...)
	full = append(full, forwardExt...)
	extended := Contig{Subnodes: full}

	var kind RecordKind
	switch {
	case anchorStart.Present && anchorEnd.Present:
		kind = Breakpoint
	case anchorStart.Present || anchorEnd.Present:
		kind = SingleAnchored
	default:
		kind = Unanchored
	}

	if kind == Breakpoint && anchorStart.AnchorBases+anchorEnd.AnchorBases >= extended.Length() {
		return Record{}, false
	}

	if anchorStart.Present {
		anchorStart.ReferenceIndex = opts.ReferenceIndex
	}
	if anchorEnd.Present {
		anchorEnd.ReferenceIndex = opts.ReferenceIndex
	}

	rec := Record{
		ReferenceIndex: opts.ReferenceIndex,
		FirstStart:     extended.FirstStart(),
		Sequence:       extended.Sequence(opts.K),
		Quality:        qualitiesFromWeights(extended.Weights(opts.K)),
		Anchors:        [2]Anchor{anchorStart, anchorEnd},
		Kind:           kind,
	}
	if kind != Breakpoint {
		support := evTracker.Support(contig)
		rec.Breakend = evidenceBreakendUnion(support)
	}
	return rec, true
}
