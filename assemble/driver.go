package assemble

import (
	"context"
	"io"
	"math"
)

// NodeSource is the external collaborator the driver pulls path nodes
// from: a lazy, single-pass sequence strictly non-decreasing in
// firstStart. Next returns io.EOF once exhausted.
type NodeSource interface {
	Next(ctx context.Context) (*KmerPathNode, error)
}

const (
	negInfinity = Pos(math.MinInt64)
	posInfinity = Pos(math.MaxInt64)
)

// Driver is the assembler's streaming orchestrator: it admits input into
// the graph and evidence tracker, drives the memoized caller, and emits
// assembled Records.
type Driver struct {
	opts   Opts
	source NodeSource

	graph    *Graph
	evidence *EvidenceTracker
	anchored *Caller
	// unanchored is created lazily, only while investigating a possible
	// misassembly, and torn down once a normal advancement succeeds
	// without needing it.
	unanchored *Caller

	pending      *KmerPathNode
	inputDone    bool
	advanceFails int

	viz *Viz

	stats Stats
}

// NewDriver constructs a Driver reading from input.
func NewDriver(input NodeSource, opts Opts) *Driver {
	opts.validate()
	g := NewGraph()
	vizDir := ""
	if opts.Debug {
		vizDir = opts.VizDir
	}
	return &Driver{
		opts:     opts,
		source:   input,
		graph:    g,
		evidence: NewEvidenceTracker(),
		anchored: NewCaller(g, opts.K, anchoredScore),
		viz:      NewViz(vizDir),
	}
}

// Stats returns a snapshot of the driver's running counters.
func (d *Driver) Stats() Stats {
	d.stats.ActiveNodes = d.graph.Size()
	d.stats.MaxKmerBucketSize = d.graph.MaxKmerBucketSize()
	if f := d.frontier(); f != negInfinity {
		d.stats.FrontierPosition = f
	}
	return d.stats
}

// Close releases the driver's graph, caller memoization, and evidence
// tracker. Cancellation is otherwise cooperative: there are no background
// goroutines to stop.
func (d *Driver) Close() error {
	d.graph = nil
	d.evidence = nil
	d.anchored = nil
	d.unanchored = nil
	return nil
}

// fetchPending ensures d.pending holds the next not-yet-admitted input
// node, if any remain.
func (d *Driver) fetchPending(ctx context.Context) error {
	if d.pending != nil || d.inputDone {
		return nil
	}
	n, err := d.source.Next(ctx)
	if err == io.EOF {
		d.inputDone = true
		return nil
	}
	if err != nil {
		return err
	}
	d.pending = n
	return nil
}

// frontier is the smallest firstStart among input nodes not yet loaded, or
// posInfinity once input is exhausted.
func (d *Driver) frontier() Pos {
	if d.pending != nil {
		return d.pending.FirstStart()
	}
	if d.inputDone {
		return posInfinity
	}
	return negInfinity
}

// cutoffFor derives a BestContig cutoff from a frontier position: only a
// node whose LastEnd is strictly less than frontier-MaxEvidenceDistance can
// no longer gain further evidence, so it is safe to finalise. It must
// always be recomputed against the current frontier; reusing a value
// captured before an intervening advanceTo would let it go stale.
func (d *Driver) cutoffFor(frontier Pos) Pos {
	if frontier == posInfinity {
		return frontier
	}
	return frontier - d.opts.MaxEvidenceDistance
}

// admit inserts n into the graph, evidence tracker, and both live callers.
// Nodes that gained n as a new predecessor are invalidated in both
// callers: a path through n may now beat their cached best.
func (d *Driver) admit(n *KmerPathNode) {
	id := d.graph.Insert(n)
	for _, ev := range n.Evidence() {
		d.evidence.Register(ev)
	}
	gained := d.graph.resolveAdjacency(n, d.opts.K)
	d.anchored.Add(id)
	if d.unanchored != nil {
		d.unanchored.Add(id)
	}
	d.touchAll(gained)
	d.stats.ConsumedInput++
}

// touchAll invalidates ids (and their transitive dependents) in both live
// callers.
func (d *Driver) touchAll(ids []NodeID) {
	for _, id := range ids {
		d.anchored.Touch(id)
		if d.unanchored != nil {
			d.unanchored.Touch(id)
		}
	}
}

// advanceTo loads every pending input node with firstStart <= target.
func (d *Driver) advanceTo(ctx context.Context, target Pos) error {
	for {
		if err := d.fetchPending(ctx); err != nil {
			return err
		}
		if d.pending == nil {
			return nil
		}
		if d.pending.FirstStart() > target {
			return nil
		}
		n := d.pending
		d.pending = nil
		d.admit(n)
	}
}

// Next produces the next assembled record, or (zero, false, nil) once the
// stream is exhausted.
func (d *Driver) Next(ctx context.Context) (Record, bool, error) {
	for {
		// Peek ahead so frontier reflects the real next input position
		// rather than the never-fetched-yet sentinel.
		if err := d.fetchPending(ctx); err != nil {
			return Record{}, false, err
		}
		frontier := d.frontier()
		cutoff := d.cutoffFor(frontier)

		if d.opts.Debug {
			d.anchored.SanityCheckFrontier(cutoff, d.opts.Debug)
		}

		if contig, nodes, ok := d.anchored.BestContig(cutoff); ok {
			d.advanceFails = 0
			if d.unanchored != nil {
				d.unanchored = nil
			}
			rec, emitted, err := d.finalizeAndEmit(ctx, contig, nodes)
			if err != nil {
				return Record{}, false, err
			}
			if emitted {
				return rec, true, nil
			}
			// Repeat-fix emptied the contig, or it was dropped for having
			// no breakend sequence: loop for the next one.
			continue
		}

		if frontier == posInfinity {
			if d.graph.Size() == 0 {
				return Record{}, false, nil
			}
			logNoContigsInputExhausted(d.graph.Size())
			return Record{}, false, nil
		}

		target := frontier + d.opts.MaxEvidenceDistance + 1
		if err := d.advanceTo(ctx, target); err != nil {
			return Record{}, false, err
		}
		d.removeOrphans(d.frontier())
		d.advanceFails++

		if d.advanceFails >= longestPathRemovalAdvancementTriggerCount {
			d.checkMisassembly(ctx, d.cutoffFor(d.frontier()))
		}
	}
}

// finalizeAndEmit runs the repeat-kmer fix and anchor extension over
// contig, then removes its supporting weight from the graph and returns
// the emitted record. If the repeat fix empties the contig, it returns
// (zero, false, nil) so Next loops to the next candidate.
//
// Regardless of which branch is taken, the nodes backing the contig that
// was actually consumed here are unconditionally drained and removed from
// the graph and both callers before returning: a node retires when drained
// of weight or consumed by a called contig, and the evidence-driven
// removeContigWeight pass only implements the first half of that
// disjunction (it is a no-op when the contig carries no evidence, as nodes
// built by a debug/line-format source always do). Without the direct
// drain, a consumed node would resurface on the next BestContig call and
// the driver would re-emit it forever.
func (d *Driver) finalizeAndEmit(ctx context.Context, contig Contig, nodes []NodeID) (Record, bool, error) {
	fixed, ok := repeatFix(contig, d.evidence)
	if !ok {
		d.removeContigWeight(contig, d.evidence.Untrack(contig))
		d.consumeContig(contig)
		return Record{}, false, nil
	}
	if d.opts.Debug {
		for _, sub := range fixed.Subnodes {
			if !sub.Node.IsReference() && !d.evidence.MatchesExpected(sub) {
				sanityCheckFailed(d.opts.Debug, "called contig subnode [%d,%d] has no registered evidence", sub.FirstStart(), sub.LastEnd())
			}
		}
	}
	d.viz.DumpCalledContig(ctx, d.opts, fixed, fixed.Weight())
	d.viz.DumpSubgraph(ctx, d.opts, d.graph, fixed)

	if err := d.advanceTo(ctx, fixed.LastEnd()+Pos(targetAnchorLength(fixed.Length(), d.opts.MaxAnchorLength))+d.opts.MaxEvidenceDistance); err != nil {
		return Record{}, false, err
	}

	rec, ok := extendAndClassify(d.graph, fixed, d.evidence, d.opts)
	support := d.evidence.Untrack(fixed)
	// When the repeat fix trimmed the contig, the trimmed-off remainder and
	// the evidence partition that favored it are consumed along with the
	// call: the losing partition is discarded, never attributed to any
	// record, and the remainder must not resurface as its own contig.
	d.evidence.Untrack(contig)
	d.removeContigWeight(fixed, support)
	d.consumeContig(contig)
	if !ok {
		return Record{}, false, nil
	}
	for _, ev := range support {
		rec.EvidenceIDs = append(rec.EvidenceIDs, ev.ID)
	}
	d.stats.ContigsCalled++
	return rec, true, nil
}

// consumeContig forces the weight at every (node, offset) cell covered by
// contig's own subnodes to zero, independent of what removeContigWeight's
// evidence-driven pass already did, then runs the usual split/remove path
// over every node touched. This is what guarantees a called contig's nodes
// never resurface on a later BestContig call. Anchor nodes discovered by
// extendFlank are deliberately excluded: they are reference sequence that
// may anchor a later contig too, not part of what this call consumed.
func (d *Driver) consumeContig(contig Contig) {
	touched := make(map[NodeID]bool)
	for _, sub := range contig.Subnodes {
		n := sub.Node
		if n == nil || d.graph.Node(n.id) == nil {
			continue
		}
		for off := sub.Start; off < sub.End; off++ {
			if w := n.WeightAt(off); w > 0 {
				n.removeWeight(off, w)
			}
		}
		touched[n.id] = true
	}
	for id := range touched {
		d.anchored.Touch(id)
		if d.unanchored != nil {
			d.unanchored.Touch(id)
		}
		d.maybeSplitNode(id)
	}
}

// removeContigWeight subtracts one unit of weight at every (node, offset)
// cell covering evidence's support cells, splitting any node whose
// offset-weight falls to zero across a contiguous sub-range.
func (d *Driver) removeContigWeight(contig Contig, support []KmerEvidence) {
	touched := make(map[NodeID]bool)
	for _, ev := range support {
		for _, cell := range ev.Support {
			for _, ref := range d.graph.LookupByKmer(cell.Kmer) {
				n := d.graph.Node(ref.Node)
				if n == nil {
					continue
				}
				if n.firstStart+Pos(ref.Offset) != cell.Start {
					continue
				}
				n.removeWeight(ref.Offset, 1)
				touched[ref.Node] = true
			}
		}
	}
	for id := range touched {
		d.anchored.Touch(id)
		if d.unanchored != nil {
			d.unanchored.Touch(id)
		}
		d.maybeSplitNode(id)
	}
}

func (d *Driver) removeNodeFromCallersAndGraph(id NodeID) {
	d.anchored.Remove([]NodeID{id})
	if d.unanchored != nil {
		d.unanchored.Remove([]NodeID{id})
	}
	d.graph.Remove(id)
}

// maybeSplitNode inspects id's weights after a removeContigWeight or
// consumeContig pass and splits it into surviving fragments around any
// zero-weight sub-ranges, re-registering adjacency for the fragments.
// Removal of the whole node falls out naturally when zeroRuns reports a
// single run spanning it entirely; nothing here conditions removal on how
// that zero run came to be, so a node consumeContig forced to zero is
// removed exactly like one evidence alone drained.
func (d *Driver) maybeSplitNode(id NodeID) {
	n := d.graph.Node(id)
	if n == nil {
		return
	}
	runs := n.zeroRuns()
	if len(runs) == 0 {
		return
	}
	if len(runs) == 1 && runs[0][0] == 0 && runs[0][1] == n.Length() {
		d.removeNodeFromCallersAndGraph(id)
		return
	}

	var fragments [][2]int
	cursor := 0
	for _, r := range runs {
		if r[0] > cursor {
			fragments = append(fragments, [2]int{cursor, r[0]})
		}
		cursor = r[1]
	}
	if cursor < n.Length() {
		fragments = append(fragments, [2]int{cursor, n.Length()})
	}

	d.removeNodeFromCallersAndGraph(id)
	for _, f := range fragments {
		child := n.subsetCopy(f[0], f[1])
		cid := d.graph.reinsert(child)
		gained := d.graph.resolveAdjacency(child, d.opts.K)
		d.anchored.Add(cid)
		if d.unanchored != nil {
			d.unanchored.Add(cid)
		}
		d.touchAll(gained)
	}
}

// removeOrphans evicts reference-only islands that can never produce
// output: once the leftmost live node lags frontier by more than
// orphanEvidenceMultiple*MaxEvidenceDistance, the position-ordered graph
// is scanned left to right, grouping nodes into position-contiguous
// clusters (adjoining or overlapping position intervals); a cluster made
// entirely of reference nodes, too far behind the frontier for any
// pending input to reach, is untracked and removed atomically.
func (d *Driver) removeOrphans(frontier Pos) {
	if frontier == negInfinity {
		return
	}
	firstID, ok := d.graph.First()
	if !ok {
		return
	}
	first := d.graph.Node(firstID)
	if frontier-first.FirstStart() <= Pos(orphanEvidenceMultiple)*d.opts.MaxEvidenceDistance {
		return
	}

	it := d.graph.RangeByFirstStart(negInfinity, posInfinity)
	var cluster []NodeID
	allReference := true
	clusterEnd := Pos(0)

	flush := func() {
		if len(cluster) == 0 {
			return
		}
		if allReference && clusterEnd < frontier-d.opts.MaxEvidenceDistance {
			d.evictCluster(cluster)
		}
		cluster = cluster[:0]
		allReference = true
	}

	for {
		n := it.Next()
		if n == nil {
			break
		}
		if len(cluster) > 0 && n.FirstStart() > clusterEnd+1 {
			flush()
		}
		if len(cluster) == 0 {
			clusterEnd = n.LastEnd()
		}
		cluster = append(cluster, n.ID())
		if !n.IsReference() {
			allReference = false
		}
		if n.LastEnd() > clusterEnd {
			clusterEnd = n.LastEnd()
		}
	}
	flush()
}

func (d *Driver) evictCluster(ids []NodeID) {
	for _, id := range ids {
		n := d.graph.Node(id)
		if n == nil {
			continue
		}
		sub := KmerPathSubnode{Node: n, Start: 0, End: n.Length()}
		d.evidence.Untrack(Contig{Subnodes: []KmerPathSubnode{sub}})
	}
	d.anchored.Remove(ids)
	if d.unanchored != nil {
		d.unanchored.Remove(ids)
	}
	for _, id := range ids {
		if d.graph.Node(id) != nil {
			d.graph.Remove(id)
		}
	}
	d.stats.OrphanClustersRemoved++
}

// checkMisassembly guards against pathological tangles that produce
// arbitrarily long best contigs: the unanchored caller's best finalised
// path is repeatedly discarded wholesale while it remains oversized. Both
// callers are rebuilt from scratch after each discard, since a change that
// large cannot be memoized incrementally.
func (d *Driver) checkMisassembly(ctx context.Context, cutoff Pos) {
	if d.unanchored == nil {
		d.unanchored = NewCaller(d.graph, d.opts.K, 1)
		d.rebuildCaller(d.unanchored)
	}
	threshold := int(d.opts.MaxExpectedBreakendLengthMultiple * float64(d.opts.MaxConcordantFragmentSize))
	for {
		contig, nodes, ok := d.unanchored.BestContig(cutoff)
		if !ok || contig.Length() <= threshold {
			return
		}
		support := d.evidence.Untrack(contig)
		d.removeContigWeight(contig, support)
		for _, id := range nodes {
			if d.graph.Node(id) != nil {
				d.graph.Remove(id)
			}
		}
		d.stats.MisassembliesSuppressed++
		d.viz.DumpGraphSnapshot(ctx, d.opts, d.graph, "misassembly")
		d.anchored.Reset()
		d.unanchored.Reset()
		d.rebuildCaller(d.anchored)
		d.rebuildCaller(d.unanchored)
	}
}

// rebuildCaller re-adds every currently live node into c, in position
// order, after a Reset.
func (d *Driver) rebuildCaller(c *Caller) {
	it := d.graph.RangeByFirstStart(negInfinity, posInfinity)
	for {
		n := it.Next()
		if n == nil {
			break
		}
		c.Add(n.ID())
	}
}
