package assemble

import (
	"context"
	"io"
	"testing"

	"github.com/grailbio/testutil/expect"
)

// sliceNodeSource is a fixed, in-memory NodeSource: it yields its nodes in
// order, then io.EOF, matching the non-decreasing single-pass contract
// driver.go expects of an upstream producer.
type sliceNodeSource struct {
	nodes []*KmerPathNode
	idx   int
}

func (s *sliceNodeSource) Next(ctx context.Context) (*KmerPathNode, error) {
	if s.idx >= len(s.nodes) {
		return nil, io.EOF
	}
	n := s.nodes[s.idx]
	s.idx++
	return n, nil
}

// buildChainNodes slices bigSeq into len(lengths) consecutive KmerPathNodes,
// each covering lengths[i] k-mers starting right after the previous node's
// k-mers, so that adjacent nodes are genuine one-base-extension neighbors
// by construction.
func buildChainNodes(t *testing.T, k int, bigSeq string, lengths []int, isRef []bool, weight int) []*KmerPathNode {
	t.Helper()
	nodes := make([]*KmerPathNode, len(lengths))
	base := 0
	for i, l := range lengths {
		end := base + l + k - 1
		if end > len(bigSeq) {
			t.Fatalf("sequence too short: need %d bases, have %d", end, len(bigSeq))
		}
		sub := bigSeq[base : base+l+k-1]
		kmers := make([]Kmer, l)
		weights := make([]int, l)
		for j := 0; j < l; j++ {
			km, ok := KmerFromString(sub[j:j+k], k)
			if !ok {
				t.Fatalf("bad kmer in chain: %q", sub[j:j+k])
			}
			kmers[j] = km
			weights[j] = weight
		}
		nodes[i] = NewPathNode(kmers, weights, Pos(base), Pos(base), isRef[i], nil)
		base += l
	}
	return nodes
}

func drainDriver(t *testing.T, d *Driver) []Record {
	t.Helper()
	ctx := context.Background()
	var out []Record
	for {
		rec, ok, err := d.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

func testOpts() Opts {
	o := DefaultOpts
	o.K = 4
	o.MaxEvidenceDistance = 5
	o.MaxAnchorLength = 200
	return o
}

const chainSeq42 = "CGAGAACACCTGACAGCGTCAATGCTATCGATTTTACTTAGCT"

func TestDriverSingleAnchoredBreakend(t *testing.T) {
	nodes := buildChainNodes(t, 4, chainSeq42, []int{20, 20}, []bool{true, false}, 5)
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Kind, SingleAnchored)
	expect.EQ(t, rec.FirstStart, Pos(0))
	expect.EQ(t, rec.Sequence, chainSeq42)
	expect.True(t, rec.Anchors[0].Present)
	expect.False(t, rec.Anchors[1].Present)
}

const chainSeq7 = "GAAAGCCTTCGTTGATTATTCCTAACAACCCACCTCTTTAGCAATAATGCTGGAGCGGTGAGTCCGGGCA"

func TestDriverUnanchoredBreakend(t *testing.T) {
	nodes := buildChainNodes(t, 4, chainSeq7, []int{10}, []bool{false}, 5)
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Kind, Unanchored)
	expect.EQ(t, rec.FirstStart, Pos(0))
	expect.EQ(t, rec.Sequence, chainSeq7[:13])
	expect.False(t, rec.Anchors[0].Present)
	expect.False(t, rec.Anchors[1].Present)
}

func TestDriverMonotoneOutputOrder(t *testing.T) {
	first := buildChainNodes(t, 4, chainSeq42, []int{20, 20}, []bool{true, false}, 5)
	second := buildChainNodes(t, 4, chainSeq7, []int{10}, []bool{false}, 5)
	for _, n := range second {
		n.firstStart += 1000
		n.firstEnd += 1000
	}
	nodes := append(first, second...)
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 2)
	for i := 1; i < len(recs); i++ {
		expect.True(t, recs[i-1].FirstStart <= recs[i].FirstStart)
	}
}

func TestDriverStatsTracksConsumedAndCalled(t *testing.T) {
	nodes := buildChainNodes(t, 4, chainSeq42, []int{20, 20}, []bool{true, false}, 5)
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())
	drainDriver(t, d)

	stats := d.Stats()
	expect.EQ(t, stats.ConsumedInput, 2)
	expect.EQ(t, stats.ContigsCalled, 1)
}

// A nonreference segment flanked by reference on both sides must be called as
// a Breakpoint with both anchors present, regardless of which side of the
// trailing reference node the caller's own memoized path happens to stop at
// (coreOf/extendFlank re-derive whichever anchor the path itself didn't
// keep, since the anchor node is still live in the graph).
func TestDriverBreakpointBothAnchors(t *testing.T) {
	nodes := buildChainNodes(t, 4, chainSeq42, []int{15, 10, 15}, []bool{true, false, true}, 5)
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Kind, Breakpoint)
	expect.True(t, rec.Anchors[0].Present)
	expect.True(t, rec.Anchors[1].Present)
	expect.EQ(t, rec.Sequence, chainSeq42)
}

// An oversized unanchored candidate (length exceeding
// MaxExpectedBreakendLengthMultiple*MaxConcordantFragmentSize) discovered
// while the anchored caller has failed to finalise anything for
// longestPathRemovalAdvancementTriggerCount consecutive advancements is
// discarded outright rather than ever being emitted as a record.
func TestDriverMisassemblySuppression(t *testing.T) {
	big := buildChainNodes(t, 4, chainSeq42[:33], []int{30}, []bool{false}, 5)

	km, ok := KmerFromString("ACGT", 4)
	if !ok {
		t.Fatalf("bad kmer")
	}
	filler := NewPathNode([]Kmer{km}, []int{1}, 30, 30, true, nil)

	nodes := append(big, filler)

	opts := testOpts()
	opts.MaxExpectedBreakendLengthMultiple = 1
	opts.MaxConcordantFragmentSize = 1
	d := NewDriver(&sliceNodeSource{nodes: nodes}, opts)

	recs := drainDriver(t, d)
	for _, rec := range recs {
		if rec.Sequence == chainSeq42[:33] {
			t.Fatalf("oversized contig was emitted instead of suppressed: %+v", rec)
		}
	}

	stats := d.Stats()
	expect.EQ(t, stats.ConsumedInput, 2)
	expect.EQ(t, stats.MisassembliesSuppressed, 1)
}

// A long reference-only node left live in the graph after the contig it
// flanked was consumed carries no non-reference weight, so it can never
// again become a candidate; it must eventually be swept by position-based
// orphan removal once it falls far enough behind the frontier, rather
// than lingering forever or being emitted as a record.
func TestDriverOrphanRemoval(t *testing.T) {
	head := buildChainNodes(t, 4, chainSeq42[:18], []int{5, 10}, []bool{true, false}, 5)
	m := head[1]

	// tail is a one-base extension of m's last k-mer, entirely reference,
	// long enough that it stays behind the frontier for a while once it is
	// orphaned: MaxEvidenceDistance=5 and orphanEvidenceMultiple=128 only
	// engage the scan once the gap exceeds 640.
	tailKmers := make([]Kmer, 700)
	tailKmers[0] = ((m.LastKmer() << 2) | Kmer(0)) & kmerMask(4)
	for i := 1; i < len(tailKmers); i++ {
		tailKmers[i] = tailKmers[0]
	}
	tailWeights := make([]int, len(tailKmers))
	for i := range tailWeights {
		tailWeights[i] = 1
	}
	tail := NewPathNode(tailKmers, tailWeights, m.LastEnd()+1, m.LastEnd()+1, true, nil)

	far := buildChainNodes(t, 4, chainSeq7, []int{10}, []bool{false}, 5)
	far[0].firstStart += 2000
	far[0].firstEnd += 2000

	nodes := append([]*KmerPathNode{}, head...)
	nodes = append(nodes, tail)
	nodes = append(nodes, far...)
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 2)
	expect.EQ(t, recs[0].Kind, Breakpoint)
	expect.True(t, recs[0].Anchors[0].Present)
	expect.True(t, recs[0].Anchors[1].Present)

	stats := d.Stats()
	expect.EQ(t, stats.OrphanClustersRemoved, 1)
}

// A predecessor admitted after its successor (legal: wide position
// intervals can overlap at equal firstStart) must still end up on the
// called path; the successor's memoized entry has to be invalidated when
// the late edge appears, or the combined path stays invisible.
func TestDriverLateArrivingPredecessorExtendsPath(t *testing.T) {
	succ := NewPathNode(mkKmers(t, 4, "AAAC"), []int{5}, 11, 12, false, nil)
	pred := NewPathNode(mkKmers(t, 4, "AAAA"), []int{3}, 11, 11, false, nil)
	d := NewDriver(&sliceNodeSource{nodes: []*KmerPathNode{succ, pred}}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Kind, Unanchored)
	expect.EQ(t, rec.FirstStart, Pos(11))
	expect.EQ(t, rec.Sequence, "AAAAC")
}

// When the best path the caller finds revisits a k-mer, the driver trims
// it at the evidence-dominant occurrence before emitting, instead of
// calling a contig containing the same k-mer twice; the trimmed-off
// remainder and its evidence partition are consumed, not re-emitted.
func TestDriverRepeatKmerSplit(t *testing.T) {
	k := 4
	// The k-mers of "TCGAGAGACT": a consistent one-base-extension chain in
	// which "GAGA" occurs at offsets 2 and 4.
	kmers := mkKmers(t, k, "TCGA", "CGAG", "GAGA", "AGAG", "GAGA", "AGAC", "GACT")
	weights := []int{5, 5, 5, 5, 5, 5, 5}
	n := NewPathNode(kmers, weights, 0, 0, false, nil)

	// Anchor the repeat-carrying node between two one-kmer reference flanks
	// so the contig the caller finds is unambiguous and anchored: head's
	// k-mer is a one-base-extension predecessor of n's first k-mer ("TCGA"),
	// and tail's k-mer is a one-base-extension successor of n's last k-mer
	// ("GACT").
	headKmers := mkKmers(t, k, "ATCG")
	head := NewPathNode(headKmers, []int{1}, n.FirstStart()-1, n.FirstStart()-1, true, nil)

	tailKmers := mkKmers(t, k, "ACTG")
	tail := NewPathNode(tailKmers, []int{1}, n.LastEnd()+1, n.LastEnd()+1, true, nil)

	// Evidence favors trimming at the first occurrence of the repeated
	// k-mer "GAGA" (offset 2, position 2): two items anchored there versus
	// one near the second occurrence (offset 4, position 4).
	repeated := kmers[2]
	evidence := []KmerEvidence{
		{ID: 1, Support: []KmerSupportNode{{Kmer: repeated, Start: 2}}},
		{ID: 2, Support: []KmerSupportNode{{Kmer: repeated, Start: 2}}},
		{ID: 3, Support: []KmerSupportNode{{Kmer: repeated, Start: 4}}},
	}
	n.evidence = evidence

	nodes := []*KmerPathNode{head, n, tail}
	d := NewDriver(&sliceNodeSource{nodes: nodes}, testOpts())

	recs := drainDriver(t, d)
	expect.EQ(t, len(recs), 1)
	rec := recs[0]

	seen := make(map[Kmer]bool)
	for i := 0; i+k <= len(rec.Sequence); i++ {
		km, ok := KmerFromString(rec.Sequence[i:i+k], k)
		if !ok {
			continue
		}
		if seen[km] {
			t.Fatalf("emitted record still revisits k-mer %q: %q", rec.Sequence[i:i+k], rec.Sequence)
		}
		seen[km] = true
	}
}
