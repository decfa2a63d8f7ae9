package assemble

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestFindRepeatNoRepeat(t *testing.T) {
	n := NewPathNode(mkKmers(t, 4, "TAAC", "AACG", "ACGT", "CGTA"), []int{1, 1, 1, 1}, 100, 100, false, nil)
	contig := Contig{Subnodes: []KmerPathSubnode{{Node: n, Start: 0, End: 4}}}

	_, _, _, found := findRepeat(contig)
	expect.False(t, found)
}

func TestFindRepeatFindsFirstDuplicate(t *testing.T) {
	// The k-mers of "CGAGAGAC": "GAGA" recurs at offsets 1 and 3.
	n := NewPathNode(mkKmers(t, 4, "CGAG", "GAGA", "AGAG", "GAGA", "AGAC"), []int{1, 1, 1, 1, 1}, 100, 100, false, nil)
	contig := Contig{Subnodes: []KmerPathSubnode{{Node: n, Start: 0, End: 5}}}

	flat, i1, i2, found := findRepeat(contig)
	expect.True(t, found)
	expect.EQ(t, i1, 1)
	expect.EQ(t, i2, 3)
	expect.EQ(t, positionAt(contig, flat, i1), Pos(101))
	expect.EQ(t, positionAt(contig, flat, i2), Pos(103))
}

func TestTrimContigAtSpansMultipleSubnodes(t *testing.T) {
	n1 := NewPathNode(mkKmers(t, 4, "TAAC", "AACG", "ACGT"), []int{1, 1, 1}, 0, 0, false, nil)
	n2 := NewPathNode(mkKmers(t, 4, "CGTA", "GTAC", "TACG"), []int{1, 1, 1}, 3, 3, false, nil)
	contig := Contig{Subnodes: []KmerPathSubnode{
		{Node: n1, Start: 0, End: 3},
		{Node: n2, Start: 0, End: 3},
	}}

	flat := flattenContig(contig)
	trimmed := trimContigAt(contig, flat, 4) // subIdx 1, offset 1
	expect.EQ(t, len(trimmed.Subnodes), 2)
	expect.EQ(t, trimmed.Subnodes[0].Start, 0)
	expect.EQ(t, trimmed.Subnodes[0].End, 3)
	expect.EQ(t, trimmed.Subnodes[1].Start, 0)
	expect.EQ(t, trimmed.Subnodes[1].End, 2)
	expect.EQ(t, trimmed.Length(), 5)
}

func TestRepeatFixNoRepeatPassthrough(t *testing.T) {
	n := NewPathNode(mkKmers(t, 4, "TAAC", "AACG", "ACGT"), []int{1, 1, 1}, 100, 100, false, nil)
	contig := Contig{Subnodes: []KmerPathSubnode{{Node: n, Start: 0, End: 3}}}

	fixed, ok := repeatFix(contig, NewEvidenceTracker())
	expect.True(t, ok)
	expect.EQ(t, fixed.Length(), 3)
}

func TestRepeatFixEmptyContigNotOK(t *testing.T) {
	_, ok := repeatFix(Contig{}, NewEvidenceTracker())
	expect.False(t, ok)
}

// The contig is trimmed at whichever of the two repeated occurrences has
// more supporting evidence closer to it, ties broken toward the later
// (longer) occurrence.
func TestRepeatFixTrimsTowardDominantOccurrence(t *testing.T) {
	repeated := mkKmers(t, 4, "GAGA")[0]

	for _, test := range []struct {
		name       string
		evidence   []KmerEvidence
		wantLength int
	}{
		{
			name: "first occurrence dominant",
			evidence: []KmerEvidence{
				{ID: 1, Support: []KmerSupportNode{{Kmer: repeated, Start: 101}}},
				{ID: 2, Support: []KmerSupportNode{{Kmer: repeated, Start: 101}}},
				{ID: 3, Support: []KmerSupportNode{{Kmer: repeated, Start: 103}}},
			},
			wantLength: 2, // trimmed at i1=1: offsets [0,2)
		},
		{
			name: "tie broken toward later occurrence",
			evidence: []KmerEvidence{
				{ID: 1, Support: []KmerSupportNode{{Kmer: repeated, Start: 101}}},
				{ID: 2, Support: []KmerSupportNode{{Kmer: repeated, Start: 103}}},
			},
			wantLength: 4, // trimmed at i2=3: offsets [0,4)
		},
		{
			name: "second occurrence dominant",
			evidence: []KmerEvidence{
				{ID: 1, Support: []KmerSupportNode{{Kmer: repeated, Start: 103}}},
				{ID: 2, Support: []KmerSupportNode{{Kmer: repeated, Start: 103}}},
			},
			wantLength: 4, // trimmed at i2=3: offsets [0,4)
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			n := NewPathNode(mkKmers(t, 4, "CGAG", "GAGA", "AGAG", "GAGA", "AGAC"), []int{1, 1, 1, 1, 1}, 100, 100, false, nil)
			contig := Contig{Subnodes: []KmerPathSubnode{{Node: n, Start: 0, End: 5}}}

			tr := NewEvidenceTracker()
			for _, ev := range test.evidence {
				tr.Register(ev)
			}

			fixed, ok := repeatFix(contig, tr)
			expect.True(t, ok)
			expect.EQ(t, fixed.Length(), test.wantLength)
		})
	}
}

func TestEvidenceDistance(t *testing.T) {
	km := mkKmers(t, 4, "AAAA")[0]
	ev := KmerEvidence{ID: 1, Support: []KmerSupportNode{{Kmer: km, Start: 10}}}
	expect.EQ(t, evidenceDistance(ev, Pos(15)), Pos(5))
	expect.EQ(t, evidenceDistance(ev, Pos(10)), Pos(0))

	expect.EQ(t, evidenceDistance(KmerEvidence{}, Pos(15)), posInfinity)
}
