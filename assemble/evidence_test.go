package assemble

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestEvidenceTrackerSupportAndUntrack(t *testing.T) {
	tr := NewEvidenceTracker()
	km := mkKmers(t, 4, "AAAA", "AAAC")[0]
	km2 := mkKmers(t, 4, "AAAC")[0]

	ev := KmerEvidence{ID: 1, Support: []KmerSupportNode{{Kmer: km, Start: 10, End: 10}}}
	tr.Register(ev)

	n := NewPathNode([]Kmer{km, km2}, []int{1, 1}, 10, 10, false, nil)
	sub := KmerPathSubnode{Node: n, Start: 0, End: 2}
	contig := Contig{Subnodes: []KmerPathSubnode{sub}}

	support := tr.Support(contig)
	expect.EQ(t, len(support), 1)
	expect.EQ(t, support[0].ID, EvidenceID(1))

	untracked := tr.Untrack(contig)
	expect.EQ(t, len(untracked), 1)
	expect.EQ(t, tr.Len(), 0)
	expect.EQ(t, len(tr.Support(contig)), 0)
}

func TestEvidenceTrackerRegisterTwicePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on double registration")
		}
	}()
	tr := NewEvidenceTracker()
	ev := KmerEvidence{ID: 1}
	tr.Register(ev)
	tr.Register(ev)
}

func TestEvidenceTrackerMatchesExpected(t *testing.T) {
	tr := NewEvidenceTracker()
	km := mkKmers(t, 4, "AAAA")[0]
	n := NewPathNode([]Kmer{km}, []int{1}, 10, 10, false, nil)
	sub := KmerPathSubnode{Node: n, Start: 0, End: 1}

	expect.False(t, tr.MatchesExpected(sub))

	tr.Register(KmerEvidence{ID: 1, Support: []KmerSupportNode{{Kmer: km, Start: 10}}})
	expect.True(t, tr.MatchesExpected(sub))
}
