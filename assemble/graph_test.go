package assemble

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestGraphInsertAndLookupByKmer(t *testing.T) {
	g := NewGraph()
	n := NewPathNode(mkKmers(t, 4, "AAAA", "AAAC"), []int{1, 1}, 10, 10, false, nil)
	id := g.Insert(n)
	expect.EQ(t, n.ID(), id)

	refs := g.LookupByKmer(n.kmers[0])
	expect.EQ(t, len(refs), 1)
	expect.EQ(t, refs[0].Node, id)
	expect.EQ(t, refs[0].Offset, 0)
}

func TestGraphInsertRejectsOutOfOrder(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on out-of-order insert")
		}
	}()
	g := NewGraph()
	g.Insert(NewPathNode(mkKmers(t, 4, "AAAA"), []int{1}, 10, 10, false, nil))
	g.Insert(NewPathNode(mkKmers(t, 4, "CCCC"), []int{1}, 5, 5, false, nil))
}

func TestGraphInsertRejectsDuplicate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on duplicate insert")
		}
	}()
	g := NewGraph()
	n := NewPathNode(mkKmers(t, 4, "AAAA"), []int{1}, 10, 10, false, nil)
	g.Insert(n)
	g.Insert(n)
}

func TestGraphRemove(t *testing.T) {
	g := NewGraph()
	n := NewPathNode(mkKmers(t, 4, "AAAA"), []int{1}, 10, 10, false, nil)
	id := g.Insert(n)
	g.Remove(id)
	expect.EQ(t, g.Node(id), (*KmerPathNode)(nil))
	expect.EQ(t, len(g.LookupByKmer(n.kmers[0])), 0)
	expect.EQ(t, g.Size(), 0)
}

func TestGraphRangeByFirstStart(t *testing.T) {
	g := NewGraph()
	a := NewPathNode(mkKmers(t, 4, "AAAA"), []int{1}, 10, 10, false, nil)
	b := NewPathNode(mkKmers(t, 4, "CCCC"), []int{1}, 20, 20, false, nil)
	g.Insert(a)
	g.Insert(b)

	it := g.RangeByFirstStart(0, 15)
	got := it.Next()
	expect.EQ(t, got.FirstStart(), Pos(10))
	expect.EQ(t, it.Next(), (*KmerPathNode)(nil))
}

func TestGraphResolveAdjacency(t *testing.T) {
	g := NewGraph()
	u := NewPathNode(mkKmers(t, 4, "AAAA"), []int{1}, 10, 10, false, nil)
	uID := g.Insert(u)
	g.resolveAdjacency(u, 4)

	v := NewPathNode(mkKmers(t, 4, "AAAC"), []int{1}, 11, 11, false, nil)
	vID := g.Insert(v)
	g.resolveAdjacency(v, 4)

	expect.EQ(t, u.Next(), []NodeID{vID})
	expect.EQ(t, v.Prev(), []NodeID{uID})
}

// A node admitted after its successor (possible whenever position
// intervals are wide enough to overlap at equal firstStart, and routine
// for split fragments reinserted out of order) must be reported by
// resolveAdjacency so memoizing callers can invalidate the successor.
func TestGraphResolveAdjacencyReportsNewPredecessor(t *testing.T) {
	g := NewGraph()
	succ := NewPathNode(mkKmers(t, 4, "AAAC"), []int{1}, 11, 12, false, nil)
	succID := g.Insert(succ)
	gained := g.resolveAdjacency(succ, 4)
	expect.EQ(t, len(gained), 0)

	pred := NewPathNode(mkKmers(t, 4, "AAAA"), []int{1}, 11, 11, false, nil)
	predID := g.Insert(pred)
	gained = g.resolveAdjacency(pred, 4)

	expect.EQ(t, gained, []NodeID{succID})
	expect.EQ(t, pred.Next(), []NodeID{succID})
	expect.EQ(t, succ.Prev(), []NodeID{predID})
}
