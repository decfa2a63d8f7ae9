package assemble

import (
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/svassembler/posindex"
)

// KmerRef is a (node, offset) pair returned by Graph.LookupByKmer: offset
// indexes into that node's kmers/weights slices at the position where the
// k-mer occurs, or is -1 when the k-mer is one of the node's
// collapsedKmers, which have no offset of their own.
type KmerRef struct {
	Node   NodeID
	Offset int
}

const nKmerShards = 256

// hashKmer picks a shard for k. Farmhash distributes the 2-bit-packed
// kmer values far better than using the low bits directly, which would
// collide heavily on poly-A/poly-T runs.
func hashKmer(k Kmer) uint64 {
	return farm.Hash64WithSeed(nil, uint64(k))
}

func shardForKmer(k Kmer) int {
	return int(hashKmer(k) & (nKmerShards - 1))
}

// posKey orders nodes by (firstStart, firstKmer); ties are broken by
// k-mer bit pattern, then node ID, so iteration order is deterministic.
type posKey struct {
	firstStart Pos
	firstKmer  Kmer
	id         NodeID
}

func lessPosKey(a, b posKey) bool {
	if a.firstStart != b.firstStart {
		return a.firstStart < b.firstStart
	}
	if a.firstKmer != b.firstKmer {
		return a.firstKmer < b.firstKmer
	}
	return a.id < b.id
}

// Graph is the dual index of active path nodes: ordered by (firstStart,
// firstKmer) for range scans, and hashed by k-mer for adjacency/evidence
// lookup. Nodes are arena-allocated with stable NodeID handles; Remove
// tombstones the arena slot rather than compacting it, so NodeIDs held
// elsewhere (the caller's memo, the evidence tracker) stay valid to detect
// "this node is gone" without ever dereferencing a dangling pointer.
type Graph struct {
	arena      []*KmerPathNode // arena[id] == nil means tombstoned or never allocated
	order      *posindex.Ordered[posKey]
	kmerShards [nKmerShards]map[Kmer][]KmerRef

	maxFirstStart     Pos
	haveMaxFirstStart bool

	// insertHint remembers where the previous node landed in the ordered
	// index. Input arrives in ascending firstStart order, so the next key
	// almost always belongs at or just past it; the index's exponential
	// probe turns that into a near-O(1) position lookup, with out-of-order
	// reinserts falling back to a full binary search.
	insertHint int

	maxBucketSize int
}

// NewGraph constructs an empty graph.
func NewGraph() *Graph {
	g := &Graph{
		order: posindex.NewOrdered(lessPosKey),
	}
	for i := range g.kmerShards {
		g.kmerShards[i] = make(map[Kmer][]KmerRef)
	}
	return g
}

// Insert admits n into the graph, asserting n.firstStart is not less than
// any previously inserted node's and that n is not already present (n.id
// must be invalidNodeID).
func (g *Graph) Insert(n *KmerPathNode) NodeID {
	if n.id != invalidNodeID {
		panicPrecondition("node already inserted (id=%d)", n.id)
	}
	if g.haveMaxFirstStart && n.firstStart < g.maxFirstStart {
		panicPrecondition("out-of-order insert: firstStart=%d < max-seen=%d", n.firstStart, g.maxFirstStart)
	}
	return g.insertAt(n, true)
}

// reinsert admits a replacement node produced by a split without the
// monotonicity assertion: a left-survivor can have a firstStart earlier
// than nodes already admitted from later input. It still asserts the node
// is not already present.
func (g *Graph) reinsert(n *KmerPathNode) NodeID {
	if n.id != invalidNodeID {
		panicPrecondition("node already inserted (id=%d)", n.id)
	}
	return g.insertAt(n, false)
}

func (g *Graph) insertAt(n *KmerPathNode, trackMax bool) NodeID {
	id := NodeID(len(g.arena))
	n.id = id
	g.arena = append(g.arena, n)

	g.insertHint = g.order.InsertFrom(g.insertHint, posKey{firstStart: n.firstStart, firstKmer: n.FirstKmer(), id: id})

	for offset, km := range n.kmers {
		g.addKmerRef(km, KmerRef{Node: id, Offset: offset})
	}
	for _, km := range n.collapsedKmers {
		g.addKmerRef(km, KmerRef{Node: id, Offset: -1})
	}

	if trackMax && (!g.haveMaxFirstStart || n.firstStart > g.maxFirstStart) {
		g.maxFirstStart = n.firstStart
		g.haveMaxFirstStart = true
	}
	return id
}

func (g *Graph) addKmerRef(km Kmer, ref KmerRef) {
	shard := shardForKmer(km)
	bucket := append(g.kmerShards[shard][km], ref)
	g.kmerShards[shard][km] = bucket
	if len(bucket) > g.maxBucketSize {
		g.maxBucketSize = len(bucket)
	}
}

// Remove evicts id from the graph: tombstones its arena slot, removes it
// from the position index, and drops its k-mer bucket entries.
func (g *Graph) Remove(id NodeID) {
	n := g.Node(id)
	if n == nil {
		panicPrecondition("remove of absent/already-removed node %d", id)
	}
	g.order.Remove(posKey{firstStart: n.firstStart, firstKmer: n.FirstKmer(), id: id}, func(k posKey) bool {
		return k.id == id
	})
	for _, km := range n.kmers {
		g.removeKmerRefs(km, id)
	}
	for _, km := range n.collapsedKmers {
		g.removeKmerRefs(km, id)
	}
	g.arena[id] = nil
}

func (g *Graph) removeKmerRefs(km Kmer, id NodeID) {
	shard := shardForKmer(km)
	bucket := g.kmerShards[shard][km]
	out := bucket[:0]
	for _, ref := range bucket {
		if ref.Node != id {
			out = append(out, ref)
		}
	}
	if len(out) == 0 {
		delete(g.kmerShards[shard], km)
	} else {
		g.kmerShards[shard][km] = out
	}
}

// Node resolves id to its live node, or nil if it has been tombstoned.
func (g *Graph) Node(id NodeID) *KmerPathNode {
	if int(id) >= len(g.arena) {
		return nil
	}
	return g.arena[id]
}

// LookupByKmer yields every live (node, offset) pair whose k-mer equals k.
func (g *Graph) LookupByKmer(k Kmer) []KmerRef {
	shard := shardForKmer(k)
	refs := g.kmerShards[shard][k]
	out := make([]KmerRef, 0, len(refs))
	for _, ref := range refs {
		if g.Node(ref.Node) != nil {
			out = append(out, ref)
		}
	}
	return out
}

// First returns the node with the smallest (firstStart, firstKmer) key, if
// any.
func (g *Graph) First() (NodeID, bool) {
	k, ok := g.order.First()
	if !ok {
		return 0, false
	}
	return k.id, true
}

// Size returns the number of live (non-tombstoned) nodes.
func (g *Graph) Size() int {
	n := 0
	for _, node := range g.arena {
		if node != nil {
			n++
		}
	}
	return n
}

// MaxKmerBucketSize returns the largest per-k-mer bucket ever observed,
// used to populate Stats.MaxKmerBucketSize.
func (g *Graph) MaxKmerBucketSize() int { return g.maxBucketSize }

// GraphRangeIter iterates live nodes in ascending (firstStart, firstKmer)
// order over a bounded range.
type GraphRangeIter struct {
	g   *Graph
	idx int
	to  Pos
}

// RangeByFirstStart returns an iterator over live nodes whose firstStart
// lies in [from, to).
func (g *Graph) RangeByFirstStart(from, to Pos) *GraphRangeIter {
	idx := g.order.LowerBound(posKey{firstStart: from})
	return &GraphRangeIter{g: g, idx: idx, to: to}
}

// Next advances the iterator, returning the next live node or nil when the
// range is exhausted.
func (it *GraphRangeIter) Next() *KmerPathNode {
	for it.idx < it.g.order.Len() {
		key := it.g.order.At(it.idx)
		it.idx++
		if key.firstStart >= it.to {
			return nil
		}
		if n := it.g.Node(key.id); n != nil {
			return n
		}
	}
	return nil
}

// linkAdjacency wires the prev/next edge between two nodes: v's first
// k-mer must be a one-base extension of u's last k-mer and their position
// intervals must overlap after the unit shift.
func (g *Graph) linkAdjacency(u, v *KmerPathNode, k int) bool {
	if !isOneBaseExtension(u.LastKmer(), v.FirstKmer(), k) {
		return false
	}
	if u.LastStart()+1 > v.FirstEnd() || v.FirstStart() > u.LastEnd()+1 {
		return false
	}
	u.addNext(v.id)
	v.addPrev(u.id)
	return true
}

// resolveAdjacency wires edges between n and whatever is already live in
// the graph on either side of it. The k-mer hash index is keyed by literal
// k-mer value, but adjacency requires a one-base shift: a successor's
// first k-mer is the node's last k-mer advanced by one base, not equal to
// it. So rather than looking up n's own k-mer value (which only ever finds
// exact repeats), this enumerates the four k-mers one base away in each
// direction and looks those up.
//
// It returns the IDs of already-present nodes that gained n as a new
// predecessor. A caller memoizing best-incoming paths over the graph must
// invalidate those nodes: their cached entries predate the new edge, and
// nothing else (version counters track only weight mutations) marks them
// stale. n itself needs no such treatment, since whoever inserts n
// computes its entry fresh afterwards.
func (g *Graph) resolveAdjacency(n *KmerPathNode, k int) (gainedPred []NodeID) {
	mask := kmerMask(k)
	shift := uint(2 * (k - 1))
	lowMask := (Kmer(1) << shift) - 1

	// Predecessors already in the graph whose LastKmer extends into n's
	// FirstKmer: candidate = (b << shift) | (n.FirstKmer() >> 2), for each
	// possible leading base b.
	highOfFirst := n.FirstKmer() >> 2
	for b := Kmer(0); b < 4; b++ {
		cand := ((b << shift) | highOfFirst) & mask
		for _, ref := range g.LookupByKmer(cand) {
			other := g.Node(ref.Node)
			if other == nil || other.id == n.id || ref.Offset != other.Length()-1 {
				continue
			}
			g.linkAdjacency(other, n, k)
		}
	}

	// Successors already in the graph whose FirstKmer extends from n's
	// LastKmer: candidate = (n.LastKmer() & lowMask) << 2 | b, for each
	// possible trailing base b.
	lowOfLast := n.LastKmer() & lowMask
	for b := Kmer(0); b < 4; b++ {
		cand := ((lowOfLast << 2) | b) & mask
		for _, ref := range g.LookupByKmer(cand) {
			other := g.Node(ref.Node)
			if other == nil || other.id == n.id || ref.Offset != 0 {
				continue
			}
			if g.linkAdjacency(n, other, k) {
				gainedPred = append(gainedPred, other.id)
			}
		}
	}
	return gainedPred
}
