package assemble

// Pos is a 1-based (or however the upstream producer numbers it) genomic
// coordinate. Signed so that windowing arithmetic such as
// `firstStart - maxEvidenceDistance` never needs a separate underflow check
// beyond comparing against 0.
type Pos int64

// NodeID is a stable handle into the graph's node arena. It survives splits
// and remains valid (though tombstoned) after removal, so the memoized
// caller and evidence tracker can hold it across suspension points without
// ever dereferencing a *KmerPathNode directly.
type NodeID uint32

const invalidNodeID = NodeID(0xffffffff)

// EvidenceID identifies a KmerEvidence item.
type EvidenceID uint64

// KmerPathNode is a maximal linear run of consecutive k-mers sharing an
// identical support position interval. It is arena owned: the
// graph is the only holder of a live *KmerPathNode; everything else stores
// its NodeID and re-resolves through Graph.Node.
type KmerPathNode struct {
	id NodeID

	// kmers[i] occurs at offset i along the node; weights[i] is its
	// remaining support weight. len(kmers) == len(weights) == Length().
	kmers   []Kmer
	weights []int

	// firstStart/firstEnd bound the position interval at which kmers[0]
	// can occur. kmers[i]'s interval is [firstStart+i, firstEnd+i].
	firstStart, firstEnd Pos

	// isReference marks a node that lies entirely on the reference allele;
	// such nodes score zero in both callers and are never themselves
	// emitted as breakend sequence, only as anchors.
	isReference bool

	// collapsedKmers holds k-mers folded into this node by earlier
	// error-correction upstream; they are indexed in the graph's k-mer
	// buckets and counted by hasRepeat. NewPathNode leaves it empty, and
	// only subsetCopy carries it over (to a split's left survivor).
	collapsedKmers []Kmer

	// evidence is the set of KmerEvidence items the upstream producer
	// attached to this node; the driver registers each with the
	// EvidenceTracker when the node is admitted into the graph.
	evidence []KmerEvidence

	// prev/next are adjacency lists of NodeIDs; the graph appends to these
	// when nodes are inserted or split fragments reinserted. Removing a node
	// does not edit its neighbours' lists, so they can hold IDs of
	// tombstoned nodes, which readers skip by resolving through Graph.Node.
	// A cycle is possible when the underlying sequence repeats, so these are
	// not a DAG in general.
	prev, next []NodeID

	// version increments on every mutation to weights (removeWeight); the
	// caller compares against its memoized version to decide whether a
	// memo entry for this node is stale.
	version uint64
}

// NewPathNode constructs a path node. kmers and weights must have equal,
// positive length.
func NewPathNode(kmers []Kmer, weights []int, firstStart, firstEnd Pos, isReference bool, evidence []KmerEvidence) *KmerPathNode {
	if len(kmers) != len(weights) || len(kmers) == 0 {
		panic("assemble: kmers/weights length mismatch or empty node")
	}
	return &KmerPathNode{
		id:          invalidNodeID,
		kmers:       kmers,
		weights:     weights,
		firstStart:  firstStart,
		firstEnd:    firstEnd,
		isReference: isReference,
		evidence:    evidence,
	}
}

// Evidence returns the KmerEvidence items attached to this node.
func (n *KmerPathNode) Evidence() []KmerEvidence { return n.evidence }

// ID returns the node's arena handle, or invalidNodeID if it has not yet
// been inserted into a graph.
func (n *KmerPathNode) ID() NodeID { return n.id }

// Length returns the number of k-mers in the node.
func (n *KmerPathNode) Length() int { return len(n.kmers) }

// IsReference reports whether the node lies entirely on the reference
// allele.
func (n *KmerPathNode) IsReference() bool { return n.isReference }

// Version returns the node's mutation counter.
func (n *KmerPathNode) Version() uint64 { return n.version }

// FirstKmer returns kmers[0].
func (n *KmerPathNode) FirstKmer() Kmer { return n.kmers[0] }

// LastKmer returns the final k-mer in the node.
func (n *KmerPathNode) LastKmer() Kmer { return n.kmers[len(n.kmers)-1] }

// FirstStart and FirstEnd bound the position interval of the node's first
// k-mer.
func (n *KmerPathNode) FirstStart() Pos { return n.firstStart }
func (n *KmerPathNode) FirstEnd() Pos   { return n.firstEnd }

// LastStart/LastEnd bound the position interval of the node's final k-mer.
func (n *KmerPathNode) LastStart() Pos { return n.firstStart + Pos(len(n.kmers)-1) }
func (n *KmerPathNode) LastEnd() Pos   { return n.firstEnd + Pos(len(n.kmers)-1) }

// WeightAt returns the remaining support weight at offset i.
func (n *KmerPathNode) WeightAt(i int) int { return n.weights[i] }

// TotalWeight sums the node's per-offset weights.
func (n *KmerPathNode) TotalWeight() int {
	sum := 0
	for _, w := range n.weights {
		sum += w
	}
	return sum
}

// Prev and Next return the node's current adjacency lists, which may
// include IDs of removed nodes (Graph.Node returns nil for those). The
// graph appends to these in place as nodes are inserted or split; callers
// must not retain the returned slices across such events.
func (n *KmerPathNode) Prev() []NodeID { return n.prev }
func (n *KmerPathNode) Next() []NodeID { return n.next }

// addNext/addPrev register an adjacency edge. Duplicate edges are not
// filtered; callers are careful to add each edge once (the graph only adds
// an edge the first time it discovers the adjacency, on insert or split).
func (n *KmerPathNode) addNext(id NodeID) { n.next = append(n.next, id) }
func (n *KmerPathNode) addPrev(id NodeID) { n.prev = append(n.prev, id) }

// removeWeight subtracts delta from the weight at offset i, bumping the
// node's version counter. It never drives weight below zero.
func (n *KmerPathNode) removeWeight(i, delta int) {
	n.weights[i] -= delta
	if n.weights[i] < 0 {
		n.weights[i] = 0
	}
	n.version++
}

// zeroRuns returns the maximal [start,end) offset ranges over which every
// weight is zero, used by the driver's node-splitting logic.
func (n *KmerPathNode) zeroRuns() [][2]int {
	var runs [][2]int
	start := -1
	for i, w := range n.weights {
		if w == 0 {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			runs = append(runs, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(n.weights)})
	}
	return runs
}

// hasRepeat reports whether kmer km appears more than once among the
// node's primary kmers plus its collapsedKmers. The repeat-kmer fix does
// not call it: findRepeat examines primary k-mers only.
func (n *KmerPathNode) hasRepeat(km Kmer) bool {
	count := 0
	for _, k := range n.kmers {
		if k == km {
			count++
		}
	}
	for _, k := range n.collapsedKmers {
		if k == km {
			count++
		}
	}
	return count > 1
}

// subsetCopy creates a new, not-yet-inserted node covering offsets
// [start,end) of n, used when a node whose offset-weight fell to zero
// across a contiguous sub-range is split into surviving replacement
// nodes. The survivor carries n's full evidence list: evidence need not
// be partitioned at split boundaries, since each surviving cell keeps
// the weight and evidence association it already has via the
// EvidenceTracker's cell index, which is keyed by (kmer, position)
// rather than by node identity.
func (n *KmerPathNode) subsetCopy(start, end int) *KmerPathNode {
	kmers := append([]Kmer(nil), n.kmers[start:end]...)
	weights := append([]int(nil), n.weights[start:end]...)
	cp := NewPathNode(kmers, weights, n.firstStart+Pos(start), n.firstEnd+Pos(start), n.isReference, n.evidence)
	if start == 0 {
		cp.collapsedKmers = append([]Kmer(nil), n.collapsedKmers...)
	}
	return cp
}
