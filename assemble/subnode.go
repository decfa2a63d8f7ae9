package assemble

// KmerPathSubnode is a view of a KmerPathNode restricted to a contiguous
// offset sub-range [Start,End). A contig is an ordered sequence of
// subnodes whose concatenation forms a connected path in the graph.
type KmerPathSubnode struct {
	Node       *KmerPathNode
	Start, End int // offset range [Start,End) into Node.kmers/weights
}

// Length returns the number of k-mers covered by the subnode.
func (s KmerPathSubnode) Length() int { return s.End - s.Start }

// FirstStart/LastEnd give the subnode's position interval, derived from its
// parent node's interval shifted by the subnode's starting offset.
func (s KmerPathSubnode) FirstStart() Pos { return s.Node.firstStart + Pos(s.Start) }
func (s KmerPathSubnode) LastEnd() Pos    { return s.Node.firstEnd + Pos(s.End-1) }

// Weight sums the subnode's covered offsets' weights.
func (s KmerPathSubnode) Weight() int {
	sum := 0
	for i := s.Start; i < s.End; i++ {
		sum += s.Node.weights[i]
	}
	return sum
}

// Kmers returns the subnode's covered k-mers.
func (s KmerPathSubnode) Kmers() []Kmer { return s.Node.kmers[s.Start:s.End] }

// Contig is a connected sequence of subnodes: subnodes[i+1] begins exactly
// one k-mer after subnodes[i] ends, per the graph's adjacency relation.
type Contig struct {
	Subnodes []KmerPathSubnode
}

// FirstStart/LastEnd of the overall contig.
func (c Contig) FirstStart() Pos {
	if len(c.Subnodes) == 0 {
		return 0
	}
	return c.Subnodes[0].FirstStart()
}
func (c Contig) LastEnd() Pos {
	if len(c.Subnodes) == 0 {
		return 0
	}
	return c.Subnodes[len(c.Subnodes)-1].LastEnd()
}

// Length returns the number of k-mer positions spanned by the contig
// (sum of subnode lengths; adjacent subnodes contribute disjoint offsets).
func (c Contig) Length() int {
	n := 0
	for _, s := range c.Subnodes {
		n += s.Length()
	}
	return n
}

// Weight sums every subnode's weight.
func (c Contig) Weight() int {
	w := 0
	for _, s := range c.Subnodes {
		w += s.Weight()
	}
	return w
}

// Sequence renders the contig's nucleotide sequence: the first subnode's
// full k-mer run, followed by the last base of every subsequent k-mer
// (since each advances the frame by one base), across every subnode.
func (c Contig) Sequence(k int) string {
	if len(c.Subnodes) == 0 {
		return ""
	}
	buf := make([]byte, 0, c.Length()+k-1)
	var scratch kmerScratch
	first := true
	for _, s := range c.Subnodes {
		kms := s.Kmers()
		for _, km := range kms {
			if first {
				buf = append(buf, scratch.renderKmer(km, k)...)
				first = false
				continue
			}
			buf = append(buf, km.lastBase())
		}
	}
	return string(buf)
}

// Weights returns, per base of Sequence, the weight of the k-mer that
// introduced that base (the first k-mer contributes k bases' worth of its
// own weight; every subsequent k-mer contributes one base's weight). Used
// by record.go to derive per-base quality.
func (c Contig) Weights(k int) []int {
	if len(c.Subnodes) == 0 {
		return nil
	}
	out := make([]int, 0, c.Length()+k-1)
	first := true
	for _, s := range c.Subnodes {
		for i := s.Start; i < s.End; i++ {
			w := s.Node.weights[i]
			if first {
				for j := 0; j < k; j++ {
					out = append(out, w)
				}
				first = false
				continue
			}
			out = append(out, w)
		}
	}
	return out
}

// KmerSupportNode is a (kmer, position-interval) cell contributed by one
// evidence item.
type KmerSupportNode struct {
	Kmer       Kmer
	Start, End Pos // inclusive position interval this cell can occur at
}

// KmerEvidence is an opaque read/read-pair identifier plus its ordered
// k-mer trace, and the breakend interval it independently implies (used
// when the called contig turns out unanchored).
type KmerEvidence struct {
	ID               EvidenceID
	Support          []KmerSupportNode
	BreakendInterval PosInterval
}
