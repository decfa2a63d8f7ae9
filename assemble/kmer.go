package assemble

import (
	"fmt"

	"github.com/grailbio/base/simd"
	gunsafe "github.com/grailbio/base/unsafe"
)

// Kmer is a compact bit-packed encoding of a fixed-length nucleotide
// sequence, 2 bits per base. Path nodes are already oriented along the
// input's coordinate system, so there is no reverse-complement
// canonicalization: a Kmer always represents the forward strand.
type Kmer uint64

const invalidKmerBits = uint8(255)

var asciiToKmerMap [256]uint8
var kmerToASCII = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	for i := range asciiToKmerMap {
		asciiToKmerMap[i] = invalidKmerBits
	}
	asciiToKmerMap['A'] = 0
	asciiToKmerMap['a'] = 0
	asciiToKmerMap['C'] = 1
	asciiToKmerMap['c'] = 1
	asciiToKmerMap['G'] = 2
	asciiToKmerMap['g'] = 2
	asciiToKmerMap['T'] = 3
	asciiToKmerMap['t'] = 3
}

// KmerFromString encodes seq (length must equal k) into a Kmer. The second
// return value is false if seq contains a base other than ACGT/acgt.
func KmerFromString(seq string, k int) (Kmer, bool) {
	if len(seq) != k {
		return 0, false
	}
	var km Kmer
	for i := 0; i < len(seq); i++ {
		b := asciiToKmerMap[seq[i]]
		if b == invalidKmerBits {
			return 0, false
		}
		km = (km << 2) | Kmer(b)
	}
	return km, true
}

// String renders km as a k-length nucleotide string.
func (km Kmer) String(k int) string {
	buf := make([]byte, k)
	km.render(buf)
	return string(buf)
}

// render writes km's decoded bases into buf, which must have length k.
func (km Kmer) render(buf []byte) {
	v := km
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = kmerToASCII[v&3]
		v >>= 2
	}
}

// kmerScratch is a reusable decode buffer: grown on demand via
// simd.ResizeUnsafe instead of reallocating per call, and handed back as a
// string via gunsafe.BytesToString instead of a copying string() conversion.
// Callers that retain the result beyond the next render must copy it.
type kmerScratch struct {
	buf []byte
}

// renderKmer decodes km into s's scratch buffer and returns it as a string
// valid until the next call to renderKmer on the same scratch.
func (s *kmerScratch) renderKmer(km Kmer, k int) string {
	simd.ResizeUnsafe(&s.buf, k)
	km.render(s.buf)
	return gunsafe.BytesToString(s.buf)
}

// lastBase returns the final (lowest-order) base of km, as one of A/C/G/T.
func (km Kmer) lastBase() byte {
	return kmerToASCII[km&3]
}

// kmerMask returns a mask with the low 2*k bits set.
func kmerMask(k int) Kmer {
	if k >= 32 {
		return ^Kmer(0)
	}
	return (Kmer(1) << uint(2*k)) - 1
}

// isOneBaseExtension reports whether next is reachable from prev by
// shifting in one base: prev's low (k-1) bases equal next's high (k-1)
// bases. This is the graph's adjacency test between a node's last k-mer
// and its successor's first k-mer.
func isOneBaseExtension(prev, next Kmer, k int) bool {
	shift := uint(2 * (k - 1))
	prevLow := prev & ((Kmer(1) << shift) - 1)
	nextHigh := next >> 2
	return prevLow == nextHigh
}

func (km Kmer) GoString() string {
	return fmt.Sprintf("Kmer(%#x)", uint64(km))
}
