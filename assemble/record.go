package assemble

import (
	"encoding/binary"
	"math"

	"github.com/minio/highwayhash"
)

// PosInterval is an inclusive [Start,End] position range, used both for a
// node's position interval and for a breakend estimate.
type PosInterval struct {
	Start, End Pos
}

// Union returns the smallest interval containing both p and o.
func (p PosInterval) Union(o PosInterval) PosInterval {
	u := p
	if o.Start < u.Start {
		u.Start = o.Start
	}
	if o.End > u.End {
		u.End = o.End
	}
	return u
}

// RecordKind classifies an emitted record by how many ends are
// reference-anchored.
type RecordKind int

const (
	Unanchored RecordKind = iota
	SingleAnchored
	Breakpoint
)

func (k RecordKind) String() string {
	switch k {
	case Unanchored:
		return "unanchored"
	case SingleAnchored:
		return "single-anchored"
	case Breakpoint:
		return "breakpoint"
	default:
		return "unknown"
	}
}

// Anchor is a reference-supported extension of a contig that pins one end
// to a genomic position.
type Anchor struct {
	Present        bool
	ReferenceIndex int
	Position       Pos
	AnchorBases    int
}

// Record is an assembled candidate structural-variant breakend, the unit
// Driver.Next yields.
type Record struct {
	ReferenceIndex int
	FirstStart     Pos
	Sequence       string
	Quality        []byte
	Anchors        [2]Anchor
	Kind           RecordKind
	Breakend       PosInterval
	EvidenceIDs    []EvidenceID
}

// qualityFromWeight derives a Phred-like per-base quality from a k-mer's
// remaining support weight via logarithmic scaling, clamped to the Phred
// range [2,60].
func qualityFromWeight(w int) byte {
	if w <= 0 {
		return 2
	}
	q := int(math.Round(10 * math.Log2(float64(w)+1)))
	if q < 2 {
		q = 2
	}
	if q > 60 {
		q = 60
	}
	return byte(q)
}

// qualitiesFromWeights maps a per-base weight slice to per-base Phred
// qualities.
func qualitiesFromWeights(weights []int) []byte {
	out := make([]byte, len(weights))
	for i, w := range weights {
		out[i] = qualityFromWeight(w)
	}
	return out
}

// evidenceBreakendUnion computes the union of the breakend intervals
// independently implied by each contributing evidence item, used when an
// emitted contig has an unanchored end. The union is accumulated in
// EvidenceID order, a deterministic total order over the evidence set, so
// the result never depends on tracker iteration order.
func evidenceBreakendUnion(evidence []KmerEvidence) PosInterval {
	if len(evidence) == 0 {
		return PosInterval{}
	}
	sorted := append([]KmerEvidence(nil), evidence...)
	sortEvidenceByID(sorted)
	union := sorted[0].BreakendInterval
	for _, e := range sorted[1:] {
		union = union.Union(e.BreakendInterval)
	}
	return union
}

func sortEvidenceByID(e []KmerEvidence) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].ID < e[j-1].ID; j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

// contentHash returns a stable digest of a record's identity (reference
// index, first start, sequence), used by viz.go to deduplicate exports
// across runs.
func contentHash(referenceIndex int, firstStart Pos, sequence string) [highwayhash.Size]byte {
	var zeroSeed [highwayhash.Size]byte
	buf := make([]byte, 0, 12+len(sequence))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(referenceIndex))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(firstStart))
	buf = append(buf, sequence...)
	return highwayhash.Sum(buf, zeroSeed[:])
}
