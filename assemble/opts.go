package assemble

// Opts configures a Driver. All fields are required; there is no
// auto-detection of any value.
type Opts struct {
	// K is the k-mer length used throughout the input graph.
	K int

	// MaxEvidenceDistance is the window width: read length + (maxFragmentSize
	// - minFragmentSize). It bounds how far an evidence item's cells can sit
	// from the node that registers them, and gates the caller's frontier
	// rule.
	MaxEvidenceDistance Pos

	// MaxAnchorLength upper-bounds anchor extension length in bases.
	MaxAnchorLength int

	// ReferenceIndex is the chromosome index tagged onto every output
	// record.
	ReferenceIndex int

	// MaxExpectedBreakendLengthMultiple and MaxConcordantFragmentSize
	// together set the misassembly-suppression threshold:
	// a region is discarded once the unanchored caller's best path length
	// exceeds MaxExpectedBreakendLengthMultiple * MaxConcordantFragmentSize.
	MaxExpectedBreakendLengthMultiple float64
	MaxConcordantFragmentSize         int

	// ContigName is a debug tag attached to log lines and viz exports; it
	// has no effect on assembly results.
	ContigName string

	// Debug escalates sanity-check failures from recoverable
	// logged errors to fatal panics, and enables the viz side-outputs.
	Debug bool

	// VizDir, if non-empty, is where assemble/viz.go writes diagnostic
	// exports. Ignored unless Debug is set.
	VizDir string
}

// orphanEvidenceMultiple gates orphan-subgraph scanning: it only engages
// once the graph's leftmost live node lags the frontier by this many
// multiples of MaxEvidenceDistance.
const orphanEvidenceMultiple = 128

// longestPathRemovalAdvancementTriggerCount is the number of consecutive
// advancements without a finalised anchored path before misassembly
// detection engages.
const longestPathRemovalAdvancementTriggerCount = 2

// anchoredScore is the additive bonus a path receives for terminating on a
// reference-anchored node. 2^30 so that any realistic-length unanchored
// path cannot outscore an anchored one.
const anchoredScore = 1 << 30

// DefaultOpts supplies the defaults a caller can copy and override before
// constructing a Driver.
var DefaultOpts = Opts{
	K:                                  25,
	MaxEvidenceDistance:                1000,
	MaxAnchorLength:                    200,
	MaxExpectedBreakendLengthMultiple:  10,
	MaxConcordantFragmentSize:          600,
	ContigName:                         "",
}

func (o Opts) validate() {
	if o.K <= 0 || o.K > 32 {
		panic("assemble: Opts.K must be in (0,32]")
	}
	if o.MaxEvidenceDistance < 0 {
		panic("assemble: Opts.MaxEvidenceDistance must be >= 0")
	}
}
