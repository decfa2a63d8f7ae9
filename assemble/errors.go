package assemble

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// PreconditionError wraps a violated precondition (out-of-order input,
// duplicate insertion, evidence referencing an unknown node). These
// indicate an upstream bug; the module never attempts to recover from one,
// it panics after wrapping the cause so a recovering test can type-assert
// it back out.
type PreconditionError struct {
	cause error
}

func (e *PreconditionError) Error() string { return e.cause.Error() }
func (e *PreconditionError) Unwrap() error { return e.cause }

// panicPrecondition wraps msg as a PreconditionError via errors.E, logs it
// at error level, and panics with the *PreconditionError itself, keeping
// the cause type-assertable for a recovering caller.
func panicPrecondition(format string, args ...interface{}) {
	err := &PreconditionError{cause: errors.E(fmt.Sprintf(format, args...))}
	log.Error.Printf("assemble: precondition violated: %v", err)
	panic(err)
}

// sanityCheckFailed reports a disagreement between memoization and fresh
// recomputation, a would-be-removed node still present in the graph, or a
// contig with no recoverable evidence. Under debug mode this is fatal;
// otherwise it is only logged at error level and execution continues. No
// call site removes nodes in response: Caller.SanityCheckFrontier leaves
// the memo as it is, and finalizeAndEmit goes on to consume the called
// contig exactly as it would without the failure.
func sanityCheckFailed(debug bool, format string, args ...interface{}) {
	if debug {
		log.Panicf("assemble: sanity check failed: "+format, args...)
		return
	}
	log.Error.Printf("assemble: sanity check failed (recovering): "+format, args...)
}

// logNoContigsInputExhausted reports the "no contigs but input exhausted
// and graph non-empty" condition; output terminates after this is logged.
func logNoContigsInputExhausted(remaining int) {
	log.Error.Printf("assemble: input exhausted with %d node(s) still in graph and no contig finalised", remaining)
}
