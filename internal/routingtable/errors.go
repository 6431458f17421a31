package routingtable

import "fmt"

// Reason strings for InvalidSnapshotError.
const (
	ReasonKeyValueMismatch  = "key/value set mismatch"
	ReasonIllegalSelfRoute  = "illegal self-route"
	ReasonCycleTooShort     = "cycle too short"
	ReasonUnclosedCycle     = "unclosed cycle"
	ReasonOrderedDuplicates = "ordered-neighbors has duplicates"
	ReasonOrderedMismatch   = "ordered-neighbors mismatch"
)

// InvalidSnapshotError is returned by NewFromSnapshot and by ValidateSnapshot
// when a candidate Snapshot violates a structural invariant. It is fatal to the
// operation that raised it; the core never recovers from it internally.
type InvalidSnapshotError struct {
	Reason string
}

func (e *InvalidSnapshotError) Error() string {
	return fmt.Sprintf("routingtable: invalid snapshot: %s", e.Reason)
}

func invalidSnapshot(reason string) error {
	return &InvalidSnapshotError{Reason: reason}
}
