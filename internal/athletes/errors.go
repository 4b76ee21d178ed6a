package athletes

import "fmt"

// ValidationError reports a required field missing or malformed. It is
// surfaced to the caller immediately; nothing is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// BulkOperationError reports a rejected batch commit. The failure covers the
// whole id set; no per-id attribution is attempted.
type BulkOperationError struct {
	Action BulkActionType
	IDs    int
	Err    error
}

func (e *BulkOperationError) Error() string {
	return fmt.Sprintf("bulk %s failed for %d athletes: %v", e.Action, e.IDs, e.Err)
}

func (e *BulkOperationError) Unwrap() error {
	return e.Err
}
