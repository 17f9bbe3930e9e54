package ledger

import (
	"fmt"

	"github.com/mmynk/splitledger/internal/storage"
)

// OutOfOrderError is returned when a mutation names an expense revision the
// ledger has not reached yet. It can succeed once the earlier events are
// applied, so at-least-once consumers retry it instead of dropping it.
type OutOfOrderError struct {
	ExpenseID string
	// Current is the applied revision, 0 when the expense is unknown.
	Current int
	// Needed is the revision that has to be applied first.
	Needed int
}

func (e *OutOfOrderError) Error() string {
	if e.Current == 0 {
		return fmt.Sprintf("expense %s: not found", e.ExpenseID)
	}
	return fmt.Sprintf("expense %s is at revision %d, revision %d has not been applied",
		e.ExpenseID, e.Current, e.Needed)
}

// Unwrap lets callers that only know about storage.ErrNotFound treat an
// unknown expense as missing.
func (e *OutOfOrderError) Unwrap() error {
	if e.Current == 0 {
		return storage.ErrNotFound
	}
	return nil
}
