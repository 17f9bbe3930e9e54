package models

import (
	"fmt"
	"strings"

	"github.com/mmynk/splitledger/internal/money"
)

// ValidationError reports malformed input. It is always raised before any
// state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AmountMismatchError is returned when exact shares do not add up to the
// expense amount.
type AmountMismatchError struct {
	Total money.Money
	Sum   money.Money
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("exact shares sum to %s, expected %s", e.Sum, e.Total)
}

// OverpaymentError is returned when a settlement exceeds what the payer owes
// the payee and the overpayment policy rejects it.
type OverpaymentError struct {
	PayerID     string
	PayeeID     string
	Outstanding money.Money
	Amount      money.Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("settlement of %s exceeds outstanding debt of %s from %s to %s",
		e.Amount, e.Outstanding, e.PayerID, e.PayeeID)
}

// InconsistencyError is returned when stored balances diverge from the
// balances replayed from the event history.
type InconsistencyError struct {
	GroupID  string
	Problems []string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("ledger for group %s is inconsistent: %s", e.GroupID, strings.Join(e.Problems, "; "))
}
