package models

import (
	"fmt"

	"github.com/mmynk/splitledger/internal/money"
)

// Edge is a canonical balance: Debtor owes Creditor Amount.
// Amount is always > 0 and Debtor never equals Creditor.
type Edge struct {
	GroupID  string      `json:"group_id"`
	Debtor   string      `json:"debtor"`
	Creditor string      `json:"creditor"`
	Amount   money.Money `json:"amount"`
}

// Entry is one directed obligation produced by a ledger event: Debtor owes
// Creditor Amount more than before. Settlements are expressed as entries in
// the reverse direction.
type Entry struct {
	Debtor   string      `json:"debtor"`
	Creditor string      `json:"creditor"`
	Amount   money.Money `json:"amount"`
}

// EventKind classifies ledger events.
type EventKind string

const (
	EventExpense    EventKind = "expense"
	EventRetraction EventKind = "retraction"
	EventSettlement EventKind = "settlement"
)

// LedgerEvent is one applied mutation. Its ID is the idempotency key.
type LedgerEvent struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Kind      EventKind `json:"kind"`
	SubjectID string    `json:"subject_id"` // expense or settlement id
	Seq       int64     `json:"seq"`
	AppliedAt int64     `json:"applied_at"` // Unix nanoseconds
	Entries   []Entry   `json:"entries"`
}

// ExpenseEventID is the idempotency key for applying an expense revision.
func ExpenseEventID(expenseID string, revision int) string {
	return fmt.Sprintf("expense:%s#%d", expenseID, revision)
}

// RetractionEventID is the idempotency key for removing an expense revision.
func RetractionEventID(expenseID string, revision int) string {
	return fmt.Sprintf("retract:%s#%d", expenseID, revision)
}

// SettlementEventID is the idempotency key for applying a settlement.
func SettlementEventID(settlementID string) string {
	return "settlement:" + settlementID
}
