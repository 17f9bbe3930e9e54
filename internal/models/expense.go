package models

import (
	"github.com/mmynk/splitledger/internal/money"
)

// SplitMethod selects how an expense amount is divided among participants.
type SplitMethod string

const (
	SplitEqual      SplitMethod = "equal"
	SplitExact      SplitMethod = "exact"
	SplitPercentage SplitMethod = "percentage"
	SplitShares     SplitMethod = "shares"
)

// Valid reports whether m is a known method.
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitExact, SplitPercentage, SplitShares:
		return true
	}
	return false
}

// SplitParams carries the method-specific inputs. Only the field matching the
// method is read; the others must be empty.
type SplitParams struct {
	// Exact holds per-participant amounts for SplitExact.
	Exact map[string]money.Money `json:"exact,omitempty"`

	// BasisPoints holds per-participant hundredths of a percent for
	// SplitPercentage. They must total 10000.
	BasisPoints map[string]int64 `json:"basis_points,omitempty"`

	// Weights holds per-participant positive integer weights for SplitShares.
	Weights map[string]int64 `json:"weights,omitempty"`
}

// ExpenseStatus tracks whether an expense currently contributes to the ledger.
type ExpenseStatus string

const (
	ExpenseActive    ExpenseStatus = "active"
	ExpenseRetracted ExpenseStatus = "retracted"
)

// Expense is an amount paid by one member on behalf of a set of participants.
// Once its shares are applied to the ledger an expense revision is immutable;
// edits create a new revision.
type Expense struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`
	PayerID string `json:"payer_id"`

	// Amount is the total paid, always > 0.
	Amount money.Money `json:"amount"`

	Method SplitMethod `json:"method"`

	// Participants is ordered; for equal splits the order decides who absorbs
	// the remainder cents. The payer may or may not be included.
	Participants []string    `json:"participants"`
	Params       SplitParams `json:"params"`

	Description     string `json:"description,omitempty"`
	Category        string `json:"category,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ExpenseDate     string `json:"expense_date,omitempty"` // YYYY-MM-DD
	IsReimbursement bool   `json:"is_reimbursement,omitempty"`

	// Revision starts at 1 and increases with every edit.
	Revision int           `json:"revision"`
	Status   ExpenseStatus `json:"status"`

	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ExpenseShare is one participant's owed portion of an expense revision.
type ExpenseShare struct {
	ExpenseID     string      `json:"expense_id"`
	Revision      int         `json:"revision"`
	ParticipantID string      `json:"participant_id"`
	Position      int         `json:"position"`
	Amount        money.Money `json:"amount"`
}

// UserShare is a user's share of an expense's current revision, with the
// expense fields needed to show it outside the expense.
type UserShare struct {
	ExpenseShare
	GroupID     string `json:"group_id"`
	PayerID     string `json:"payer_id"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	ExpenseDate string `json:"expense_date,omitempty"`
}
