package models

import "github.com/mmynk/splitledger/internal/money"

// DefaultSettlementMethod is recorded when the caller does not name one.
const DefaultSettlementMethod = "cash"

// Settlement represents a payment between group members to clear debts.
// Recorded settlements are immutable.
type Settlement struct {
	// ID is the idempotency key; replays with the same ID are absorbed.
	ID string `json:"id"`

	GroupID string `json:"group_id"`

	// PayerID is the member handing over money (usually the debtor).
	PayerID string `json:"payer_id"`

	// PayeeID is the member receiving it.
	PayeeID string `json:"payee_id"`

	Amount money.Money `json:"amount"`

	// Method is a free-form tag such as "cash" or "bank_transfer".
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
	Note      string `json:"note,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
