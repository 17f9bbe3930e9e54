package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// MessageType identifies what an envelope carries.
type MessageType string

const (
	ExpenseCreated     MessageType = "expense.created"
	ExpenseRevised     MessageType = "expense.revised"
	ExpenseDeleted     MessageType = "expense.deleted"
	SettlementRecorded MessageType = "settlement.recorded"
)

// ExpensePayload is an expense as published by upstream services. Amounts
// are integer minor units.
type ExpensePayload struct {
	ID              string             `json:"id"`
	GroupID         string             `json:"group_id"`
	PayerID         string             `json:"payer_id"`
	Amount          money.Money        `json:"amount"`
	Method          models.SplitMethod `json:"method"`
	Participants    []string           `json:"participants"`
	Params          models.SplitParams `json:"params"`
	Revision        int                `json:"revision,omitempty"`
	Description     string             `json:"description,omitempty"`
	Category        string             `json:"category,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	ExpenseDate     string             `json:"expense_date,omitempty"`
	IsReimbursement bool               `json:"is_reimbursement,omitempty"`
	CreatedBy       string             `json:"created_by,omitempty"`
}

// DeletePayload names the expense to retract. A non-zero Revision pins the
// revision being deleted, so a delete that overtakes a revision waits for it.
type DeletePayload struct {
	GroupID   string `json:"group_id"`
	ExpenseID string `json:"expense_id"`
	Revision  int    `json:"revision,omitempty"`
}

// SettlementPayload is a settlement as published by upstream services.
type SettlementPayload struct {
	ID        string      `json:"id"`
	GroupID   string      `json:"group_id"`
	PayerID   string      `json:"payer_id"`
	PayeeID   string      `json:"payee_id"`
	Amount    money.Money `json:"amount"`
	Method    string      `json:"method,omitempty"`
	Reference string      `json:"reference,omitempty"`
	Note      string      `json:"note,omitempty"`
	CreatedBy string      `json:"created_by,omitempty"`
}

// Envelope wraps exactly one payload matching Type.
type Envelope struct {
	Type       MessageType        `json:"type"`
	Timestamp  time.Time          `json:"timestamp"`
	Expense    *ExpensePayload    `json:"expense,omitempty"`
	Delete     *DeletePayload     `json:"delete,omitempty"`
	Settlement *SettlementPayload `json:"settlement,omitempty"`
}

// ToJSON converts the envelope to JSON bytes.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON decodes and checks an envelope.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if err := env.check(); err != nil {
		return nil, err
	}
	return &env, nil
}

// key identifies the ledger event a message will produce, for logging.
func (e *Envelope) key() string {
	switch {
	case e.Expense != nil:
		return e.Expense.ID
	case e.Delete != nil:
		return e.Delete.ExpenseID
	case e.Settlement != nil:
		return e.Settlement.ID
	}
	return ""
}

func (e *Envelope) check() error {
	var ok bool
	switch e.Type {
	case ExpenseCreated, ExpenseRevised:
		ok = e.Expense != nil && e.Expense.ID != ""
	case ExpenseDeleted:
		ok = e.Delete != nil && e.Delete.ExpenseID != "" && e.Delete.Revision >= 0
	case SettlementRecorded:
		// Without an id a redelivery could not be recognised.
		ok = e.Settlement != nil && e.Settlement.ID != ""
	default:
		return fmt.Errorf("unknown message type %q", e.Type)
	}
	if !ok {
		return fmt.Errorf("message of type %s is missing its payload or id", e.Type)
	}
	return nil
}
