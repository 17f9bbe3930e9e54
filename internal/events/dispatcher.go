package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitledger/internal/expense"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
)

// Dispatcher routes envelopes to the expense recorder and the settlement
// processor.
type Dispatcher struct {
	recorder  *expense.Recorder
	processor *settlement.Processor
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(recorder *expense.Recorder, processor *settlement.Processor) *Dispatcher {
	return &Dispatcher{recorder: recorder, processor: processor}
}

// Handle applies one envelope. Redeliveries succeed without changing the
// ledger.
func (d *Dispatcher) Handle(ctx context.Context, env *Envelope) error {
	if err := env.check(); err != nil {
		return err
	}

	switch env.Type {
	case ExpenseCreated:
		res, err := d.recorder.Create(ctx, expenseRequest(env.Expense))
		if err != nil {
			return err
		}
		logDuplicate(ctx, env, res.Duplicate)

	case ExpenseRevised:
		if env.Expense.Revision < 2 {
			return models.Invalid("revision", "a revised expense needs revision >= 2, got %d", env.Expense.Revision)
		}
		res, err := d.recorder.Revise(ctx, expenseRequest(env.Expense), env.Expense.Revision)
		if err != nil {
			return err
		}
		logDuplicate(ctx, env, res.Duplicate)

	case ExpenseDeleted:
		out, err := d.recorder.Delete(ctx, env.Delete.GroupID, env.Delete.ExpenseID, env.Delete.Revision)
		if err != nil {
			return err
		}
		logDuplicate(ctx, env, out.Duplicate)

	case SettlementRecorded:
		s := env.Settlement
		res, err := d.processor.Record(ctx, settlement.Request{
			ID:        s.ID,
			GroupID:   s.GroupID,
			PayerID:   s.PayerID,
			PayeeID:   s.PayeeID,
			Amount:    s.Amount,
			Method:    s.Method,
			Reference: s.Reference,
			Note:      s.Note,
			CreatedBy: s.CreatedBy,
		})
		if err != nil {
			return err
		}
		logDuplicate(ctx, env, res.Duplicate)

	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return nil
}

// Permanent reports whether err will recur on redelivery, in which case the
// message is dead-lettered instead of retried. A message that overtook the
// revision it depends on is not permanent.
func Permanent(err error) bool {
	var (
		invalid    *models.ValidationError
		mismatch   *models.AmountMismatchError
		over       *models.OverpaymentError
		decode     *decodeError
		outOfOrder *ledger.OutOfOrderError
	)
	if errors.As(err, &outOfOrder) {
		return false
	}
	return errors.As(err, &invalid) ||
		errors.As(err, &mismatch) ||
		errors.As(err, &over) ||
		errors.As(err, &decode) ||
		errors.Is(err, storage.ErrNotFound)
}

// decodeError marks a body that could not be parsed.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode message: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func logDuplicate(ctx context.Context, env *Envelope, dup bool) {
	if dup {
		slog.DebugContext(ctx, "Redelivered message absorbed", "type", env.Type, "key", env.key())
	}
}

func expenseRequest(p *ExpensePayload) expense.Request {
	return expense.Request{
		ID:              p.ID,
		GroupID:         p.GroupID,
		PayerID:         p.PayerID,
		Amount:          p.Amount,
		Method:          p.Method,
		Participants:    p.Participants,
		Params:          p.Params,
		Description:     p.Description,
		Category:        p.Category,
		Notes:           p.Notes,
		ExpenseDate:     p.ExpenseDate,
		IsReimbursement: p.IsReimbursement,
		CreatedBy:       p.CreatedBy,
	}
}
