// Package expense turns expense submissions into ledger mutations: it checks
// membership, computes the split and applies or revises it on the ledger.
package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Request describes an expense as submitted. For Create the ID is optional;
// callers that retry must supply one. For Revise the ID is required.
type Request struct {
	ID           string
	GroupID      string
	PayerID      string
	Amount       money.Money
	Method       models.SplitMethod
	Participants []string
	Params       models.SplitParams

	Description     string
	Category        string
	Notes           string
	ExpenseDate     string
	IsReimbursement bool
	CreatedBy       string
}

// Result is the recorded expense revision and its shares.
type Result struct {
	Expense *models.Expense
	Shares  []models.ExpenseShare
	// Duplicate is set when the revision had already been applied; Expense
	// and Shares are then the stored ones.
	Duplicate bool
}

// Recorder records expenses on the ledger.
type Recorder struct {
	ledger  *ledger.Ledger
	store   storage.LedgerStore
	members storage.Membership
	now     func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(l *ledger.Ledger, store storage.LedgerStore, members storage.Membership) *Recorder {
	return &Recorder{ledger: l, store: store, members: members, now: time.Now}
}

// Preview computes the split for req without touching the ledger.
func Preview(req Request) (calculator.Split, error) {
	return calculator.Compute(req.Amount, req.Method, req.Participants, req.Params)
}

// Create records revision 1 of a new expense.
func (r *Recorder) Create(ctx context.Context, req Request) (*Result, error) {
	if req.ID != "" {
		if res, ok, err := r.replayed(ctx, req, 1); err != nil || ok {
			return res, err
		}
	} else {
		req.ID = uuid.New().String()
	}

	split, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	now := r.now().Unix()
	exp := r.expense(req, 1)
	exp.CreatedAt = now
	exp.UpdatedAt = now

	out, err := r.ledger.ApplyExpense(ctx, exp, split)
	if err != nil {
		return nil, err
	}
	if out.Duplicate {
		return r.loadReplay(ctx, req, 1)
	}

	slog.InfoContext(ctx, "Expense recorded", "expense_id", exp.ID, "group_id", exp.GroupID, "amount", exp.Amount)
	return &Result{Expense: exp, Shares: ledger.ShareRows(exp, split)}, nil
}

// Revise replaces an expense with req as the given revision, which must be
// the stored revision plus one. Replaying an applied revision returns it.
func (r *Recorder) Revise(ctx context.Context, req Request, revision int) (*Result, error) {
	if req.ID == "" {
		return nil, models.Invalid("expense_id", "must not be empty")
	}
	if res, ok, err := r.replayed(ctx, req, revision); err != nil || ok {
		return res, err
	}

	split, err := r.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	exp := r.expense(req, revision)
	exp.UpdatedAt = r.now().Unix()

	out, err := r.ledger.ReplaceExpense(ctx, exp, split)
	if err != nil {
		return nil, err
	}
	if out.Duplicate {
		return r.loadReplay(ctx, req, revision)
	}

	// ReplaceExpense keeps the original creation fields.
	stored, err := r.store.GetExpense(ctx, exp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense revised", "expense_id", exp.ID, "group_id", exp.GroupID, "revision", revision)
	return &Result{Expense: stored, Shares: ledger.ShareRows(exp, split)}, nil
}

// Delete retracts an expense. A non-zero revision pins the revision being
// deleted. Deleting a deleted expense is a no-op.
func (r *Recorder) Delete(ctx context.Context, groupID, expenseID string, revision int) (ledger.Outcome, error) {
	out, err := r.ledger.RetractExpense(ctx, groupID, expenseID, revision)
	if err != nil {
		return out, err
	}
	if !out.Duplicate {
		slog.InfoContext(ctx, "Expense deleted", "expense_id", expenseID, "group_id", groupID)
	}
	return out, nil
}

// Shares returns the shares of an expense's current revision.
func (r *Recorder) Shares(ctx context.Context, expenseID string) (*Result, error) {
	exp, err := r.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	res, err := r.load(ctx, expenseID, exp.Revision)
	if err != nil {
		return nil, err
	}
	res.Duplicate = false
	return res, nil
}

// prepare validates membership and computes the split.
func (r *Recorder) prepare(ctx context.Context, req Request) (calculator.Split, error) {
	if req.GroupID == "" {
		return nil, models.Invalid("group_id", "must not be empty")
	}
	if req.PayerID == "" {
		return nil, models.Invalid("payer_id", "must not be empty")
	}
	if req.ExpenseDate != "" {
		if _, err := time.Parse(time.DateOnly, req.ExpenseDate); err != nil {
			return nil, models.Invalid("expense_date", "must be YYYY-MM-DD, got %q", req.ExpenseDate)
		}
	}

	split, err := calculator.Compute(req.Amount, req.Method, req.Participants, req.Params)
	if err != nil {
		slog.WarnContext(ctx, "Expense rejected", "group_id", req.GroupID, "error", err)
		return nil, err
	}

	if err := r.requireMember(ctx, req.GroupID, "payer_id", req.PayerID); err != nil {
		return nil, err
	}
	for _, p := range req.Participants {
		if err := r.requireMember(ctx, req.GroupID, "participants", p); err != nil {
			return nil, err
		}
	}
	return split, nil
}

func (r *Recorder) requireMember(ctx context.Context, groupID, field, userID string) error {
	ok, err := r.members.IsActiveMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return models.Invalid(field, "%s is not an active member of group %s", userID, groupID)
	}
	return nil
}

// replayed reports whether revision of req.ID was already applied and,
// if so, loads it.
func (r *Recorder) replayed(ctx context.Context, req Request, revision int) (*Result, bool, error) {
	applied, err := r.store.HasEvent(ctx, models.ExpenseEventID(req.ID, revision))
	if err != nil {
		return nil, false, fmt.Errorf("failed to check event: %w", err)
	}
	if !applied {
		return nil, false, nil
	}
	res, err := r.loadReplay(ctx, req, revision)
	if err != nil {
		return nil, false, err
	}
	slog.DebugContext(ctx, "Expense replay absorbed", "expense_id", req.ID, "revision", revision)
	return res, true, nil
}

// loadReplay loads an applied revision and checks that req describes it.
// The group must always match. Payer, amount and participants are compared
// while the revision is still the current one.
func (r *Recorder) loadReplay(ctx context.Context, req Request, revision int) (*Result, error) {
	res, err := r.load(ctx, req.ID, revision)
	if err != nil {
		return nil, err
	}
	stored := res.Expense
	same := stored.GroupID == req.GroupID
	if same && stored.Revision == revision {
		same = stored.PayerID == req.PayerID &&
			stored.Amount == req.Amount &&
			slices.Equal(stored.Participants, req.Participants)
	}
	if !same {
		return nil, models.Invalid("expense_id", "%s revision %d was already recorded with different details", req.ID, revision)
	}
	return res, nil
}

// load returns the stored expense with the shares of revision.
func (r *Recorder) load(ctx context.Context, expenseID string, revision int) (*Result, error) {
	exp, err := r.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense: %w", err)
	}
	rows, err := r.store.ExpenseShares(ctx, expenseID, revision)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load shares: %w", err)
	}
	return &Result{Expense: exp, Shares: rows, Duplicate: true}, nil
}

func (r *Recorder) expense(req Request, revision int) *models.Expense {
	return &models.Expense{
		ID:              req.ID,
		GroupID:         req.GroupID,
		PayerID:         req.PayerID,
		Amount:          req.Amount,
		Method:          req.Method,
		Participants:    append([]string(nil), req.Participants...),
		Params:          req.Params,
		Description:     req.Description,
		Category:        req.Category,
		Notes:           req.Notes,
		ExpenseDate:     req.ExpenseDate,
		IsReimbursement: req.IsReimbursement,
		Revision:        revision,
		Status:          models.ExpenseActive,
		CreatedBy:       req.CreatedBy,
	}
}
