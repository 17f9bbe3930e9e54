// Package ledger maintains the per-group pairwise balance ledger.
//
// Every mutation is an event with an idempotency key. The ledger serializes
// writers per group, absorbs replays of keys it has already applied, nets
// the event's entries into the affected pairs and hands the resulting
// transition to the store as one atomic commit. Reads go straight to the
// store, which only ever exposes whole commits.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Outcome describes the result of a mutation.
type Outcome struct {
	// EventID is the idempotency key of the (last) event written.
	EventID string
	// Duplicate is set when the event had already been applied and the call
	// changed nothing.
	Duplicate bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithVerification replays the group's full history before every commit and
// refuses to write a transition whose result would diverge from it.
func WithVerification(enabled bool) Option {
	return func(l *Ledger) { l.verify = enabled }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is the only component that mutates balance state.
type Ledger struct {
	store  storage.LedgerStore
	locks  *groupLocks
	verify bool
	now    func() time.Time
}

// New creates a Ledger over store.
func New(store storage.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		locks: newGroupLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SettlementGuard inspects the amount the payer currently owes the payee
// (negative when the payee owes the payer) before a settlement is applied.
// Returning an error aborts the settlement without touching the ledger.
type SettlementGuard func(outstanding money.Money) error

// ApplyExpense applies the first revision of an expense. split must be the
// calculator output for exp; its total must equal exp.Amount. Replaying the
// same expense id and revision is a no-op.
func (l *Ledger) ApplyExpense(ctx context.Context, exp *models.Expense, split calculator.Split) (Outcome, error) {
	if err := checkExpense(exp, split); err != nil {
		return Outcome{}, err
	}
	eventID := models.ExpenseEventID(exp.ID, exp.Revision)

	unlock := l.locks.lock(exp.GroupID)
	defer unlock()

	if dup, err := l.store.HasEvent(ctx, eventID); err != nil {
		return Outcome{}, fmt.Errorf("failed to check event: %w", err)
	} else if dup {
		return l.duplicate(ctx, models.EventExpense, eventID)
	}

	if _, err := l.store.GetExpense(ctx, exp.ID); err == nil {
		return Outcome{}, models.Invalid("expense_id", "expense %s already exists; submit a new revision instead", exp.ID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Outcome{}, fmt.Errorf("failed to look up expense: %w", err)
	}

	applied := *exp
	applied.Status = models.ExpenseActive
	ev := l.event(exp.GroupID, eventID, models.EventExpense, exp.ID, expenseEntries(exp.PayerID, split))

	return l.commit(ctx, exp.GroupID, []models.LedgerEvent{ev}, func(c *storage.Commit) {
		c.Expense = &applied
		c.Shares = ShareRows(exp, split)
	})
}

// ReplaceExpense retracts the current revision of an expense and applies
// exp in its place as one atomic transition. exp.Revision must be exactly
// one above the stored revision. Replaying the same revision is a no-op.
func (l *Ledger) ReplaceExpense(ctx context.Context, exp *models.Expense, split calculator.Split) (Outcome, error) {
	if err := checkExpense(exp, split); err != nil {
		return Outcome{}, err
	}
	eventID := models.ExpenseEventID(exp.ID, exp.Revision)

	unlock := l.locks.lock(exp.GroupID)
	defer unlock()

	if dup, err := l.store.HasEvent(ctx, eventID); err != nil {
		return Outcome{}, fmt.Errorf("failed to check event: %w", err)
	} else if dup {
		return l.duplicate(ctx, models.EventExpense, eventID)
	}

	current, err := l.current(ctx, exp.GroupID, exp.ID, exp.Revision-1)
	if err != nil {
		return Outcome{}, err
	}
	switch {
	case current.Status == models.ExpenseRetracted:
		return Outcome{}, models.Invalid("expense_id", "expense %s was deleted", exp.ID)
	case exp.Revision > current.Revision+1:
		return Outcome{}, &OutOfOrderError{ExpenseID: exp.ID, Current: current.Revision, Needed: exp.Revision - 1}
	case exp.Revision <= current.Revision:
		return Outcome{}, models.Invalid("revision", "expected revision %d, got %d", current.Revision+1, exp.Revision)
	}

	retraction, err := l.retraction(ctx, current)
	if err != nil {
		return Outcome{}, err
	}

	applied := *exp
	applied.Status = models.ExpenseActive
	applied.CreatedAt = current.CreatedAt
	applied.CreatedBy = current.CreatedBy
	ev := l.event(exp.GroupID, eventID, models.EventExpense, exp.ID, expenseEntries(exp.PayerID, split))

	return l.commit(ctx, exp.GroupID, []models.LedgerEvent{retraction, ev}, func(c *storage.Commit) {
		c.Expense = &applied
		c.Shares = ShareRows(exp, split)
	})
}

// RetractExpense removes the ledger effect of an expense's current revision
// and marks it deleted. A non-zero revision names the revision the caller
// means to delete: until it is applied the call fails with
// *OutOfOrderError, and once a later revision exists it is rejected.
// Retracting an already deleted expense is a no-op.
func (l *Ledger) RetractExpense(ctx context.Context, groupID, expenseID string, revision int) (Outcome, error) {
	unlock := l.locks.lock(groupID)
	defer unlock()

	current, err := l.current(ctx, groupID, expenseID, max(revision, 1))
	if err != nil {
		return Outcome{}, err
	}
	deleted := current.Status == models.ExpenseRetracted
	switch {
	case revision > current.Revision && deleted:
		return Outcome{}, models.Invalid("revision", "expense %s was deleted at revision %d", expenseID, current.Revision)
	case revision > current.Revision:
		return Outcome{}, &OutOfOrderError{ExpenseID: expenseID, Current: current.Revision, Needed: revision}
	case revision > 0 && revision < current.Revision && !deleted:
		return Outcome{}, models.Invalid("revision", "expense %s is at revision %d, not %d", expenseID, current.Revision, revision)
	}
	eventID := models.RetractionEventID(expenseID, current.Revision)
	if deleted {
		return l.duplicate(ctx, models.EventRetraction, eventID)
	}

	retraction, err := l.retraction(ctx, current)
	if err != nil {
		return Outcome{}, err
	}

	retracted := *current
	retracted.Status = models.ExpenseRetracted
	retracted.UpdatedAt = l.now().Unix()

	return l.commit(ctx, groupID, []models.LedgerEvent{retraction}, func(c *storage.Commit) {
		c.Expense = &retracted
	})
}

// current loads the stored expense for a revision or deletion in groupID.
// An unknown expense is reported as *OutOfOrderError needing the given
// revision; an expense of another group is not found.
func (l *Ledger) current(ctx context.Context, groupID, expenseID string, needed int) (*models.Expense, error) {
	exp, err := l.store.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &OutOfOrderError{ExpenseID: expenseID, Needed: needed}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense: %w", err)
	}
	if exp.GroupID != groupID {
		return nil, fmt.Errorf("expense %s in group %s: %w", expenseID, groupID, storage.ErrNotFound)
	}
	return exp, nil
}

// ApplySettlement records that s.PayerID paid s.PayeeID s.Amount. guard, if
// not nil, sees the outstanding debt under the group lock and may veto the
// settlement. Replaying the same settlement id is a no-op and skips guard.
func (l *Ledger) ApplySettlement(ctx context.Context, s *models.Settlement, guard SettlementGuard) (Outcome, error) {
	switch {
	case s.ID == "":
		return Outcome{}, models.Invalid("settlement_id", "must not be empty")
	case s.GroupID == "":
		return Outcome{}, models.Invalid("group_id", "must not be empty")
	case s.Amount <= 0:
		return Outcome{}, models.Invalid("amount", "must be positive, got %s", s.Amount)
	case s.PayerID == "" || s.PayeeID == "":
		return Outcome{}, models.Invalid("payer_id", "payer and payee are required")
	case s.PayerID == s.PayeeID:
		return Outcome{}, models.Invalid("payee_id", "payer and payee must differ")
	}
	eventID := models.SettlementEventID(s.ID)

	unlock := l.locks.lock(s.GroupID)
	defer unlock()

	if dup, err := l.store.HasEvent(ctx, eventID); err != nil {
		return Outcome{}, fmt.Errorf("failed to check event: %w", err)
	} else if dup {
		return l.duplicate(ctx, models.EventSettlement, eventID)
	}

	if guard != nil {
		rows, err := l.store.PairBalances(ctx, s.GroupID)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to load balances: %w", err)
		}
		m, err := matrixFrom(rows)
		if err != nil {
			return Outcome{}, err
		}
		if err := guard(m.Balance(s.PayerID, s.PayeeID)); err != nil {
			metrics.LedgerEvents.WithLabelValues(string(models.EventSettlement), metrics.OutcomeRejected).Inc()
			return Outcome{}, err
		}
	}

	recorded := *s
	// Paying down a debt is an obligation in the other direction.
	entries := []models.Entry{{Debtor: s.PayeeID, Creditor: s.PayerID, Amount: s.Amount}}
	ev := l.event(s.GroupID, eventID, models.EventSettlement, s.ID, entries)

	return l.commit(ctx, s.GroupID, []models.LedgerEvent{ev}, func(c *storage.Commit) {
		c.Settlement = &recorded
	})
}

// commit nets events into the group's current balances and persists the
// transition. Must be called with the group lock held.
func (l *Ledger) commit(ctx context.Context, groupID string, events []models.LedgerEvent, fill func(*storage.Commit)) (Outcome, error) {
	start := time.Now()
	defer func() { metrics.CommitDuration.Observe(time.Since(start).Seconds()) }()

	kind := string(events[len(events)-1].Kind)
	last := events[len(events)-1].ID

	rows, err := l.store.PairBalances(ctx, groupID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load balances: %w", err)
	}
	m, err := matrixFrom(rows)
	if err != nil {
		return Outcome{}, err
	}
	for _, ev := range events {
		if err := m.Apply(ev.Entries); err != nil {
			return Outcome{}, fmt.Errorf("failed to apply event %s: %w", ev.ID, err)
		}
	}

	if l.verify {
		history, err := l.store.Events(ctx, groupID)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to load history: %w", err)
		}
		if err := Validate(groupID, append(history, events...), m.Edges(groupID)); err != nil {
			metrics.LedgerEvents.WithLabelValues(kind, metrics.OutcomeFailed).Inc()
			slog.Error("Refusing inconsistent ledger commit", "group_id", groupID, "event_id", last, "error", err)
			return Outcome{}, err
		}
	}

	c := storage.Commit{GroupID: groupID, Events: events, Balances: m.Changes()}
	fill(&c)

	if err := l.store.Commit(ctx, c); err != nil {
		if errors.Is(err, storage.ErrDuplicateEvent) {
			return l.duplicate(ctx, events[len(events)-1].Kind, last)
		}
		metrics.LedgerEvents.WithLabelValues(kind, metrics.OutcomeFailed).Inc()
		return Outcome{}, fmt.Errorf("failed to commit ledger transition: %w", err)
	}

	for _, ev := range events {
		metrics.LedgerEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeApplied).Inc()
	}
	slog.Info("Ledger event applied", "group_id", groupID, "event_id", last, "pairs", len(c.Balances))
	return Outcome{EventID: last}, nil
}

func (l *Ledger) duplicate(ctx context.Context, kind models.EventKind, eventID string) (Outcome, error) {
	metrics.LedgerEvents.WithLabelValues(string(kind), metrics.OutcomeDuplicate).Inc()
	slog.DebugContext(ctx, "Duplicate ledger event absorbed", "event_id", eventID)
	return Outcome{EventID: eventID, Duplicate: true}, nil
}

func (l *Ledger) event(groupID, id string, kind models.EventKind, subjectID string, entries []models.Entry) models.LedgerEvent {
	return models.LedgerEvent{
		ID:        id,
		GroupID:   groupID,
		Kind:      kind,
		SubjectID: subjectID,
		AppliedAt: l.now().UnixNano(),
		Entries:   entries,
	}
}

// retraction builds the event that reverses the applied revision of exp.
func (l *Ledger) retraction(ctx context.Context, exp *models.Expense) (models.LedgerEvent, error) {
	applied, err := l.store.Event(ctx, models.ExpenseEventID(exp.ID, exp.Revision))
	if err != nil {
		return models.LedgerEvent{}, fmt.Errorf("failed to load applied revision: %w", err)
	}
	reversed := make([]models.Entry, len(applied.Entries))
	for i, e := range applied.Entries {
		reversed[i] = models.Entry{Debtor: e.Creditor, Creditor: e.Debtor, Amount: e.Amount}
	}
	return l.event(exp.GroupID, models.RetractionEventID(exp.ID, exp.Revision),
		models.EventRetraction, exp.ID, reversed), nil
}

func checkExpense(exp *models.Expense, split calculator.Split) error {
	switch {
	case exp.ID == "":
		return models.Invalid("expense_id", "must not be empty")
	case exp.GroupID == "":
		return models.Invalid("group_id", "must not be empty")
	case exp.PayerID == "":
		return models.Invalid("payer_id", "must not be empty")
	case exp.Amount <= 0:
		return models.Invalid("amount", "must be positive, got %s", exp.Amount)
	case exp.Revision < 1:
		return models.Invalid("revision", "must be at least 1, got %d", exp.Revision)
	case len(split) == 0:
		return models.Invalid("participants", "must not be empty")
	}
	if total := split.Total(); total != exp.Amount {
		return &models.AmountMismatchError{Total: exp.Amount, Sum: total}
	}
	return nil
}

// expenseEntries turns shares into obligations towards the payer. The
// payer's own share and zero shares produce nothing.
func expenseEntries(payer string, split calculator.Split) []models.Entry {
	var entries []models.Entry
	for _, s := range split {
		if s.Participant == payer || s.Amount == 0 {
			continue
		}
		entries = append(entries, models.Entry{Debtor: s.Participant, Creditor: payer, Amount: s.Amount})
	}
	return entries
}

// ShareRows lays out split as the stored share rows of exp's revision, in
// participant order.
func ShareRows(exp *models.Expense, split calculator.Split) []models.ExpenseShare {
	rows := make([]models.ExpenseShare, len(split))
	for i, s := range split {
		rows[i] = models.ExpenseShare{
			ExpenseID:     exp.ID,
			Revision:      exp.Revision,
			ParticipantID: s.Participant,
			Position:      i,
			Amount:        s.Amount,
		}
	}
	return rows
}
