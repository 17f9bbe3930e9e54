package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

func (l *Ledger) load(ctx context.Context, groupID string) (*Matrix, error) {
	rows, err := l.store.PairBalances(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	return matrixFrom(rows)
}

// Balance returns what a owes b in groupID. Positive means a owes b,
// negative means b owes a, zero means they are square.
func (l *Ledger) Balance(ctx context.Context, groupID, a, b string) (money.Money, error) {
	m, err := l.load(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return m.Balance(a, b), nil
}

// GroupBalances returns the canonical edge set of a group.
func (l *Ledger) GroupBalances(ctx context.Context, groupID string) ([]models.Edge, error) {
	m, err := l.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return m.Edges(groupID), nil
}

// UserBalances returns the edges of a group that involve userID.
func (l *Ledger) UserBalances(ctx context.Context, groupID, userID string) ([]models.Edge, error) {
	edges, err := l.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var out []models.Edge
	for _, e := range edges {
		if e.Debtor == userID || e.Creditor == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// AllUserBalances returns the edges involving userID in every group,
// ordered by group.
func (l *Ledger) AllUserBalances(ctx context.Context, userID string) ([]models.Edge, error) {
	rows, err := l.store.UserPairBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	edges := make([]models.Edge, 0, len(rows))
	for _, r := range rows {
		if r.Net == 0 {
			continue
		}
		edges = append(edges, pair{lo: r.Lo, hi: r.Hi}.edge(r.GroupID, r.Net))
	}
	return edges, nil
}

// NetBalance returns userID's overall position: positive when the rest of
// the group owes them, negative when they owe the group.
func (l *Ledger) NetBalance(ctx context.Context, groupID, userID string) (money.Money, error) {
	edges, err := l.UserBalances(ctx, groupID, userID)
	if err != nil {
		return 0, err
	}
	var net money.Money
	for _, e := range edges {
		if e.Creditor == userID {
			net += e.Amount
		} else {
			net -= e.Amount
		}
	}
	return net, nil
}

// Summary returns per-member totals for a group.
func (l *Ledger) Summary(ctx context.Context, groupID string) ([]calculator.MemberBalance, error) {
	edges, err := l.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.MemberBalances(edges), nil
}

// Simplified returns a reduced set of transfers that settles the group. It
// is a view only; the ledger itself is never rewritten.
func (l *Ledger) Simplified(ctx context.Context, groupID string) ([]models.Edge, error) {
	edges, err := l.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.Simplify(groupID, edges), nil
}

// Verify replays the group's history and compares it with the stored
// balances. It holds the group lock so history and balances are read from
// the same state.
func (l *Ledger) Verify(ctx context.Context, groupID string) error {
	unlock := l.locks.lock(groupID)
	defer unlock()

	events, err := l.store.Events(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	rows, err := l.store.PairBalances(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load balances: %w", err)
	}

	stored := make([]models.Edge, 0, len(rows))
	for _, r := range rows {
		// A stored zero row becomes a zero edge, which Validate reports.
		stored = append(stored, pair{lo: r.Lo, hi: r.Hi}.edge(groupID, r.Net))
	}
	return Validate(groupID, events, stored)
}

// GroupIDs lists groups with ledger history.
func (l *Ledger) GroupIDs(ctx context.Context) ([]string, error) {
	return l.store.GroupIDs(ctx)
}
