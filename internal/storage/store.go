// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEvent is returned by Commit when one of its events was
	// already applied. Nothing is written in that case.
	ErrDuplicateEvent = errors.New("event already applied")
)

// PairBalance is the signed balance of an unordered pair of members.
// Lo sorts before Hi; a positive Net means Lo owes Hi, a negative Net means
// Hi owes Lo. A zero Net means the pair has no balance row.
type PairBalance struct {
	Lo  string
	Hi  string
	Net money.Money
}

// GroupPairBalance is a PairBalance tagged with its group.
type GroupPairBalance struct {
	GroupID string
	PairBalance
}

// ExpenseFilter narrows ListExpenses. Zero fields match everything.
type ExpenseFilter struct {
	// UserID matches expenses the user paid for or takes part in.
	UserID   string
	Category string
	// From and To bound ExpenseDate (YYYY-MM-DD), both inclusive.
	// Undated expenses never match a bounded range.
	From   string
	To     string
	Limit  int
	Offset int
}

// SettlementFilter narrows ListSettlements. Zero fields match everything.
type SettlementFilter struct {
	// UserID matches settlements the user paid or received.
	UserID string
	// Counterparty, with UserID, keeps only settlements between the two.
	Counterparty string
	Limit        int
	Offset       int
}

// Commit is one atomic ledger transition. Either every part is persisted or
// none is, and readers never observe a partially applied commit.
type Commit struct {
	GroupID string

	// Events are the ledger events applied by this commit, in order.
	Events []models.LedgerEvent

	// Balances holds the new value of every pair touched by Events.
	// Pairs with Net == 0 are removed.
	Balances []PairBalance

	// Expense and Shares are upserted with the events when set.
	Expense *models.Expense
	Shares  []models.ExpenseShare

	// Settlement is inserted with the events when set.
	Settlement *models.Settlement
}

// LedgerStore defines the persistence operations the ledger needs.
// This abstraction allows swapping storage backends (SQLite, memory)
// without changing the ledger.
type LedgerStore interface {
	// HasEvent reports whether an event with this id was committed.
	HasEvent(ctx context.Context, eventID string) (bool, error)

	// Event returns a committed event with its entries.
	Event(ctx context.Context, eventID string) (*models.LedgerEvent, error)

	// Events returns every event of a group ordered by sequence.
	Events(ctx context.Context, groupID string) ([]models.LedgerEvent, error)

	// GroupIDs lists every group that has at least one event.
	GroupIDs(ctx context.Context) ([]string, error)

	// PairBalances returns the stored non-zero pair balances of a group.
	PairBalances(ctx context.Context, groupID string) ([]PairBalance, error)

	// UserPairBalances returns every stored pair balance involving userID,
	// across groups, ordered by group.
	UserPairBalances(ctx context.Context, userID string) ([]GroupPairBalance, error)

	// Commit persists a ledger transition atomically.
	// Returns ErrDuplicateEvent if any of its event ids already exists.
	Commit(ctx context.Context, c Commit) error

	// GetExpense returns the latest revision of an expense.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns the expenses of a group matching filter, newest first.
	ListExpenses(ctx context.Context, groupID string, filter ExpenseFilter) ([]*models.Expense, error)

	// ExpenseShares returns the shares of one expense revision in participant order.
	ExpenseShares(ctx context.Context, expenseID string, revision int) ([]models.ExpenseShare, error)

	// UserShares returns userID's shares of the current revision of every
	// active expense, newest first. An empty groupID means every group.
	UserShares(ctx context.Context, userID, groupID string) ([]models.UserShare, error)

	// GetSettlement returns a settlement by id.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlements returns the settlements of a group matching filter, newest first.
	ListSettlements(ctx context.Context, groupID string, filter SettlementFilter) ([]*models.Settlement, error)
}

// Membership answers membership questions. Group management itself lives
// outside the ledger; these are the facts it supplies.
type Membership interface {
	// IsActiveMember reports whether userID is an active member of groupID.
	IsActiveMember(ctx context.Context, groupID, userID string) (bool, error)

	// ActiveMembers lists the active members of a group, sorted.
	ActiveMembers(ctx context.Context, groupID string) ([]string, error)
}

// MemberStore records membership facts pushed by the collaborator.
type MemberStore interface {
	Membership

	// AddMembers marks users as active members, reactivating former ones.
	AddMembers(ctx context.Context, groupID string, userIDs []string) error

	// RemoveMember marks a user inactive. Their balances are kept.
	RemoveMember(ctx context.Context, groupID, userID string) error
}

// Store is the full backend used by the server.
type Store interface {
	LedgerStore
	MemberStore

	// Close releases any resources held by the store.
	Close() error
}
