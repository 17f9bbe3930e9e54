// Package memory provides an in-memory implementation of storage.Store
// for tests and development.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type pairKey struct {
	groupID string
	lo, hi  string
}

type shareKey struct {
	expenseID string
	revision  int
}

// Store keeps everything in maps behind one RWMutex. Commit holds the write
// lock for the whole transition, so readers see either none or all of it.
type Store struct {
	mu sync.RWMutex

	seq         int64
	events      map[string]models.LedgerEvent
	groupEvents map[string][]string
	balances    map[pairKey]money.Money
	expenses    map[string]models.Expense
	shares      map[shareKey][]models.ExpenseShare
	settlements map[string]models.Settlement
	members     map[string]map[string]*models.Member
}

// New creates an empty store.
func New() *Store {
	return &Store{
		events:      make(map[string]models.LedgerEvent),
		groupEvents: make(map[string][]string),
		balances:    make(map[pairKey]money.Money),
		expenses:    make(map[string]models.Expense),
		shares:      make(map[shareKey][]models.ExpenseShare),
		settlements: make(map[string]models.Settlement),
		members:     make(map[string]map[string]*models.Member),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) HasEvent(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[eventID]
	return ok, nil
}

func (s *Store) Event(_ context.Context, eventID string) (*models.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, storage.ErrNotFound)
	}
	ev.Entries = slices.Clone(ev.Entries)
	return &ev, nil
}

func (s *Store) Events(_ context.Context, groupID string) ([]models.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.groupEvents[groupID]
	out := make([]models.LedgerEvent, 0, len(ids))
	for _, id := range ids {
		ev := s.events[id]
		ev.Entries = slices.Clone(ev.Entries)
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) GroupIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.groupEvents))
	for id := range s.groupEvents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) PairBalances(_ context.Context, groupID string) ([]storage.PairBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.PairBalance
	for k, net := range s.balances {
		if k.groupID == groupID {
			out = append(out, storage.PairBalance{Lo: k.lo, Hi: k.hi, Net: net})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lo != out[j].Lo {
			return out[i].Lo < out[j].Lo
		}
		return out[i].Hi < out[j].Hi
	})
	return out, nil
}

func (s *Store) UserPairBalances(_ context.Context, userID string) ([]storage.GroupPairBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.GroupPairBalance
	for k, net := range s.balances {
		if k.lo == userID || k.hi == userID {
			out = append(out, storage.GroupPairBalance{
				GroupID:     k.groupID,
				PairBalance: storage.PairBalance{Lo: k.lo, Hi: k.hi, Net: net},
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Lo != b.Lo {
			return a.Lo < b.Lo
		}
		return a.Hi < b.Hi
	})
	return out, nil
}

// Commit applies the transition under the write lock. Idempotency keys are
// all checked before anything is written.
func (s *Store) Commit(_ context.Context, c storage.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range c.Events {
		if _, exists := s.events[ev.ID]; exists {
			return fmt.Errorf("event %s: %w", ev.ID, storage.ErrDuplicateEvent)
		}
	}
	for _, b := range c.Balances {
		if b.Lo >= b.Hi {
			return fmt.Errorf("pair %s/%s is not normalized", b.Lo, b.Hi)
		}
	}

	for _, ev := range c.Events {
		s.seq++
		ev.Seq = s.seq
		ev.Entries = slices.Clone(ev.Entries)
		s.events[ev.ID] = ev
		s.groupEvents[c.GroupID] = append(s.groupEvents[c.GroupID], ev.ID)
	}
	for _, b := range c.Balances {
		k := pairKey{groupID: c.GroupID, lo: b.Lo, hi: b.Hi}
		if b.Net == 0 {
			delete(s.balances, k)
		} else {
			s.balances[k] = b.Net
		}
	}
	if c.Expense != nil {
		exp := *c.Expense
		exp.Participants = slices.Clone(exp.Participants)
		s.expenses[exp.ID] = exp
	}
	if len(c.Shares) > 0 {
		k := shareKey{expenseID: c.Shares[0].ExpenseID, revision: c.Shares[0].Revision}
		s.shares[k] = slices.Clone(c.Shares)
	}
	if c.Settlement != nil {
		s.settlements[c.Settlement.ID] = *c.Settlement
	}
	return nil
}

func (s *Store) GetExpense(_ context.Context, expenseID string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	exp.Participants = slices.Clone(exp.Participants)
	return &exp, nil
}

func (s *Store) ListExpenses(_ context.Context, groupID string, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Expense
	for _, exp := range s.expenses {
		if exp.GroupID == groupID && matchExpense(&exp, filter) {
			exp.Participants = slices.Clone(exp.Participants)
			out = append(out, &exp)
		}
	}
	sortNewestFirst(out, func(e *models.Expense) (int64, string) { return e.CreatedAt, e.ID })
	return page(out, filter.Limit, filter.Offset), nil
}

func matchExpense(exp *models.Expense, f storage.ExpenseFilter) bool {
	if f.UserID != "" && exp.PayerID != f.UserID && !slices.Contains(exp.Participants, f.UserID) {
		return false
	}
	if f.Category != "" && exp.Category != f.Category {
		return false
	}
	if (f.From != "" || f.To != "") && exp.ExpenseDate == "" {
		return false
	}
	if f.From != "" && exp.ExpenseDate < f.From {
		return false
	}
	if f.To != "" && exp.ExpenseDate > f.To {
		return false
	}
	return true
}

func sortNewestFirst[T any](items []T, key func(T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti != tj {
			return ti > tj
		}
		return idi < idj
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// UserShares joins each active expense's current shares on userID.
func (s *Store) UserShares(_ context.Context, userID, groupID string) ([]models.UserShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var exps []*models.Expense
	for _, exp := range s.expenses {
		if exp.Status == models.ExpenseActive && (groupID == "" || exp.GroupID == groupID) {
			exps = append(exps, &exp)
		}
	}
	sortNewestFirst(exps, func(e *models.Expense) (int64, string) { return e.CreatedAt, e.ID })

	var out []models.UserShare
	for _, exp := range exps {
		for _, sh := range s.shares[shareKey{expenseID: exp.ID, revision: exp.Revision}] {
			if sh.ParticipantID != userID {
				continue
			}
			out = append(out, models.UserShare{
				ExpenseShare: sh,
				GroupID:      exp.GroupID,
				PayerID:      exp.PayerID,
				Description:  exp.Description,
				Category:     exp.Category,
				ExpenseDate:  exp.ExpenseDate,
			})
		}
	}
	return out, nil
}

func (s *Store) ExpenseShares(_ context.Context, expenseID string, revision int) ([]models.ExpenseShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shares, ok := s.shares[shareKey{expenseID: expenseID, revision: revision}]
	if !ok {
		return nil, fmt.Errorf("shares of expense %s revision %d: %w", expenseID, revision, storage.ErrNotFound)
	}
	return slices.Clone(shares), nil
}

func (s *Store) GetSettlement(_ context.Context, settlementID string) (*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settlements[settlementID]
	if !ok {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	return &st, nil
}

func (s *Store) ListSettlements(_ context.Context, groupID string, filter storage.SettlementFilter) ([]*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Settlement
	for _, st := range s.settlements {
		if st.GroupID == groupID && matchSettlement(&st, filter) {
			out = append(out, &st)
		}
	}
	sortNewestFirst(out, func(st *models.Settlement) (int64, string) { return st.CreatedAt, st.ID })
	return page(out, filter.Limit, filter.Offset), nil
}

func matchSettlement(st *models.Settlement, f storage.SettlementFilter) bool {
	if f.UserID == "" {
		return true
	}
	if f.Counterparty != "" {
		return (st.PayerID == f.UserID && st.PayeeID == f.Counterparty) ||
			(st.PayerID == f.Counterparty && st.PayeeID == f.UserID)
	}
	return st.PayerID == f.UserID || st.PayeeID == f.UserID
}

func (s *Store) IsActiveMember(_ context.Context, groupID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[groupID][userID]
	return ok && m.Active, nil
}

func (s *Store) ActiveMembers(_ context.Context, groupID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, m := range s.members[groupID] {
		if m.Active {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AddMembers(_ context.Context, groupID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.members[groupID]
	if !ok {
		group = make(map[string]*models.Member)
		s.members[groupID] = group
	}
	now := time.Now().Unix()
	for _, id := range userIDs {
		if m, ok := group[id]; ok {
			m.Active = true
			continue
		}
		group[id] = &models.Member{GroupID: groupID, UserID: id, Active: true, JoinedAt: now}
	}
	return nil
}

func (s *Store) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[groupID][userID]
	if !ok {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrNotFound)
	}
	m.Active = false
	return nil
}
