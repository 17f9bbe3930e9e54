package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

const group = "g1"

func newExpense(t *testing.T, id, payer string, amount money.Money, participants ...string) (*models.Expense, calculator.Split) {
	t.Helper()
	split, err := calculator.Compute(amount, models.SplitEqual, participants, models.SplitParams{})
	require.NoError(t, err)
	return &models.Expense{
		ID:           id,
		GroupID:      group,
		PayerID:      payer,
		Amount:       amount,
		Method:       models.SplitEqual,
		Participants: participants,
		Revision:     1,
	}, split
}

func settlement(id, payer, payee string, amount money.Money) *models.Settlement {
	return &models.Settlement{ID: id, GroupID: group, PayerID: payer, PayeeID: payee, Amount: amount}
}

func edge(debtor, creditor string, amount money.Money) models.Edge {
	return models.Edge{GroupID: group, Debtor: debtor, Creditor: creditor, Amount: amount}
}

func TestLedger_EndToEnd(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "dinner", "A", 1000, "A", "B", "C")
	assert.Equal(t, calculator.Split{
		{Participant: "A", Amount: 334},
		{Participant: "B", Amount: 333},
		{Participant: "C", Amount: 333},
	}, split)

	out, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Equal(t, "expense:dinner#1", out.EventID)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("B", "A", 333), edge("C", "A", 333)}, edges)

	out, err = l.ApplySettlement(ctx, settlement("s1", "B", "A", 333), nil)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	edges, err = l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("C", "A", 333)}, edges)

	// Redelivery of the same settlement changes nothing.
	out, err = l.ApplySettlement(ctx, settlement("s1", "B", "A", 333), nil)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	again, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, edges, again)

	require.NoError(t, l.Verify(ctx, group))
}

func TestLedger_ExpenseIdempotent(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 900, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	out, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	bal, err := l.Balance(ctx, group, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, money.Money(300), bal)

	bal, err = l.Balance(ctx, group, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, money.Money(-300), bal)
}

func TestLedger_PayerNotParticipant(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1001, "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("B", "A", 501), edge("C", "A", 500)}, edges)
}

func TestLedger_OnlyPayer(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 500, "A")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, edges)

	shares, err := l.store.ExpenseShares(ctx, "e1", 1)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, money.Money(500), shares[0].Amount)
}

func TestLedger_NettingFlipsDirection(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	e1, s1 := newExpense(t, "e1", "A", 200, "A", "B")
	_, err := l.ApplyExpense(ctx, e1, s1)
	require.NoError(t, err)

	e2, s2 := newExpense(t, "e2", "B", 600, "A", "B")
	_, err = l.ApplyExpense(ctx, e2, s2)
	require.NoError(t, err)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("A", "B", 200)}, edges)

	e3, s3 := newExpense(t, "e3", "A", 400, "A", "B")
	_, err = l.ApplyExpense(ctx, e3, s3)
	require.NoError(t, err)

	edges, err = l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, edges, "exact netting must drop the edge")
	require.NoError(t, l.Verify(ctx, group))
}

func TestLedger_SettlementGuard(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	var seen money.Money
	errVeto := errors.New("veto")
	_, err = l.ApplySettlement(ctx, settlement("s1", "C", "A", 500), func(outstanding money.Money) error {
		seen = outstanding
		return errVeto
	})
	require.ErrorIs(t, err, errVeto)
	assert.Equal(t, money.Money(333), seen)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("B", "A", 333), edge("C", "A", 333)}, edges)

	ok, err := l.store.HasEvent(ctx, models.SettlementEventID("s1"))
	require.NoError(t, err)
	assert.False(t, ok, "a vetoed settlement must not be recorded")
}

func TestLedger_OverpaymentFlipsEdge(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	_, err = l.ApplySettlement(ctx, settlement("s1", "C", "A", 500), nil)
	require.NoError(t, err)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("A", "C", 167), edge("B", "A", 333)}, edges)
	require.NoError(t, l.Verify(ctx, group))
}

func TestLedger_SettlementValidation(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	tests := []struct {
		name  string
		s     *models.Settlement
		field string
	}{
		{"zero amount", settlement("s1", "A", "B", 0), "amount"},
		{"negative amount", settlement("s1", "A", "B", -5), "amount"},
		{"self settlement", settlement("s1", "A", "A", 5), "payee_id"},
		{"missing id", settlement("", "A", "B", 5), "settlement_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.ApplySettlement(ctx, tt.s, nil)
			var invalid *models.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestLedger_ExpenseValidation(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B")
	exp.Amount = 999
	_, err := l.ApplyExpense(ctx, exp, split)
	var mismatch *models.AmountMismatchError
	require.ErrorAs(t, err, &mismatch)

	exp, split = newExpense(t, "e1", "A", 1000, "A", "B")
	_, err = l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	// Same id under a new revision must go through ReplaceExpense.
	exp2, split2 := newExpense(t, "e1", "A", 500, "A", "B")
	exp2.Revision = 2
	_, err = l.ApplyExpense(ctx, exp2, split2)
	var invalid *models.ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestLedger_ReplaceExpense(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	revised, revisedSplit := newExpense(t, "e1", "B", 600, "A", "B")
	revised.Revision = 2
	out, err := l.ReplaceExpense(ctx, revised, revisedSplit)
	require.NoError(t, err)
	assert.Equal(t, "expense:e1#2", out.EventID)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("A", "B", 300)}, edges)

	// Replay of revision 2 is absorbed.
	out, err = l.ReplaceExpense(ctx, revised, revisedSplit)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	// A revision ahead of the next one waits for the missing revision.
	skipped, skippedSplit := newExpense(t, "e1", "A", 100, "A", "B")
	skipped.Revision = 4
	_, err = l.ReplaceExpense(ctx, skipped, skippedSplit)
	var ahead *OutOfOrderError
	require.ErrorAs(t, err, &ahead)
	assert.Equal(t, OutOfOrderError{ExpenseID: "e1", Current: 2, Needed: 3}, *ahead)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	stored, err := l.store.GetExpense(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Revision)
	assert.Equal(t, "B", stored.PayerID)

	require.NoError(t, l.Verify(ctx, group))
}

func TestLedger_RetractExpense(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)
	_, err = l.ApplySettlement(ctx, settlement("s1", "B", "A", 100), nil)
	require.NoError(t, err)

	out, err := l.RetractExpense(ctx, group, "e1", 0)
	require.NoError(t, err)
	assert.Equal(t, "retract:e1#1", out.EventID)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("A", "B", 100)}, edges)

	out, err = l.RetractExpense(ctx, group, "e1", 0)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	revised, revisedSplit := newExpense(t, "e1", "A", 100, "A", "B")
	revised.Revision = 2
	_, err = l.ReplaceExpense(ctx, revised, revisedSplit)
	var invalid *models.ValidationError
	require.ErrorAs(t, err, &invalid)

	_, err = l.RetractExpense(ctx, group, "missing", 0)
	require.ErrorIs(t, err, storage.ErrNotFound)
	var ahead *OutOfOrderError
	require.ErrorAs(t, err, &ahead)

	_, err = l.RetractExpense(ctx, "other-group", "e1", 0)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, l.Verify(ctx, group))
}

func TestLedger_RetractPinnedRevision(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	// Deleting revision 2 waits until revision 2 exists.
	_, err = l.RetractExpense(ctx, group, "e1", 2)
	var ahead *OutOfOrderError
	require.ErrorAs(t, err, &ahead)
	assert.Equal(t, 1, ahead.Current)
	assert.Equal(t, 2, ahead.Needed)

	revised, revisedSplit := newExpense(t, "e1", "A", 600, "A", "B")
	revised.Revision = 2
	_, err = l.ReplaceExpense(ctx, revised, revisedSplit)
	require.NoError(t, err)

	// Revision 1 is no longer current.
	_, err = l.RetractExpense(ctx, group, "e1", 1)
	var invalid *models.ValidationError
	require.ErrorAs(t, err, &invalid)

	out, err := l.RetractExpense(ctx, group, "e1", 2)
	require.NoError(t, err)
	assert.Equal(t, "retract:e1#2", out.EventID)

	out, err = l.RetractExpense(ctx, group, "e1", 2)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	// Nothing can follow a deletion.
	_, err = l.RetractExpense(ctx, group, "e1", 3)
	require.ErrorAs(t, err, &invalid)

	edges, err := l.GroupBalances(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, edges)
	require.NoError(t, l.Verify(ctx, group))
}

// mutation is one step of a randomized history.
type mutation func(ctx context.Context, l *Ledger) error

func randomHistory(t *testing.T, rng *rand.Rand, n int) []mutation {
	t.Helper()
	members := []string{"A", "B", "C", "D", "E"}
	var steps []mutation
	for i := 0; i < n; i++ {
		payer := members[rng.Intn(len(members))]
		amount := money.Money(rng.Intn(5000) + 1)
		if rng.Intn(3) == 0 {
			payee := members[rng.Intn(len(members))]
			if payee == payer {
				continue
			}
			s := settlement(fmt.Sprintf("s%d", i), payer, payee, amount)
			steps = append(steps, func(ctx context.Context, l *Ledger) error {
				_, err := l.ApplySettlement(ctx, s, nil)
				return err
			})
			continue
		}
		k := rng.Intn(len(members)) + 1
		participants := append([]string(nil), members[:k]...)
		rng.Shuffle(len(participants), func(a, b int) { participants[a], participants[b] = participants[b], participants[a] })
		exp, split := newExpense(t, fmt.Sprintf("e%d", i), payer, amount, participants...)
		steps = append(steps, func(ctx context.Context, l *Ledger) error {
			_, err := l.ApplyExpense(ctx, exp, split)
			return err
		})
	}
	return steps
}

func TestLedger_OrderIndependence(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	steps := randomHistory(t, rng, 60)

	reference := New(memory.New())
	for _, step := range steps {
		require.NoError(t, step(ctx, reference))
	}
	want, err := reference.GroupBalances(ctx, group)
	require.NoError(t, err)

	var total money.Money
	for _, b := range calculator.MemberBalances(want) {
		total += b.Net
	}
	assert.Zero(t, total, "member nets must sum to zero")
	for _, e := range want {
		assert.NotEqual(t, e.Debtor, e.Creditor)
		assert.Positive(t, int64(e.Amount))
	}

	for trial := 0; trial < 5; trial++ {
		perm := rng.Perm(len(steps))
		l := New(memory.New())
		for _, i := range perm {
			require.NoError(t, steps[i](ctx, l))
		}
		// Apply everything a second time; every event is a duplicate.
		for _, i := range perm[:len(perm)/2] {
			require.NoError(t, steps[i](ctx, l))
		}
		got, err := l.GroupBalances(ctx, group)
		require.NoError(t, err)
		assert.Equal(t, want, got, "trial %d", trial)
		require.NoError(t, l.Verify(ctx, group))
	}
}

func TestLedger_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New(), WithVerification(true))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each settlement is delivered twice.
			s := settlement(fmt.Sprintf("s%d", i%20), "A", "B", money.Money(i%20+1))
			_, err := l.ApplySettlement(ctx, s, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	bal, err := l.Balance(ctx, group, "B", "A")
	require.NoError(t, err)
	// 1 + 2 + ... + 20
	assert.Equal(t, money.Money(210), bal)
	require.NoError(t, l.Verify(ctx, group))
}

func TestLedger_Reads(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	e1, s1 := newExpense(t, "e1", "A", 900, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, e1, s1)
	require.NoError(t, err)
	e2, s2 := newExpense(t, "e2", "B", 300, "B", "C")
	_, err = l.ApplyExpense(ctx, e2, s2)
	require.NoError(t, err)

	userEdges, err := l.UserBalances(ctx, group, "C")
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{edge("C", "A", 300), edge("C", "B", 150)}, userEdges)

	net, err := l.NetBalance(ctx, group, "A")
	require.NoError(t, err)
	assert.Equal(t, money.Money(600), net)

	net, err = l.NetBalance(ctx, group, "C")
	require.NoError(t, err)
	assert.Equal(t, money.Money(-450), net)

	summary, err := l.Summary(ctx, group)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "A", summary[0].MemberID)

	simplified, err := l.Simplified(ctx, group)
	require.NoError(t, err)
	var moved money.Money
	for _, e := range simplified {
		moved += e.Amount
	}
	assert.Equal(t, money.Money(600), moved)

	ids, err := l.GroupIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{group}, ids)
}

func TestLedger_AllUserBalances(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	e1, s1 := newExpense(t, "e1", "A", 900, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, e1, s1)
	require.NoError(t, err)

	e2, s2 := newExpense(t, "e2", "C", 200, "A", "C")
	e2.GroupID = "g2"
	_, err = l.ApplyExpense(ctx, e2, s2)
	require.NoError(t, err)

	edges, err := l.AllUserBalances(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{
		edge("B", "A", 300),
		edge("C", "A", 300),
		{GroupID: "g2", Debtor: "A", Creditor: "C", Amount: 100},
	}, edges)

	none, err := l.AllUserBalances(ctx, "Z")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLedger_VerifyDetectsDrift(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := New(store)

	exp, split := newExpense(t, "e1", "A", 1000, "A", "B", "C")
	_, err := l.ApplyExpense(ctx, exp, split)
	require.NoError(t, err)

	// Corrupt the stored balance without a matching event entry.
	require.NoError(t, store.Commit(ctx, storage.Commit{
		GroupID:  group,
		Events:   []models.LedgerEvent{{ID: "manual-fix", GroupID: group, Kind: models.EventSettlement}},
		Balances: []storage.PairBalance{{Lo: "A", Hi: "B", Net: -300}},
	}))

	err = l.Verify(ctx, group)
	var inconsistent *models.InconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, group, inconsistent.GroupID)
	assert.NotEmpty(t, inconsistent.Problems)
}

func TestValidate(t *testing.T) {
	events := []models.LedgerEvent{
		{ID: "e1", AppliedAt: 2, Entries: []models.Entry{{Debtor: "B", Creditor: "A", Amount: 100}}},
		{ID: "s1", AppliedAt: 1, Entries: []models.Entry{{Debtor: "A", Creditor: "B", Amount: 40}}},
	}

	tests := []struct {
		name    string
		stored  []models.Edge
		wantErr bool
	}{
		{"matches", []models.Edge{edge("B", "A", 60)}, false},
		{"wrong amount", []models.Edge{edge("B", "A", 61)}, true},
		{"wrong direction", []models.Edge{edge("A", "B", 60)}, true},
		{"missing", nil, true},
		{"self edge", []models.Edge{edge("B", "A", 60), edge("C", "C", 5)}, true},
		{"zero edge", []models.Edge{edge("B", "A", 60), edge("C", "D", 0)}, true},
		{"two edges for one pair", []models.Edge{edge("B", "A", 60), edge("A", "B", 60)}, true},
		{"unexpected", []models.Edge{edge("B", "A", 60), edge("C", "D", 10)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(group, events, tt.stored)
			if tt.wantErr {
				var inconsistent *models.InconsistencyError
				assert.ErrorAs(t, err, &inconsistent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReplay_RejectsRepeatedEvent(t *testing.T) {
	events := []models.LedgerEvent{
		{ID: "e1", Entries: []models.Entry{{Debtor: "B", Creditor: "A", Amount: 100}}},
		{ID: "e1", Entries: []models.Entry{{Debtor: "B", Creditor: "A", Amount: 100}}},
	}
	_, err := Replay(events)
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	m := NewMatrix()
	require.NoError(t, m.Add("A", "A", 100))
	assert.Empty(t, m.Edges(group))
	assert.Empty(t, m.Changes())

	require.NoError(t, m.Add("B", "A", 100))
	require.NoError(t, m.Add("A", "B", 30))
	assert.Equal(t, money.Money(70), m.Balance("B", "A"))
	assert.Equal(t, money.Money(-70), m.Balance("A", "B"))

	require.NoError(t, m.Add("A", "B", 70))
	assert.Empty(t, m.Edges(group))
	assert.Equal(t, []storage.PairBalance{{Lo: "A", Hi: "B", Net: 0}}, m.Changes())

	require.NoError(t, m.Add("A", "B", money.Money(1<<62)))
	err := m.Add("A", "B", money.Money(1<<62))
	assert.ErrorIs(t, err, money.ErrOverflow)
}
