package expense

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

func newRecorder(t *testing.T) (*Recorder, *ledger.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.AddMembers(context.Background(), "g1", []string{"A", "B", "C"}))
	l := ledger.New(store)
	r := NewRecorder(l, store, store)
	r.now = func() time.Time { return time.Unix(1700000000, 0) }
	return r, l, store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	r, l, _ := newRecorder(t)

	res, err := r.Create(ctx, Request{
		ID:           "e1",
		GroupID:      "g1",
		PayerID:      "A",
		Amount:       money.MustParse("10.00"),
		Method:       models.SplitEqual,
		Participants: []string{"A", "B", "C"},
		Description:  "Pizza",
		ExpenseDate:  "2026-10-01",
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, res.Expense.Revision)
	assert.Equal(t, int64(1700000000), res.Expense.CreatedAt)
	require.Len(t, res.Shares, 3)
	assert.Equal(t, money.Money(334), res.Shares[0].Amount)

	edges, err := l.GroupBalances(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	// Redelivery returns the stored record.
	again, err := r.Create(ctx, Request{ID: "e1", GroupID: "g1", PayerID: "A", Amount: 1000,
		Method: models.SplitEqual, Participants: []string{"A", "B", "C"}})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, "Pizza", again.Expense.Description)
	assert.Len(t, again.Shares, 3)
}

func TestCreate_ReusedIDConflicts(t *testing.T) {
	ctx := context.Background()
	r, l, store := newRecorder(t)
	require.NoError(t, store.AddMembers(ctx, "g2", []string{"A", "B"}))

	_, err := r.Create(ctx, Request{ID: "e1", GroupID: "g1", PayerID: "A", Amount: 900,
		Method: models.SplitEqual, Participants: []string{"A", "B", "C"}})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  Request
	}{
		{"other group", Request{ID: "e1", GroupID: "g2", PayerID: "A", Amount: 900, Method: models.SplitEqual, Participants: []string{"A", "B"}}},
		{"other payer", Request{ID: "e1", GroupID: "g1", PayerID: "B", Amount: 900, Method: models.SplitEqual, Participants: []string{"A", "B", "C"}}},
		{"other amount", Request{ID: "e1", GroupID: "g1", PayerID: "A", Amount: 300, Method: models.SplitEqual, Participants: []string{"A", "B", "C"}}},
		{"other participants", Request{ID: "e1", GroupID: "g1", PayerID: "A", Amount: 900, Method: models.SplitEqual, Participants: []string{"A", "B"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Create(ctx, tt.req)
			var invalid *models.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "expense_id", invalid.Field)
		})
	}

	edges, err := l.GroupBalances(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestCreate_GeneratesID(t *testing.T) {
	r, _, _ := newRecorder(t)
	res, err := r.Create(context.Background(), Request{
		GroupID: "g1", PayerID: "B", Amount: 100, Method: models.SplitShares,
		Participants: []string{"A", "B"},
		Params:       models.SplitParams{Weights: map[string]int64{"A": 1, "B": 3}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Expense.ID)
	assert.Equal(t, money.Money(25), res.Shares[0].Amount)
	assert.Equal(t, money.Money(75), res.Shares[1].Amount)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	r, _, store := newRecorder(t)
	require.NoError(t, store.RemoveMember(ctx, "g1", "C"))

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{
			name:  "inactive participant",
			req:   Request{GroupID: "g1", PayerID: "A", Amount: 100, Method: models.SplitEqual, Participants: []string{"A", "C"}},
			field: "participants",
		},
		{
			name:  "payer not a member",
			req:   Request{GroupID: "g1", PayerID: "Z", Amount: 100, Method: models.SplitEqual, Participants: []string{"A"}},
			field: "payer_id",
		},
		{
			name:  "bad date",
			req:   Request{GroupID: "g1", PayerID: "A", Amount: 100, Method: models.SplitEqual, Participants: []string{"A"}, ExpenseDate: "01/10/2026"},
			field: "expense_date",
		},
		{
			name:  "missing group",
			req:   Request{PayerID: "A", Amount: 100, Method: models.SplitEqual, Participants: []string{"A"}},
			field: "group_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Create(ctx, tt.req)
			var invalid *models.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}

	_, err := r.Create(ctx, Request{GroupID: "g1", PayerID: "A", Amount: 100, Method: models.SplitExact,
		Participants: []string{"A", "B"},
		Params:       models.SplitParams{Exact: map[string]money.Money{"A": 50, "B": 40}}})
	var mismatch *models.AmountMismatchError
	require.ErrorAs(t, err, &mismatch)

	ids, err := store.GroupIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "rejected expenses must not touch the ledger")
}

func TestReviseAndDelete(t *testing.T) {
	ctx := context.Background()
	r, l, _ := newRecorder(t)

	base := Request{ID: "e1", GroupID: "g1", PayerID: "A", Amount: 900, Method: models.SplitEqual,
		Participants: []string{"A", "B", "C"}, CreatedBy: "A"}
	_, err := r.Create(ctx, base)
	require.NoError(t, err)

	revised := base
	revised.Amount = 600
	revised.Participants = []string{"A", "B"}
	revised.CreatedBy = "B"
	res, err := r.Revise(ctx, revised, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Expense.Revision)
	assert.Equal(t, "A", res.Expense.CreatedBy, "creator is kept across revisions")

	edges, err := l.GroupBalances(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, models.Edge{GroupID: "g1", Debtor: "B", Creditor: "A", Amount: 300}, edges[0])

	again, err := r.Revise(ctx, revised, 2)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)

	conflicting := revised
	conflicting.Amount = 700
	_, err = r.Revise(ctx, conflicting, 2)
	var invalid *models.ValidationError
	require.ErrorAs(t, err, &invalid)

	// Revision 1 is superseded, so only its group is compared.
	old, err := r.Create(ctx, base)
	require.NoError(t, err)
	assert.True(t, old.Duplicate)

	current, err := r.Shares(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, current.Duplicate)
	assert.Len(t, current.Shares, 2)

	out, err := r.Delete(ctx, "g1", "e1", 0)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	out, err = r.Delete(ctx, "g1", "e1", 0)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	edges, err = l.GroupBalances(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, edges)

	_, err = r.Shares(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPreview(t *testing.T) {
	split, err := Preview(Request{Amount: 100, Method: models.SplitPercentage, Participants: []string{"A", "B", "C"},
		Params: models.SplitParams{BasisPoints: map[string]int64{"A": 3333, "B": 3333, "C": 3334}}})
	require.NoError(t, err)
	assert.Equal(t, money.Money(34), split.Map()["C"])
}
