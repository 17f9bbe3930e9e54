package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/expense"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/reconcile"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// testAuthInterceptor returns a Connect interceptor that sets a test user ID in the context.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			return next(middleware.WithUserID(ctx, "Alice"), req)
		}
	}
}

// setupTestServer creates a test server backed by a temporary SQLite database
func setupTestServer(t *testing.T) (apiconnect.LedgerServiceClient, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	l := ledger.New(store, ledger.WithVerification(true))
	svc := NewLedgerService(
		l,
		expense.NewRecorder(l, store, store),
		settlement.NewProcessor(l, store, store, settlement.RejectOverpayment),
		reconcile.New(l, 2),
		store,
	)
	path, handler := apiconnect.NewLedgerServiceHandler(svc, connect.WithInterceptors(testAuthInterceptor()))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	client := apiconnect.NewLedgerServiceClient(http.DefaultClient, server.URL)

	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return client, cleanup
}

// seedDinner adds A, B and C to g1 and records A paying 10.00 split equally.
func seedDinner(t *testing.T, client apiconnect.LedgerServiceClient) *api.ExpenseResponse {
	t.Helper()
	ctx := context.Background()

	_, err := client.AddMembers(ctx, connect.NewRequest(&api.AddMembersRequest{
		GroupID: "g1",
		UserIDs: []string{"A", "B", "C"},
	}))
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}

	resp, err := client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Expense: api.ExpenseInput{
			ID:           "dinner",
			GroupID:      "g1",
			PayerID:      "A",
			Amount:       1000,
			Method:       models.SplitEqual,
			Participants: []string{"A", "B", "C"},
			Description:  "Dinner",
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return resp.Msg
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (error: %v)", got, want, err)
	}
}

func TestPreviewSplit(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := client.PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Amount:       100,
		Method:       models.SplitPercentage,
		Participants: []string{"A", "B", "C"},
		Params:       models.SplitParams{BasisPoints: map[string]int64{"A": 3333, "B": 3333, "C": 3334}},
	}))
	if err != nil {
		t.Fatalf("PreviewSplit failed: %v", err)
	}

	want := []api.Share{
		{ParticipantID: "A", Amount: 33},
		{ParticipantID: "B", Amount: 33},
		{ParticipantID: "C", Amount: 34},
	}
	if len(resp.Msg.Shares) != len(want) {
		t.Fatalf("expected %d shares, got %v", len(want), resp.Msg.Shares)
	}
	for i, sh := range resp.Msg.Shares {
		if sh != want[i] {
			t.Errorf("share %d = %+v, want %+v", i, sh, want[i])
		}
	}

	_, err = client.PreviewSplit(context.Background(), connect.NewRequest(&api.PreviewSplitRequest{
		Amount:       100,
		Method:       models.SplitExact,
		Participants: []string{"A", "B"},
		Params:       models.SplitParams{Exact: map[string]money.Money{"A": 10, "B": 10}},
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestCreateExpense(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	created := seedDinner(t, client)
	if created.Expense.CreatedBy != "Alice" {
		t.Errorf("CreatedBy = %q, want Alice", created.Expense.CreatedBy)
	}
	if created.Expense.Revision != 1 {
		t.Errorf("Revision = %d, want 1", created.Expense.Revision)
	}
	if len(created.Shares) != 3 || created.Shares[0].Amount != 334 {
		t.Errorf("unexpected shares %+v", created.Shares)
	}

	balances, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	want := []models.Edge{
		{GroupID: "g1", Debtor: "B", Creditor: "A", Amount: 333},
		{GroupID: "g1", Debtor: "C", Creditor: "A", Amount: 333},
	}
	if len(balances.Msg.Edges) != len(want) {
		t.Fatalf("edges = %+v, want %+v", balances.Msg.Edges, want)
	}
	for i := range want {
		if balances.Msg.Edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, balances.Msg.Edges[i], want[i])
		}
	}

	// Same id again is absorbed.
	again, err := client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Expense: api.ExpenseInput{
			ID:           "dinner",
			GroupID:      "g1",
			PayerID:      "A",
			Amount:       1000,
			Method:       models.SplitEqual,
			Participants: []string{"A", "B", "C"},
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense replay failed: %v", err)
	}
	if !again.Msg.Duplicate {
		t.Error("expected replay to be reported as duplicate")
	}

	bal, err := client.GetBalance(ctx, connect.NewRequest(&api.GetBalanceRequest{GroupID: "g1", UserA: "A", UserB: "B"}))
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Msg.Amount != -333 || bal.Msg.Edge == nil || bal.Msg.Edge.Debtor != "B" {
		t.Errorf("unexpected balance %+v", bal.Msg)
	}
}

func TestCreateExpense_Rejections(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	seedDinner(t, client)

	tests := []struct {
		name  string
		input api.ExpenseInput
		code  connect.Code
	}{
		{
			name:  "non-member participant",
			input: api.ExpenseInput{GroupID: "g1", PayerID: "A", Amount: 100, Method: models.SplitEqual, Participants: []string{"A", "Z"}},
			code:  connect.CodeInvalidArgument,
		},
		{
			name:  "zero amount",
			input: api.ExpenseInput{GroupID: "g1", PayerID: "A", Amount: 0, Method: models.SplitEqual, Participants: []string{"A", "B"}},
			code:  connect.CodeInvalidArgument,
		},
		{
			name: "exact amounts do not add up",
			input: api.ExpenseInput{
				GroupID: "g1", PayerID: "A", Amount: 100, Method: models.SplitExact, Participants: []string{"A", "B"},
				Params: models.SplitParams{Exact: map[string]money.Money{"A": 10, "B": 20}},
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name:  "payer outside group",
			input: api.ExpenseInput{GroupID: "g2", PayerID: "A", Amount: 100, Method: models.SplitEqual, Participants: []string{"A"}},
			code:  connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{Expense: tt.input}))
			assertCode(t, err, tt.code)
		})
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	seedDinner(t, client)

	updated, err := client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		Expense: api.ExpenseInput{
			ID:           "dinner",
			GroupID:      "g1",
			PayerID:      "A",
			Amount:       600,
			Method:       models.SplitEqual,
			Participants: []string{"A", "B"},
		},
		Revision: 2,
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if updated.Msg.Expense.Revision != 2 || updated.Msg.Expense.CreatedBy != "Alice" {
		t.Errorf("unexpected expense %+v", updated.Msg.Expense)
	}

	balances, err := client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(balances.Msg.Edges) != 1 || balances.Msg.Edges[0].Debtor != "B" || balances.Msg.Edges[0].Amount != 300 {
		t.Errorf("unexpected balances after update %+v", balances.Msg.Edges)
	}

	// Skipping a revision is rejected.
	_, err = client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		Expense: api.ExpenseInput{
			ID: "dinner", GroupID: "g1", PayerID: "A", Amount: 600,
			Method: models.SplitEqual, Participants: []string{"A", "B"},
		},
		Revision: 4,
	}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	shares, err := client.GetExpenseShares(ctx, connect.NewRequest(&api.GetExpenseSharesRequest{ExpenseID: "dinner"}))
	if err != nil {
		t.Fatalf("GetExpenseShares failed: %v", err)
	}
	if len(shares.Msg.Shares) != 2 || shares.Msg.Shares[0].Revision != 2 {
		t.Errorf("unexpected shares %+v", shares.Msg.Shares)
	}

	// A delete pinned to a superseded revision is rejected.
	_, err = client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{
		GroupID: "g1", ExpenseID: "dinner", Revision: 1,
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	del, err := client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{
		GroupID: "g1", ExpenseID: "dinner", Revision: 2,
	}))
	if err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if del.Msg.Duplicate || del.Msg.EventID != "retract:dinner#2" {
		t.Errorf("unexpected delete response %+v", del.Msg)
	}

	del, err = client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{GroupID: "g1", ExpenseID: "dinner"}))
	if err != nil {
		t.Fatalf("second DeleteExpense failed: %v", err)
	}
	if !del.Msg.Duplicate {
		t.Error("expected second delete to be a duplicate")
	}

	balances, err = client.GetGroupBalances(ctx, connect.NewRequest(&api.GetGroupBalancesRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("GetGroupBalances failed: %v", err)
	}
	if len(balances.Msg.Edges) != 0 {
		t.Errorf("expected no balances after delete, got %+v", balances.Msg.Edges)
	}

	list, err := client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list.Msg.Expenses) != 1 || list.Msg.Expenses[0].Status != models.ExpenseRetracted {
		t.Errorf("unexpected expenses %+v", list.Msg.Expenses)
	}

	_, err = client.GetExpenseShares(ctx, connect.NewRequest(&api.GetExpenseSharesRequest{ExpenseID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestRecordSettlement(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	seedDinner(t, client)

	_, err := client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		GroupID: "g1", PayerID: "B", PayeeID: "A", Amount: 500,
	}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		GroupID: "g1", PayerID: "B", PayeeID: "B", Amount: 10,
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	resp, err := client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		ID: "s1", GroupID: "g1", PayerID: "B", PayeeID: "A", Amount: 333, Reference: "venmo-1",
	}))
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}
	if resp.Msg.Settlement.Method != models.DefaultSettlementMethod || resp.Msg.Settlement.CreatedBy != "Alice" {
		t.Errorf("unexpected settlement %+v", resp.Msg.Settlement)
	}

	replay, err := client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		ID: "s1", GroupID: "g1", PayerID: "B", PayeeID: "A", Amount: 333,
	}))
	if err != nil {
		t.Fatalf("RecordSettlement replay failed: %v", err)
	}
	if !replay.Msg.Duplicate || replay.Msg.Settlement.Reference != "venmo-1" {
		t.Errorf("expected original settlement back, got %+v", replay.Msg)
	}

	_, err = client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		ID: "s1", GroupID: "g1", PayerID: "C", PayeeID: "A", Amount: 200,
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	user, err := client.GetUserBalances(ctx, connect.NewRequest(&api.GetUserBalancesRequest{GroupID: "g1", UserID: "A"}))
	if err != nil {
		t.Fatalf("GetUserBalances failed: %v", err)
	}
	if user.Msg.Net != 333 || len(user.Msg.Edges) != 1 || user.Msg.Edges[0].Debtor != "C" {
		t.Errorf("unexpected user balances %+v", user.Msg)
	}

	between, err := client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{
		GroupID: "g1", UserA: "A", UserB: "B",
	}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(between.Msg.Settlements) != 1 {
		t.Errorf("expected 1 settlement between A and B, got %d", len(between.Msg.Settlements))
	}

	none, err := client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{
		GroupID: "g1", UserA: "A", UserB: "C",
	}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(none.Msg.Settlements) != 0 {
		t.Errorf("expected no settlements between A and C, got %+v", none.Msg.Settlements)
	}

	_, err = client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{GroupID: "g1", UserA: "A"}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestUserReads(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	seedDinner(t, client)

	_, err := client.AddMembers(ctx, connect.NewRequest(&api.AddMembersRequest{GroupID: "g2", UserIDs: []string{"A", "B"}}))
	if err != nil {
		t.Fatalf("AddMembers failed: %v", err)
	}
	_, err = client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Expense: api.ExpenseInput{
			ID: "taxi", GroupID: "g2", PayerID: "B", Amount: 400, Method: models.SplitEqual,
			Participants: []string{"A", "B"}, Category: "travel", ExpenseDate: "2024-05-01",
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	listExpenses := func(req *api.ListExpensesRequest) int {
		t.Helper()
		resp, err := client.ListExpenses(ctx, connect.NewRequest(req))
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		return len(resp.Msg.Expenses)
	}
	if n := listExpenses(&api.ListExpensesRequest{GroupID: "g1", UserID: "B"}); n != 1 {
		t.Errorf("expenses of B in g1 = %d, want 1", n)
	}
	if n := listExpenses(&api.ListExpensesRequest{GroupID: "g1", Category: "travel"}); n != 0 {
		t.Errorf("travel expenses in g1 = %d, want 0", n)
	}
	if n := listExpenses(&api.ListExpensesRequest{GroupID: "g2", From: "2024-05-01", To: "2024-05-31"}); n != 1 {
		t.Errorf("May expenses in g2 = %d, want 1", n)
	}
	if n := listExpenses(&api.ListExpensesRequest{GroupID: "g2", From: "2024-06-01"}); n != 0 {
		t.Errorf("June expenses in g2 = %d, want 0", n)
	}

	_, err = client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{GroupID: "g2", From: "2024-05-31", To: "2024-05-01"}))
	assertCode(t, err, connect.CodeInvalidArgument)
	_, err = client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{GroupID: "g2", From: "May 1"}))
	assertCode(t, err, connect.CodeInvalidArgument)
	_, err = client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{GroupID: "g2", Limit: -1}))
	assertCode(t, err, connect.CodeInvalidArgument)

	shares, err := client.ListUserShares(ctx, connect.NewRequest(&api.ListUserSharesRequest{UserID: "A"}))
	if err != nil {
		t.Fatalf("ListUserShares failed: %v", err)
	}
	if len(shares.Msg.Shares) != 2 || shares.Msg.Total != 534 {
		t.Errorf("unexpected shares of A %+v", shares.Msg)
	}
	shares, err = client.ListUserShares(ctx, connect.NewRequest(&api.ListUserSharesRequest{UserID: "A", GroupID: "g2"}))
	if err != nil {
		t.Fatalf("ListUserShares failed: %v", err)
	}
	if len(shares.Msg.Shares) != 1 || shares.Msg.Shares[0].PayerID != "B" || shares.Msg.Total != 200 {
		t.Errorf("unexpected shares of A in g2 %+v", shares.Msg)
	}
	_, err = client.ListUserShares(ctx, connect.NewRequest(&api.ListUserSharesRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument)

	all, err := client.GetAllUserBalances(ctx, connect.NewRequest(&api.GetAllUserBalancesRequest{UserID: "A"}))
	if err != nil {
		t.Fatalf("GetAllUserBalances failed: %v", err)
	}
	wantGroups := []api.GroupNet{{GroupID: "g1", Net: 666}, {GroupID: "g2", Net: -200}}
	if len(all.Msg.Edges) != 3 || all.Msg.Net != 466 || !slices.Equal(all.Msg.Groups, wantGroups) {
		t.Errorf("unexpected balances of A %+v", all.Msg)
	}

	_, err = client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		ID: "s1", GroupID: "g1", PayerID: "C", PayeeID: "A", Amount: 100,
	}))
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}
	byC, err := client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{GroupID: "g1", UserID: "C"}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(byC.Msg.Settlements) != 1 {
		t.Errorf("settlements of C = %d, want 1", len(byC.Msg.Settlements))
	}
	byB, err := client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{GroupID: "g1", UserID: "B"}))
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(byB.Msg.Settlements) != 0 {
		t.Errorf("settlements of B = %d, want 0", len(byB.Msg.Settlements))
	}
	_, err = client.ListSettlements(ctx, connect.NewRequest(&api.ListSettlementsRequest{
		GroupID: "g1", UserID: "C", UserA: "A", UserB: "C",
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestSummaryAndSimplify(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	seedDinner(t, client)

	// B pays for a taxi that A and C share; debts chain through B.
	_, err := client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Expense: api.ExpenseInput{
			GroupID: "g1", PayerID: "B", Amount: 600, Method: models.SplitShares,
			Participants: []string{"A", "C"},
			Params:       models.SplitParams{Weights: map[string]int64{"A": 1, "C": 2}},
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	summary, err := client.GetGroupSummary(ctx, connect.NewRequest(&api.GetGroupSummaryRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("GetGroupSummary failed: %v", err)
	}
	var total int64
	for _, m := range summary.Msg.Members {
		total += int64(m.Net)
	}
	if total != 0 {
		t.Errorf("member nets sum to %d, want 0", total)
	}

	simplified, err := client.SimplifyDebts(ctx, connect.NewRequest(&api.SimplifyDebtsRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("SimplifyDebts failed: %v", err)
	}
	nets := map[string]int64{}
	for _, tr := range simplified.Msg.Transfers {
		nets[tr.Debtor] -= int64(tr.Amount)
		nets[tr.Creditor] += int64(tr.Amount)
	}
	for _, m := range summary.Msg.Members {
		if nets[m.UserID] != int64(m.Net) {
			t.Errorf("%s: simplified net %d, summary net %d", m.UserID, nets[m.UserID], m.Net)
		}
	}

	report, err := client.Reconcile(ctx, connect.NewRequest(&api.ReconcileRequest{}))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.Msg.Checked != 1 || len(report.Msg.Inconsistent) != 0 {
		t.Errorf("unexpected reconcile report %+v", report.Msg)
	}
}

func TestMembers(t *testing.T) {
	client, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	seedDinner(t, client)

	resp, err := client.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: "g1", UserID: "C"}))
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if len(resp.Msg.Members) != 2 {
		t.Errorf("members = %v, want A and B", resp.Msg.Members)
	}

	// C's debt survives removal.
	bal, err := client.GetBalance(ctx, connect.NewRequest(&api.GetBalanceRequest{GroupID: "g1", UserA: "C", UserB: "A"}))
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Msg.Amount != 333 {
		t.Errorf("C owes A %d, want 333", bal.Msg.Amount)
	}

	// A former member cannot take part in new activity.
	_, err = client.RecordSettlement(ctx, connect.NewRequest(&api.RecordSettlementRequest{
		GroupID: "g1", PayerID: "C", PayeeID: "A", Amount: 333,
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = client.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: "g1", UserID: "Z"}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = client.AddMembers(ctx, connect.NewRequest(&api.AddMembersRequest{GroupID: "g1"}))
	assertCode(t, err, connect.CodeInvalidArgument)
}
