package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/expense"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/reconcile"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// LedgerService implements the Connect LedgerService
type LedgerService struct {
	apiconnect.UnimplementedLedgerServiceHandler
	ledger     *ledger.Ledger
	recorder   *expense.Recorder
	processor  *settlement.Processor
	reconciler *reconcile.Reconciler
	store      storage.Store
}

// NewLedgerService creates a LedgerService on top of the given components.
func NewLedgerService(
	l *ledger.Ledger,
	recorder *expense.Recorder,
	processor *settlement.Processor,
	reconciler *reconcile.Reconciler,
	store storage.Store,
) *LedgerService {
	return &LedgerService{
		ledger:     l,
		recorder:   recorder,
		processor:  processor,
		reconciler: reconciler,
		store:      store,
	}
}

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) error {
	var (
		invalid      *models.ValidationError
		mismatch     *models.AmountMismatchError
		overpayment  *models.OverpaymentError
		inconsistent *models.InconsistencyError
		outOfOrder   *ledger.OutOfOrderError
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &mismatch), errors.Is(err, money.ErrOverflow):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &overpayment):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &outOfOrder) && outOfOrder.Current > 0:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.As(err, &inconsistent):
		return connect.NewError(connect.CodeDataLoss, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func required(field, value string) error {
	if value == "" {
		return connect.NewError(connect.CodeInvalidArgument, models.Invalid(field, "must not be empty"))
	}
	return nil
}

func page(limit, offset int) error {
	if limit < 0 {
		return connect.NewError(connect.CodeInvalidArgument, models.Invalid("limit", "must not be negative"))
	}
	if offset < 0 {
		return connect.NewError(connect.CodeInvalidArgument, models.Invalid("offset", "must not be negative"))
	}
	return nil
}

// dateRange checks optional YYYY-MM-DD bounds.
func dateRange(from, to string) error {
	for _, d := range []struct{ field, value string }{{"from", from}, {"to", to}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d.value); err != nil {
			return connect.NewError(connect.CodeInvalidArgument,
				models.Invalid(d.field, "must be a YYYY-MM-DD date, got %q", d.value))
		}
	}
	if from != "" && to != "" && from > to {
		return connect.NewError(connect.CodeInvalidArgument, models.Invalid("to", "must not be before from"))
	}
	return nil
}

func expenseRequest(ctx context.Context, in api.ExpenseInput) expense.Request {
	return expense.Request{
		ID:              in.ID,
		GroupID:         in.GroupID,
		PayerID:         in.PayerID,
		Amount:          in.Amount,
		Method:          in.Method,
		Participants:    in.Participants,
		Params:          in.Params,
		Description:     in.Description,
		Category:        in.Category,
		Notes:           in.Notes,
		ExpenseDate:     in.ExpenseDate,
		IsReimbursement: in.IsReimbursement,
		CreatedBy:       middleware.GetUserID(ctx),
	}
}

func expenseResponse(res *expense.Result) *api.ExpenseResponse {
	return &api.ExpenseResponse{Expense: res.Expense, Shares: res.Shares, Duplicate: res.Duplicate}
}

// PreviewSplit computes a split without recording anything.
func (s *LedgerService) PreviewSplit(
	ctx context.Context,
	req *connect.Request[api.PreviewSplitRequest],
) (*connect.Response[api.PreviewSplitResponse], error) {
	msg := req.Msg
	split, err := calculator.Compute(msg.Amount, msg.Method, msg.Participants, msg.Params)
	if err != nil {
		return nil, toConnectError(err)
	}

	shares := make([]api.Share, len(split))
	for i, sh := range split {
		shares[i] = api.Share{ParticipantID: sh.Participant, Amount: sh.Amount}
	}
	return connect.NewResponse(&api.PreviewSplitResponse{Shares: shares}), nil
}

func (s *LedgerService) CreateExpense(
	ctx context.Context,
	req *connect.Request[api.CreateExpenseRequest],
) (*connect.Response[api.ExpenseResponse], error) {
	res, err := s.recorder.Create(ctx, expenseRequest(ctx, req.Msg.Expense))
	if err != nil {
		slog.Warn("CreateExpense failed", "group_id", req.Msg.Expense.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(expenseResponse(res)), nil
}

func (s *LedgerService) UpdateExpense(
	ctx context.Context,
	req *connect.Request[api.UpdateExpenseRequest],
) (*connect.Response[api.ExpenseResponse], error) {
	if req.Msg.Revision < 2 {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			models.Invalid("revision", "must be at least 2, got %d", req.Msg.Revision))
	}
	res, err := s.recorder.Revise(ctx, expenseRequest(ctx, req.Msg.Expense), req.Msg.Revision)
	if err != nil {
		slog.Warn("UpdateExpense failed", "expense_id", req.Msg.Expense.ID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(expenseResponse(res)), nil
}

func (s *LedgerService) DeleteExpense(
	ctx context.Context,
	req *connect.Request[api.DeleteExpenseRequest],
) (*connect.Response[api.DeleteExpenseResponse], error) {
	if err := required("expense_id", req.Msg.ExpenseID); err != nil {
		return nil, err
	}
	if req.Msg.Revision < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			models.Invalid("revision", "must not be negative, got %d", req.Msg.Revision))
	}
	out, err := s.recorder.Delete(ctx, req.Msg.GroupID, req.Msg.ExpenseID, req.Msg.Revision)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteExpenseResponse{EventID: out.EventID, Duplicate: out.Duplicate}), nil
}

func (s *LedgerService) GetExpenseShares(
	ctx context.Context,
	req *connect.Request[api.GetExpenseSharesRequest],
) (*connect.Response[api.ExpenseResponse], error) {
	if err := required("expense_id", req.Msg.ExpenseID); err != nil {
		return nil, err
	}
	res, err := s.recorder.Shares(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(expenseResponse(res)), nil
}

// ListExpenses returns a group's expenses, deleted ones included, newest first.
func (s *LedgerService) ListExpenses(
	ctx context.Context,
	req *connect.Request[api.ListExpensesRequest],
) (*connect.Response[api.ListExpensesResponse], error) {
	msg := req.Msg
	if err := required("group_id", msg.GroupID); err != nil {
		return nil, err
	}
	if err := dateRange(msg.From, msg.To); err != nil {
		return nil, err
	}
	if err := page(msg.Limit, msg.Offset); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpenses(ctx, msg.GroupID, storage.ExpenseFilter{
		UserID:   msg.UserID,
		Category: msg.Category,
		From:     msg.From,
		To:       msg.To,
		Limit:    msg.Limit,
		Offset:   msg.Offset,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: expenses}), nil
}

// ListUserShares returns what a user owes on each active expense.
func (s *LedgerService) ListUserShares(
	ctx context.Context,
	req *connect.Request[api.ListUserSharesRequest],
) (*connect.Response[api.ListUserSharesResponse], error) {
	msg := req.Msg
	if err := required("user_id", msg.UserID); err != nil {
		return nil, err
	}
	shares, err := s.store.UserShares(ctx, msg.UserID, msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	var total money.Money
	for _, sh := range shares {
		if total, err = total.CheckedAdd(sh.Amount); err != nil {
			return nil, toConnectError(err)
		}
	}
	return connect.NewResponse(&api.ListUserSharesResponse{Shares: shares, Total: total}), nil
}

func (s *LedgerService) RecordSettlement(
	ctx context.Context,
	req *connect.Request[api.RecordSettlementRequest],
) (*connect.Response[api.RecordSettlementResponse], error) {
	msg := req.Msg
	res, err := s.processor.Record(ctx, settlement.Request{
		ID:        msg.ID,
		GroupID:   msg.GroupID,
		PayerID:   msg.PayerID,
		PayeeID:   msg.PayeeID,
		Amount:    msg.Amount,
		Method:    msg.Method,
		Reference: msg.Reference,
		Note:      msg.Note,
		CreatedBy: middleware.GetUserID(ctx),
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.RecordSettlementResponse{
		Settlement: res.Settlement,
		Duplicate:  res.Duplicate,
	}), nil
}

func (s *LedgerService) ListSettlements(
	ctx context.Context,
	req *connect.Request[api.ListSettlementsRequest],
) (*connect.Response[api.ListSettlementsResponse], error) {
	msg := req.Msg
	if err := required("group_id", msg.GroupID); err != nil {
		return nil, err
	}
	if (msg.UserA == "") != (msg.UserB == "") {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			models.Invalid("user_b", "user_a and user_b must be given together"))
	}
	if msg.UserID != "" && msg.UserA != "" {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			models.Invalid("user_id", "cannot be combined with user_a and user_b"))
	}
	if err := page(msg.Limit, msg.Offset); err != nil {
		return nil, err
	}

	filter := storage.SettlementFilter{UserID: msg.UserID, Limit: msg.Limit, Offset: msg.Offset}
	if msg.UserA != "" {
		filter.UserID, filter.Counterparty = msg.UserA, msg.UserB
	}
	settlements, err := s.store.ListSettlements(ctx, msg.GroupID, filter)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: settlements}), nil
}

func (s *LedgerService) GetBalance(
	ctx context.Context,
	req *connect.Request[api.GetBalanceRequest],
) (*connect.Response[api.GetBalanceResponse], error) {
	msg := req.Msg
	for _, f := range []struct{ field, value string }{
		{"group_id", msg.GroupID}, {"user_a", msg.UserA}, {"user_b", msg.UserB},
	} {
		if err := required(f.field, f.value); err != nil {
			return nil, err
		}
	}

	amount, err := s.ledger.Balance(ctx, msg.GroupID, msg.UserA, msg.UserB)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.GetBalanceResponse{Amount: amount}
	switch amount.Sign() {
	case 1:
		resp.Edge = &models.Edge{GroupID: msg.GroupID, Debtor: msg.UserA, Creditor: msg.UserB, Amount: amount}
	case -1:
		resp.Edge = &models.Edge{GroupID: msg.GroupID, Debtor: msg.UserB, Creditor: msg.UserA, Amount: amount.Abs()}
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) GetGroupBalances(
	ctx context.Context,
	req *connect.Request[api.GetGroupBalancesRequest],
) (*connect.Response[api.GetGroupBalancesResponse], error) {
	if err := required("group_id", req.Msg.GroupID); err != nil {
		return nil, err
	}
	edges, err := s.ledger.GroupBalances(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetGroupBalancesResponse{Edges: edges}), nil
}

func (s *LedgerService) GetUserBalances(
	ctx context.Context,
	req *connect.Request[api.GetUserBalancesRequest],
) (*connect.Response[api.GetUserBalancesResponse], error) {
	msg := req.Msg
	if err := required("group_id", msg.GroupID); err != nil {
		return nil, err
	}
	if err := required("user_id", msg.UserID); err != nil {
		return nil, err
	}

	edges, err := s.ledger.UserBalances(ctx, msg.GroupID, msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	net, err := s.ledger.NetBalance(ctx, msg.GroupID, msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetUserBalancesResponse{Edges: edges, Net: net}), nil
}

// GetAllUserBalances returns a user's edges in every group with a net per group.
func (s *LedgerService) GetAllUserBalances(
	ctx context.Context,
	req *connect.Request[api.GetAllUserBalancesRequest],
) (*connect.Response[api.GetAllUserBalancesResponse], error) {
	userID := req.Msg.UserID
	if err := required("user_id", userID); err != nil {
		return nil, err
	}
	edges, err := s.ledger.AllUserBalances(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.GetAllUserBalancesResponse{Edges: edges}
	for _, e := range edges {
		amount := e.Amount
		if e.Debtor == userID {
			amount = amount.Neg()
		}
		if n := len(resp.Groups); n == 0 || resp.Groups[n-1].GroupID != e.GroupID {
			resp.Groups = append(resp.Groups, api.GroupNet{GroupID: e.GroupID})
		}
		g := &resp.Groups[len(resp.Groups)-1]
		if g.Net, err = g.Net.CheckedAdd(amount); err != nil {
			return nil, toConnectError(err)
		}
		if resp.Net, err = resp.Net.CheckedAdd(amount); err != nil {
			return nil, toConnectError(err)
		}
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) GetGroupSummary(
	ctx context.Context,
	req *connect.Request[api.GetGroupSummaryRequest],
) (*connect.Response[api.GetGroupSummaryResponse], error) {
	if err := required("group_id", req.Msg.GroupID); err != nil {
		return nil, err
	}
	balances, err := s.ledger.Summary(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	members := make([]api.MemberSummary, len(balances))
	for i, b := range balances {
		members[i] = api.MemberSummary{
			UserID:    b.MemberID,
			Net:       b.Net,
			Owed:      b.Owed,
			Owing:     b.Owing,
			EdgeCount: b.EdgeCount,
		}
	}
	return connect.NewResponse(&api.GetGroupSummaryResponse{Members: members}), nil
}

// SimplifyDebts proposes a shorter set of transfers that settles the group.
// The ledger itself is not changed.
func (s *LedgerService) SimplifyDebts(
	ctx context.Context,
	req *connect.Request[api.SimplifyDebtsRequest],
) (*connect.Response[api.SimplifyDebtsResponse], error) {
	if err := required("group_id", req.Msg.GroupID); err != nil {
		return nil, err
	}
	transfers, err := s.ledger.Simplified(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SimplifyDebtsResponse{Transfers: transfers}), nil
}

func (s *LedgerService) Reconcile(
	ctx context.Context,
	req *connect.Request[api.ReconcileRequest],
) (*connect.Response[api.ReconcileResponse], error) {
	report, err := s.reconciler.RunOnce(ctx, req.Msg.GroupIDs...)
	if err != nil {
		slog.Error("Reconcile failed", "error", err)
		return nil, toConnectError(err)
	}

	resp := &api.ReconcileResponse{Checked: report.Checked}
	for _, inc := range report.Inconsistent {
		resp.Inconsistent = append(resp.Inconsistent, api.GroupProblems{
			GroupID:  inc.GroupID,
			Problems: inc.Problems,
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *LedgerService) AddMembers(
	ctx context.Context,
	req *connect.Request[api.AddMembersRequest],
) (*connect.Response[api.MembersResponse], error) {
	msg := req.Msg
	if err := required("group_id", msg.GroupID); err != nil {
		return nil, err
	}
	if len(msg.UserIDs) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, models.Invalid("user_ids", "must not be empty"))
	}
	for _, id := range msg.UserIDs {
		if err := required("user_ids", id); err != nil {
			return nil, err
		}
	}

	if err := s.store.AddMembers(ctx, msg.GroupID, msg.UserIDs); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Members added", "group_id", msg.GroupID, "count", len(msg.UserIDs))
	return s.members(ctx, msg.GroupID)
}

// RemoveMember deactivates a member. Balances involving the member stay on
// the ledger.
func (s *LedgerService) RemoveMember(
	ctx context.Context,
	req *connect.Request[api.RemoveMemberRequest],
) (*connect.Response[api.MembersResponse], error) {
	msg := req.Msg
	if err := required("group_id", msg.GroupID); err != nil {
		return nil, err
	}
	if err := required("user_id", msg.UserID); err != nil {
		return nil, err
	}

	if err := s.store.RemoveMember(ctx, msg.GroupID, msg.UserID); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Member removed", "group_id", msg.GroupID, "user_id", msg.UserID)
	return s.members(ctx, msg.GroupID)
}

func (s *LedgerService) members(ctx context.Context, groupID string) (*connect.Response[api.MembersResponse], error) {
	members, err := s.store.ActiveMembers(ctx, groupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.MembersResponse{GroupID: groupID, Members: members}), nil
}
