// Package apiconnect wires splitledger.v1.LedgerService to Connect handlers
// and clients. Messages travel as plain JSON using api.Codec.
package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Procedure paths of LedgerService.
const (
	PreviewSplitProcedure       = "/splitledger.v1.LedgerService/PreviewSplit"
	CreateExpenseProcedure      = "/splitledger.v1.LedgerService/CreateExpense"
	UpdateExpenseProcedure      = "/splitledger.v1.LedgerService/UpdateExpense"
	DeleteExpenseProcedure      = "/splitledger.v1.LedgerService/DeleteExpense"
	GetExpenseSharesProcedure   = "/splitledger.v1.LedgerService/GetExpenseShares"
	ListExpensesProcedure       = "/splitledger.v1.LedgerService/ListExpenses"
	ListUserSharesProcedure     = "/splitledger.v1.LedgerService/ListUserShares"
	RecordSettlementProcedure   = "/splitledger.v1.LedgerService/RecordSettlement"
	ListSettlementsProcedure    = "/splitledger.v1.LedgerService/ListSettlements"
	GetBalanceProcedure         = "/splitledger.v1.LedgerService/GetBalance"
	GetGroupBalancesProcedure   = "/splitledger.v1.LedgerService/GetGroupBalances"
	GetUserBalancesProcedure    = "/splitledger.v1.LedgerService/GetUserBalances"
	GetAllUserBalancesProcedure = "/splitledger.v1.LedgerService/GetAllUserBalances"
	GetGroupSummaryProcedure    = "/splitledger.v1.LedgerService/GetGroupSummary"
	SimplifyDebtsProcedure      = "/splitledger.v1.LedgerService/SimplifyDebts"
	ReconcileProcedure          = "/splitledger.v1.LedgerService/Reconcile"
	AddMembersProcedure         = "/splitledger.v1.LedgerService/AddMembers"
	RemoveMemberProcedure       = "/splitledger.v1.LedgerService/RemoveMember"
)

// LedgerServiceClient is a client for splitledger.v1.LedgerService.
type LedgerServiceClient interface {
	PreviewSplit(context.Context, *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error)
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	GetExpenseShares(context.Context, *connect.Request[api.GetExpenseSharesRequest]) (*connect.Response[api.ExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	ListUserShares(context.Context, *connect.Request[api.ListUserSharesRequest]) (*connect.Response[api.ListUserSharesResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
	GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
	GetUserBalances(context.Context, *connect.Request[api.GetUserBalancesRequest]) (*connect.Response[api.GetUserBalancesResponse], error)
	GetAllUserBalances(context.Context, *connect.Request[api.GetAllUserBalancesRequest]) (*connect.Response[api.GetAllUserBalancesResponse], error)
	GetGroupSummary(context.Context, *connect.Request[api.GetGroupSummaryRequest]) (*connect.Response[api.GetGroupSummaryResponse], error)
	SimplifyDebts(context.Context, *connect.Request[api.SimplifyDebtsRequest]) (*connect.Response[api.SimplifyDebtsResponse], error)
	Reconcile(context.Context, *connect.Request[api.ReconcileRequest]) (*connect.Response[api.ReconcileResponse], error)
	AddMembers(context.Context, *connect.Request[api.AddMembersRequest]) (*connect.Response[api.MembersResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.MembersResponse], error)
}

// NewLedgerServiceClient constructs a client for splitledger.v1.LedgerService.
// baseURL is the server root, e.g. http://localhost:8080.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
	return &ledgerServiceClient{
		previewSplit:       connect.NewClient[api.PreviewSplitRequest, api.PreviewSplitResponse](httpClient, baseURL+PreviewSplitProcedure, opts...),
		createExpense:      connect.NewClient[api.CreateExpenseRequest, api.ExpenseResponse](httpClient, baseURL+CreateExpenseProcedure, opts...),
		updateExpense:      connect.NewClient[api.UpdateExpenseRequest, api.ExpenseResponse](httpClient, baseURL+UpdateExpenseProcedure, opts...),
		deleteExpense:      connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](httpClient, baseURL+DeleteExpenseProcedure, opts...),
		getExpenseShares:   connect.NewClient[api.GetExpenseSharesRequest, api.ExpenseResponse](httpClient, baseURL+GetExpenseSharesProcedure, opts...),
		listExpenses:       connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](httpClient, baseURL+ListExpensesProcedure, opts...),
		listUserShares:     connect.NewClient[api.ListUserSharesRequest, api.ListUserSharesResponse](httpClient, baseURL+ListUserSharesProcedure, opts...),
		recordSettlement:   connect.NewClient[api.RecordSettlementRequest, api.RecordSettlementResponse](httpClient, baseURL+RecordSettlementProcedure, opts...),
		listSettlements:    connect.NewClient[api.ListSettlementsRequest, api.ListSettlementsResponse](httpClient, baseURL+ListSettlementsProcedure, opts...),
		getBalance:         connect.NewClient[api.GetBalanceRequest, api.GetBalanceResponse](httpClient, baseURL+GetBalanceProcedure, opts...),
		getGroupBalances:   connect.NewClient[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse](httpClient, baseURL+GetGroupBalancesProcedure, opts...),
		getUserBalances:    connect.NewClient[api.GetUserBalancesRequest, api.GetUserBalancesResponse](httpClient, baseURL+GetUserBalancesProcedure, opts...),
		getAllUserBalances: connect.NewClient[api.GetAllUserBalancesRequest, api.GetAllUserBalancesResponse](httpClient, baseURL+GetAllUserBalancesProcedure, opts...),
		getGroupSummary:    connect.NewClient[api.GetGroupSummaryRequest, api.GetGroupSummaryResponse](httpClient, baseURL+GetGroupSummaryProcedure, opts...),
		simplifyDebts:      connect.NewClient[api.SimplifyDebtsRequest, api.SimplifyDebtsResponse](httpClient, baseURL+SimplifyDebtsProcedure, opts...),
		reconcile:          connect.NewClient[api.ReconcileRequest, api.ReconcileResponse](httpClient, baseURL+ReconcileProcedure, opts...),
		addMembers:         connect.NewClient[api.AddMembersRequest, api.MembersResponse](httpClient, baseURL+AddMembersProcedure, opts...),
		removeMember:       connect.NewClient[api.RemoveMemberRequest, api.MembersResponse](httpClient, baseURL+RemoveMemberProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	previewSplit       *connect.Client[api.PreviewSplitRequest, api.PreviewSplitResponse]
	createExpense      *connect.Client[api.CreateExpenseRequest, api.ExpenseResponse]
	updateExpense      *connect.Client[api.UpdateExpenseRequest, api.ExpenseResponse]
	deleteExpense      *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	getExpenseShares   *connect.Client[api.GetExpenseSharesRequest, api.ExpenseResponse]
	listExpenses       *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	listUserShares     *connect.Client[api.ListUserSharesRequest, api.ListUserSharesResponse]
	recordSettlement   *connect.Client[api.RecordSettlementRequest, api.RecordSettlementResponse]
	listSettlements    *connect.Client[api.ListSettlementsRequest, api.ListSettlementsResponse]
	getBalance         *connect.Client[api.GetBalanceRequest, api.GetBalanceResponse]
	getGroupBalances   *connect.Client[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse]
	getUserBalances    *connect.Client[api.GetUserBalancesRequest, api.GetUserBalancesResponse]
	getAllUserBalances *connect.Client[api.GetAllUserBalancesRequest, api.GetAllUserBalancesResponse]
	getGroupSummary    *connect.Client[api.GetGroupSummaryRequest, api.GetGroupSummaryResponse]
	simplifyDebts      *connect.Client[api.SimplifyDebtsRequest, api.SimplifyDebtsResponse]
	reconcile          *connect.Client[api.ReconcileRequest, api.ReconcileResponse]
	addMembers         *connect.Client[api.AddMembersRequest, api.MembersResponse]
	removeMember       *connect.Client[api.RemoveMemberRequest, api.MembersResponse]
}

func (c *ledgerServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetExpenseShares(ctx context.Context, req *connect.Request[api.GetExpenseSharesRequest]) (*connect.Response[api.ExpenseResponse], error) {
	return c.getExpenseShares.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListUserShares(ctx context.Context, req *connect.Request[api.ListUserSharesRequest]) (*connect.Response[api.ListUserSharesResponse], error) {
	return c.listUserShares.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetBalance(ctx context.Context, req *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetUserBalances(ctx context.Context, req *connect.Request[api.GetUserBalancesRequest]) (*connect.Response[api.GetUserBalancesResponse], error) {
	return c.getUserBalances.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetAllUserBalances(ctx context.Context, req *connect.Request[api.GetAllUserBalancesRequest]) (*connect.Response[api.GetAllUserBalancesResponse], error) {
	return c.getAllUserBalances.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetGroupSummary(ctx context.Context, req *connect.Request[api.GetGroupSummaryRequest]) (*connect.Response[api.GetGroupSummaryResponse], error) {
	return c.getGroupSummary.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) SimplifyDebts(ctx context.Context, req *connect.Request[api.SimplifyDebtsRequest]) (*connect.Response[api.SimplifyDebtsResponse], error) {
	return c.simplifyDebts.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) Reconcile(ctx context.Context, req *connect.Request[api.ReconcileRequest]) (*connect.Response[api.ReconcileResponse], error) {
	return c.reconcile.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.MembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.MembersResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

// LedgerServiceHandler is implemented by servers of splitledger.v1.LedgerService.
type LedgerServiceHandler interface {
	PreviewSplit(context.Context, *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error)
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	GetExpenseShares(context.Context, *connect.Request[api.GetExpenseSharesRequest]) (*connect.Response[api.ExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	ListUserShares(context.Context, *connect.Request[api.ListUserSharesRequest]) (*connect.Response[api.ListUserSharesResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
	GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
	GetUserBalances(context.Context, *connect.Request[api.GetUserBalancesRequest]) (*connect.Response[api.GetUserBalancesResponse], error)
	GetAllUserBalances(context.Context, *connect.Request[api.GetAllUserBalancesRequest]) (*connect.Response[api.GetAllUserBalancesResponse], error)
	GetGroupSummary(context.Context, *connect.Request[api.GetGroupSummaryRequest]) (*connect.Response[api.GetGroupSummaryResponse], error)
	SimplifyDebts(context.Context, *connect.Request[api.SimplifyDebtsRequest]) (*connect.Response[api.SimplifyDebtsResponse], error)
	Reconcile(context.Context, *connect.Request[api.ReconcileRequest]) (*connect.Response[api.ReconcileResponse], error)
	AddMembers(context.Context, *connect.Request[api.AddMembersRequest]) (*connect.Response[api.MembersResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.MembersResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(PreviewSplitProcedure, connect.NewUnaryHandler(PreviewSplitProcedure, svc.PreviewSplit, opts...))
	mux.Handle(CreateExpenseProcedure, connect.NewUnaryHandler(CreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(UpdateExpenseProcedure, connect.NewUnaryHandler(UpdateExpenseProcedure, svc.UpdateExpense, opts...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(GetExpenseSharesProcedure, connect.NewUnaryHandler(GetExpenseSharesProcedure, svc.GetExpenseShares, opts...))
	mux.Handle(ListExpensesProcedure, connect.NewUnaryHandler(ListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(ListUserSharesProcedure, connect.NewUnaryHandler(ListUserSharesProcedure, svc.ListUserShares, opts...))
	mux.Handle(RecordSettlementProcedure, connect.NewUnaryHandler(RecordSettlementProcedure, svc.RecordSettlement, opts...))
	mux.Handle(ListSettlementsProcedure, connect.NewUnaryHandler(ListSettlementsProcedure, svc.ListSettlements, opts...))
	mux.Handle(GetBalanceProcedure, connect.NewUnaryHandler(GetBalanceProcedure, svc.GetBalance, opts...))
	mux.Handle(GetGroupBalancesProcedure, connect.NewUnaryHandler(GetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(GetUserBalancesProcedure, connect.NewUnaryHandler(GetUserBalancesProcedure, svc.GetUserBalances, opts...))
	mux.Handle(GetAllUserBalancesProcedure, connect.NewUnaryHandler(GetAllUserBalancesProcedure, svc.GetAllUserBalances, opts...))
	mux.Handle(GetGroupSummaryProcedure, connect.NewUnaryHandler(GetGroupSummaryProcedure, svc.GetGroupSummary, opts...))
	mux.Handle(SimplifyDebtsProcedure, connect.NewUnaryHandler(SimplifyDebtsProcedure, svc.SimplifyDebts, opts...))
	mux.Handle(ReconcileProcedure, connect.NewUnaryHandler(ReconcileProcedure, svc.Reconcile, opts...))
	mux.Handle(AddMembersProcedure, connect.NewUnaryHandler(AddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(RemoveMemberProcedure, connect.NewUnaryHandler(RemoveMemberProcedure, svc.RemoveMember, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// UnimplementedLedgerServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedLedgerServiceHandler struct{}

func (UnimplementedLedgerServiceHandler) PreviewSplit(context.Context, *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.PreviewSplit is not implemented"))
}

func (UnimplementedLedgerServiceHandler) CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.CreateExpense is not implemented"))
}

func (UnimplementedLedgerServiceHandler) UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.UpdateExpense is not implemented"))
}

func (UnimplementedLedgerServiceHandler) DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.DeleteExpense is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetExpenseShares(context.Context, *connect.Request[api.GetExpenseSharesRequest]) (*connect.Response[api.ExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.GetExpenseShares is not implemented"))
}

func (UnimplementedLedgerServiceHandler) ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.ListExpenses is not implemented"))
}

func (UnimplementedLedgerServiceHandler) ListUserShares(context.Context, *connect.Request[api.ListUserSharesRequest]) (*connect.Response[api.ListUserSharesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.ListUserShares is not implemented"))
}

func (UnimplementedLedgerServiceHandler) RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.RecordSettlement is not implemented"))
}

func (UnimplementedLedgerServiceHandler) ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.ListSettlements is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.GetBalance is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.GetGroupBalances is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetUserBalances(context.Context, *connect.Request[api.GetUserBalancesRequest]) (*connect.Response[api.GetUserBalancesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.GetUserBalances is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetAllUserBalances(context.Context, *connect.Request[api.GetAllUserBalancesRequest]) (*connect.Response[api.GetAllUserBalancesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.GetAllUserBalances is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetGroupSummary(context.Context, *connect.Request[api.GetGroupSummaryRequest]) (*connect.Response[api.GetGroupSummaryResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.GetGroupSummary is not implemented"))
}

func (UnimplementedLedgerServiceHandler) SimplifyDebts(context.Context, *connect.Request[api.SimplifyDebtsRequest]) (*connect.Response[api.SimplifyDebtsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.SimplifyDebts is not implemented"))
}

func (UnimplementedLedgerServiceHandler) Reconcile(context.Context, *connect.Request[api.ReconcileRequest]) (*connect.Response[api.ReconcileResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.Reconcile is not implemented"))
}

func (UnimplementedLedgerServiceHandler) AddMembers(context.Context, *connect.Request[api.AddMembersRequest]) (*connect.Response[api.MembersResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.AddMembers is not implemented"))
}

func (UnimplementedLedgerServiceHandler) RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.MembersResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitledger.v1.LedgerService.RemoveMember is not implemented"))
}
