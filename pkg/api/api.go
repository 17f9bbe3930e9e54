// Package api defines the request and response messages of
// splitledger.v1.LedgerService. Monetary values are integer minor units.
package api

import (
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// Share is one participant's computed portion.
type Share struct {
	ParticipantID string      `json:"participant_id"`
	Amount        money.Money `json:"amount"`
}

// ExpenseInput is an expense as submitted by a client.
type ExpenseInput struct {
	// ID is optional on create; supply it to make retries idempotent.
	ID              string             `json:"id,omitempty"`
	GroupID         string             `json:"group_id"`
	PayerID         string             `json:"payer_id"`
	Amount          money.Money        `json:"amount"`
	Method          models.SplitMethod `json:"method"`
	Participants    []string           `json:"participants"`
	Params          models.SplitParams `json:"params"`
	Description     string             `json:"description,omitempty"`
	Category        string             `json:"category,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	ExpenseDate     string             `json:"expense_date,omitempty"`
	IsReimbursement bool               `json:"is_reimbursement,omitempty"`
}

type PreviewSplitRequest struct {
	Amount       money.Money        `json:"amount"`
	Method       models.SplitMethod `json:"method"`
	Participants []string           `json:"participants"`
	Params       models.SplitParams `json:"params"`
}

type PreviewSplitResponse struct {
	Shares []Share `json:"shares"`
}

type CreateExpenseRequest struct {
	Expense ExpenseInput `json:"expense"`
}

type UpdateExpenseRequest struct {
	Expense ExpenseInput `json:"expense"`
	// Revision is the new revision number: the current one plus one.
	Revision int `json:"revision"`
}

// ExpenseResponse carries an expense revision and its shares.
type ExpenseResponse struct {
	Expense   *models.Expense       `json:"expense"`
	Shares    []models.ExpenseShare `json:"shares"`
	Duplicate bool                  `json:"duplicate,omitempty"`
}

type DeleteExpenseRequest struct {
	GroupID   string `json:"group_id"`
	ExpenseID string `json:"expense_id"`
	// Revision, when set, must be the current revision of the expense.
	Revision int `json:"revision,omitempty"`
}

type DeleteExpenseResponse struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type GetExpenseSharesRequest struct {
	ExpenseID string `json:"expense_id"`
}

// ListExpensesRequest lists a group's expenses, newest first. The optional
// fields narrow the result.
type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
	// UserID keeps expenses the user paid for or takes part in.
	UserID   string `json:"user_id,omitempty"`
	Category string `json:"category,omitempty"`
	// From and To bound the expense date (YYYY-MM-DD), both inclusive.
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []*models.Expense `json:"expenses"`
}

// ListUserSharesRequest lists what a user owes on the current revision of
// every active expense, in one group or, without GroupID, in all groups.
type ListUserSharesRequest struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id,omitempty"`
}

type ListUserSharesResponse struct {
	Shares []models.UserShare `json:"shares"`
	Total  money.Money        `json:"total"`
}

type RecordSettlementRequest struct {
	ID        string      `json:"id,omitempty"`
	GroupID   string      `json:"group_id"`
	PayerID   string      `json:"payer_id"`
	PayeeID   string      `json:"payee_id"`
	Amount    money.Money `json:"amount"`
	Method    string      `json:"method,omitempty"`
	Reference string      `json:"reference,omitempty"`
	Note      string      `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *models.Settlement `json:"settlement"`
	Duplicate  bool               `json:"duplicate,omitempty"`
}

// ListSettlementsRequest lists a group's settlements, newest first. UserID
// keeps the settlements a user paid or received. When both UserA and UserB
// are set only settlements between the two are returned.
type ListSettlementsRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id,omitempty"`
	UserA   string `json:"user_a,omitempty"`
	UserB   string `json:"user_b,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []*models.Settlement `json:"settlements"`
}

type GetBalanceRequest struct {
	GroupID string `json:"group_id"`
	UserA   string `json:"user_a"`
	UserB   string `json:"user_b"`
}

// GetBalanceResponse reports what UserA owes UserB: positive when A owes B,
// negative when B owes A.
type GetBalanceResponse struct {
	Amount money.Money  `json:"amount"`
	Edge   *models.Edge `json:"edge,omitempty"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupBalancesResponse struct {
	Edges []models.Edge `json:"edges"`
}

type GetUserBalancesRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type GetUserBalancesResponse struct {
	Edges []models.Edge `json:"edges"`
	// Net is positive when the group owes the user.
	Net money.Money `json:"net"`
}

type GetAllUserBalancesRequest struct {
	UserID string `json:"user_id"`
}

// GroupNet is a user's net position in one group.
type GroupNet struct {
	GroupID string      `json:"group_id"`
	Net     money.Money `json:"net"`
}

// GetAllUserBalancesResponse lists a user's edges in every group. Net sums
// the per-group nets; it is positive when the user is owed overall.
type GetAllUserBalancesResponse struct {
	Edges  []models.Edge `json:"edges"`
	Groups []GroupNet    `json:"groups"`
	Net    money.Money   `json:"net"`
}

type GetGroupSummaryRequest struct {
	GroupID string `json:"group_id"`
}

type MemberSummary struct {
	UserID    string      `json:"user_id"`
	Net       money.Money `json:"net"`
	Owed      money.Money `json:"owed"`
	Owing     money.Money `json:"owing"`
	EdgeCount int         `json:"edge_count"`
}

type GetGroupSummaryResponse struct {
	Members []MemberSummary `json:"members"`
}

type SimplifyDebtsRequest struct {
	GroupID string `json:"group_id"`
}

type SimplifyDebtsResponse struct {
	Transfers []models.Edge `json:"transfers"`
}

type ReconcileRequest struct {
	// GroupIDs limits the check; empty checks every group.
	GroupIDs []string `json:"group_ids,omitempty"`
}

type GroupProblems struct {
	GroupID  string   `json:"group_id"`
	Problems []string `json:"problems"`
}

type ReconcileResponse struct {
	Checked      int             `json:"checked"`
	Inconsistent []GroupProblems `json:"inconsistent"`
}

type AddMembersRequest struct {
	GroupID string   `json:"group_id"`
	UserIDs []string `json:"user_ids"`
}

type RemoveMemberRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

type MembersResponse struct {
	GroupID string   `json:"group_id"`
	Members []string `json:"members"`
}
