package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const expenseColumns = `id, group_id, payer_id, amount, method, participants, params,
	description, category, notes, expense_date, is_reimbursement,
	revision, status, created_by, created_at, updated_at`

// upsertExpense writes the latest revision of an expense inside tx.
func upsertExpense(ctx context.Context, tx *sql.Tx, exp *models.Expense) error {
	participants, err := json.Marshal(exp.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}
	params, err := json.Marshal(exp.Params)
	if err != nil {
		return fmt.Errorf("failed to encode split params: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   payer_id = excluded.payer_id,
		   amount = excluded.amount,
		   method = excluded.method,
		   participants = excluded.participants,
		   params = excluded.params,
		   description = excluded.description,
		   category = excluded.category,
		   notes = excluded.notes,
		   expense_date = excluded.expense_date,
		   is_reimbursement = excluded.is_reimbursement,
		   revision = excluded.revision,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		exp.ID, exp.GroupID, exp.PayerID, int64(exp.Amount), string(exp.Method), string(participants), string(params),
		exp.Description, exp.Category, exp.Notes, exp.ExpenseDate, exp.IsReimbursement,
		exp.Revision, string(exp.Status), exp.CreatedBy, exp.CreatedAt, exp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		exp                  models.Expense
		participants, params string
	)
	err := row.Scan(&exp.ID, &exp.GroupID, &exp.PayerID, &exp.Amount, &exp.Method, &participants, &params,
		&exp.Description, &exp.Category, &exp.Notes, &exp.ExpenseDate, &exp.IsReimbursement,
		&exp.Revision, &exp.Status, &exp.CreatedBy, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participants), &exp.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &exp.Params); err != nil {
		return nil, fmt.Errorf("failed to decode split params: %w", err)
	}
	return &exp, nil
}

// GetExpense retrieves the latest revision of an expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID)
	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return exp, nil
}

// ListExpenses retrieves the expenses of a group matching filter, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, groupID string, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE group_id = ?"
	args := []any{groupID}
	if filter.UserID != "" {
		query += " AND (payer_id = ? OR EXISTS (SELECT 1 FROM json_each(participants) WHERE value = ?))"
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.From != "" {
		query += " AND expense_date <> '' AND expense_date >= ?"
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += " AND expense_date <> '' AND expense_date <= ?"
		args = append(args, filter.To)
	}
	query += " ORDER BY created_at DESC, id"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// paginate appends LIMIT and OFFSET clauses. SQLite needs a LIMIT before
// an OFFSET, so an offset alone uses LIMIT -1.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	switch {
	case limit > 0:
		query += " LIMIT ?"
		args = append(args, limit)
	case offset > 0:
		query += " LIMIT -1"
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

// ExpenseShares retrieves the shares of one expense revision in participant order.
func (s *SQLiteStore) ExpenseShares(ctx context.Context, expenseID string, revision int) ([]models.ExpenseShare, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, revision, participant_id, position, amount
		 FROM expense_shares WHERE expense_id = ? AND revision = ? ORDER BY position`,
		expenseID, revision,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		var sh models.ExpenseShare
		if err := rows.Scan(&sh.ExpenseID, &sh.Revision, &sh.ParticipantID, &sh.Position, &sh.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense share: %w", err)
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense shares: %w", err)
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("shares of expense %s revision %d: %w", expenseID, revision, storage.ErrNotFound)
	}
	return shares, nil
}

// UserShares retrieves userID's shares of the current revision of every
// active expense, newest first. An empty groupID means every group.
func (s *SQLiteStore) UserShares(ctx context.Context, userID, groupID string) ([]models.UserShare, error) {
	query := `SELECT sh.expense_id, sh.revision, sh.participant_id, sh.position, sh.amount,
		e.group_id, e.payer_id, e.description, e.category, e.expense_date
		FROM expense_shares sh
		JOIN expenses e ON e.id = sh.expense_id AND e.revision = sh.revision
		WHERE sh.participant_id = ? AND e.status = ?`
	args := []any{userID, string(models.ExpenseActive)}
	if groupID != "" {
		query += " AND e.group_id = ?"
		args = append(args, groupID)
	}
	query += " ORDER BY e.created_at DESC, e.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user shares: %w", err)
	}
	defer rows.Close()

	var shares []models.UserShare
	for rows.Next() {
		var sh models.UserShare
		err := rows.Scan(&sh.ExpenseID, &sh.Revision, &sh.ParticipantID, &sh.Position, &sh.Amount,
			&sh.GroupID, &sh.PayerID, &sh.Description, &sh.Category, &sh.ExpenseDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user share: %w", err)
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user shares: %w", err)
	}
	return shares, nil
}
