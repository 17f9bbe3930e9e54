package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// insertSettlement persists a new settlement inside tx.
func insertSettlement(ctx context.Context, tx *sql.Tx, settlement *models.Settlement) error {
	var reference, note any
	if settlement.Reference != "" {
		reference = settlement.Reference
	}
	if settlement.Note != "" {
		note = settlement.Note
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, payer_id, payee_id, amount, method, reference, note, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.PayerID, settlement.PayeeID,
		int64(settlement.Amount), settlement.Method, reference, note, settlement.CreatedBy, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var reference, note sql.NullString

	err := row.Scan(&settlement.ID, &settlement.GroupID, &settlement.PayerID, &settlement.PayeeID,
		&settlement.Amount, &settlement.Method, &reference, &note, &settlement.CreatedBy, &settlement.CreatedAt)
	if err != nil {
		return nil, err
	}

	if reference.Valid {
		settlement.Reference = reference.String
	}
	if note.Valid {
		settlement.Note = note.String
	}
	return settlement, nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, payee_id, amount, method, reference, note, created_by, created_at
		 FROM settlements WHERE id = ?`,
		settlementID,
	)
	settlement, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlements retrieves the settlements of a group matching filter, newest first.
func (s *SQLiteStore) ListSettlements(ctx context.Context, groupID string, filter storage.SettlementFilter) ([]*models.Settlement, error) {
	query := `SELECT id, group_id, payer_id, payee_id, amount, method, reference, note, created_by, created_at
		 FROM settlements WHERE group_id = ?`
	args := []any{groupID}
	switch {
	case filter.UserID != "" && filter.Counterparty != "":
		query += " AND ((payer_id = ? AND payee_id = ?) OR (payer_id = ? AND payee_id = ?))"
		args = append(args, filter.UserID, filter.Counterparty, filter.Counterparty, filter.UserID)
	case filter.UserID != "":
		query += " AND (payer_id = ? OR payee_id = ?)"
		args = append(args, filter.UserID, filter.UserID)
	}
	query += " ORDER BY created_at DESC, id"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}
