package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/storage"
)

// IsActiveMember reports whether userID is an active member of groupID.
func (s *SQLiteStore) IsActiveMember(ctx context.Context, groupID, userID string) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) > 0 FROM group_members WHERE group_id = ? AND user_id = ? AND active = 1",
		groupID, userID,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return active, nil
}

// ActiveMembers lists the active members of a group.
func (s *SQLiteStore) ActiveMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? AND active = 1 ORDER BY user_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// AddMembers adds users to a group, reactivating members who left.
func (s *SQLiteStore) AddMembers(ctx context.Context, groupID string, userIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, id := range userIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, active, joined_at) VALUES (?, ?, 1, ?)
			 ON CONFLICT (group_id, user_id) DO UPDATE SET active = 1`,
			groupID, id, now,
		)
		if err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveMember deactivates a member. Existing balances are untouched.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET active = 0 WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrNotFound)
	}
	return nil
}
