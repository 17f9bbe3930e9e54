// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers; a commit is invisible to
	// readers until it is complete.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HasEvent reports whether an event id was committed.
func (s *SQLiteStore) HasEvent(ctx context.Context, eventID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM ledger_events WHERE id = ?", eventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check event existence: %w", err)
	}
	return true, nil
}

// Event retrieves one event with its entries.
func (s *SQLiteStore) Event(ctx context.Context, eventID string) (*models.LedgerEvent, error) {
	ev := &models.LedgerEvent{}
	err := s.db.QueryRowContext(ctx,
		"SELECT seq, id, group_id, kind, subject_id, applied_at FROM ledger_events WHERE id = ?",
		eventID,
	).Scan(&ev.Seq, &ev.ID, &ev.GroupID, &ev.Kind, &ev.SubjectID, &ev.AppliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT debtor, creditor, amount FROM ledger_entries WHERE event_id = ? ORDER BY position",
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.Debtor, &e.Creditor, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		ev.Entries = append(ev.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return ev, nil
}

// Events retrieves the full event history of a group in sequence order.
func (s *SQLiteStore) Events(ctx context.Context, groupID string) ([]models.LedgerEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.seq, e.id, e.group_id, e.kind, e.subject_id, e.applied_at,
		        n.debtor, n.creditor, n.amount
		 FROM ledger_events e
		 LEFT JOIN ledger_entries n ON n.event_id = e.id
		 WHERE e.group_id = ?
		 ORDER BY e.seq, n.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.LedgerEvent
	for rows.Next() {
		var (
			ev               models.LedgerEvent
			debtor, creditor sql.NullString
			amount           sql.NullInt64
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.GroupID, &ev.Kind, &ev.SubjectID, &ev.AppliedAt,
			&debtor, &creditor, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if n := len(events); n == 0 || events[n-1].ID != ev.ID {
			events = append(events, ev)
		}
		if debtor.Valid {
			last := &events[len(events)-1]
			last.Entries = append(last.Entries, models.Entry{
				Debtor:   debtor.String,
				Creditor: creditor.String,
				Amount:   money.Money(amount.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// GroupIDs lists the groups that have ledger history.
func (s *SQLiteStore) GroupIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT group_id FROM ledger_events ORDER BY group_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return ids, nil
}

// PairBalances returns every stored pair balance of a group in one query.
func (s *SQLiteStore) PairBalances(ctx context.Context, groupID string) ([]storage.PairBalance, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_lo, user_hi, net FROM balances WHERE group_id = ? ORDER BY user_lo, user_hi",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []storage.PairBalance
	for rows.Next() {
		var b storage.PairBalance
		if err := rows.Scan(&b.Lo, &b.Hi, &b.Net); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return out, nil
}

// UserPairBalances returns every stored pair balance involving userID.
func (s *SQLiteStore) UserPairBalances(ctx context.Context, userID string) ([]storage.GroupPairBalance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_lo, user_hi, net FROM balances
		 WHERE user_lo = ? OR user_hi = ? ORDER BY group_id, user_lo, user_hi`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user balances: %w", err)
	}
	defer rows.Close()

	var out []storage.GroupPairBalance
	for rows.Next() {
		var b storage.GroupPairBalance
		if err := rows.Scan(&b.GroupID, &b.Lo, &b.Hi, &b.Net); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return out, nil
}

// Commit persists a ledger transition in one transaction.
func (s *SQLiteStore) Commit(ctx context.Context, c storage.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range c.Events {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM ledger_events WHERE id = ?", ev.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("event %s: %w", ev.ID, storage.ErrDuplicateEvent)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check event existence: %w", err)
		}
	}

	// Records first: entries and shares reference them.
	if c.Expense != nil {
		if err := upsertExpense(ctx, tx, c.Expense); err != nil {
			return err
		}
	}
	for _, sh := range c.Shares {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, revision, participant_id, position, amount)
			 VALUES (?, ?, ?, ?, ?)`,
			sh.ExpenseID, sh.Revision, sh.ParticipantID, sh.Position, int64(sh.Amount),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense share: %w", err)
		}
	}
	if c.Settlement != nil {
		if err := insertSettlement(ctx, tx, c.Settlement); err != nil {
			return err
		}
	}

	for _, ev := range c.Events {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO ledger_events (id, group_id, kind, subject_id, applied_at) VALUES (?, ?, ?, ?, ?)",
			ev.ID, c.GroupID, ev.Kind, ev.SubjectID, ev.AppliedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		for i, e := range ev.Entries {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO ledger_entries (event_id, position, debtor, creditor, amount) VALUES (?, ?, ?, ?, ?)",
				ev.ID, i, e.Debtor, e.Creditor, int64(e.Amount),
			)
			if err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}
	}

	now := time.Now().Unix()
	for _, b := range c.Balances {
		if b.Net == 0 {
			_, err = tx.ExecContext(ctx,
				"DELETE FROM balances WHERE group_id = ? AND user_lo = ? AND user_hi = ?",
				c.GroupID, b.Lo, b.Hi,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO balances (group_id, user_lo, user_hi, net, updated_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (group_id, user_lo, user_hi) DO UPDATE SET net = excluded.net, updated_at = excluded.updated_at`,
				c.GroupID, b.Lo, b.Hi, int64(b.Net), now,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to write balance %s/%s: %w", b.Lo, b.Hi, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
