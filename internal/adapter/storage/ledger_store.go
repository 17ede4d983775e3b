package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"locova/internal/domain/gamification"
)

// LedgerStore records granted one-time rewards
type LedgerStore struct {
	db *pgxpool.Pool
}

// NewLedgerStore creates a new ledger store
func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{
		db: db,
	}
}

// HasEntry reports whether the reward for key was already granted
func (s *LedgerStore) HasEntry(ctx context.Context, key gamification.LedgerKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reward_ledger
			WHERE target_id = $1 AND user_id = $2 AND action = $3
		)
	`

	var exists bool
	if err := s.db.QueryRow(ctx, query, key.TargetID, key.UserID, string(key.Action)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error querying ledger: %w", err)
	}

	return exists, nil
}

// Insert claims the reward for key. The primary key turns a concurrent
// duplicate claim into gamification.ErrLedgerConflict.
func (s *LedgerStore) Insert(ctx context.Context, key gamification.LedgerKey) error {
	query := `INSERT INTO reward_ledger (target_id, user_id, action) VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, query, key.TargetID, key.UserID, string(key.Action)); err != nil {
		if hasCode(err, uniqueViolation) {
			return gamification.ErrLedgerConflict
		}
		return fmt.Errorf("error inserting ledger entry: %w", err)
	}

	return nil
}
