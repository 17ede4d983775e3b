package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"locova/internal/domain/engagement"
	"locova/internal/domain/trend"
)

type engagementTable struct {
	name   string
	column string
}

var (
	trendLikes   = engagementTable{name: "trend_likes", column: "trend_id"}
	commentLikes = engagementTable{name: "comment_likes", column: "comment_id"}
	trendSaves   = engagementTable{name: "trend_saves", column: "trend_id"}
	trendReplies = engagementTable{name: "trend_comments", column: "trend_id"}
)

// EngagementStore implements storage for likes, saves and comment rows
type EngagementStore struct {
	db *pgxpool.Pool
}

// NewEngagementStore creates a new engagement store
func NewEngagementStore(db *pgxpool.Pool) *EngagementStore {
	return &EngagementStore{
		db: db,
	}
}

// ToggleLike inserts the like if absent or deletes it if present
func (s *EngagementStore) ToggleLike(ctx context.Context, kind engagement.Kind, entityID, userID string) (engagement.ToggleResult, error) {
	return s.toggle(ctx, likeTable(kind), entityID, userID)
}

// ToggleSave inserts the save if absent or deletes it if present
func (s *EngagementStore) ToggleSave(ctx context.Context, trendID, userID string) (engagement.ToggleResult, error) {
	return s.toggle(ctx, trendSaves, trendID, userID)
}

func (s *EngagementStore) toggle(ctx context.Context, table engagementTable, entityID, userID string) (engagement.ToggleResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND user_id = $2`, table.name, table.column)
	tag, err := tx.Exec(ctx, deleteQuery, entityID, userID)
	if err != nil {
		return "", fmt.Errorf("error deleting from %s: %w", table.name, err)
	}

	result := engagement.Deactivated
	if tag.RowsAffected() == 0 {
		insertQuery := fmt.Sprintf(`INSERT INTO %s (%s, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table.name, table.column)
		if _, err := tx.Exec(ctx, insertQuery, entityID, userID); err != nil {
			if hasCode(err, foreignKeyViolation) {
				return "", trend.ErrNotFound
			}
			return "", fmt.Errorf("error inserting into %s: %w", table.name, err)
		}
		result = engagement.Activated
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("error committing toggle: %w", err)
	}

	return result, nil
}

// LikeRows returns every like row for the given entity ids
func (s *EngagementStore) LikeRows(ctx context.Context, kind engagement.Kind, ids []string) ([]engagement.Row, error) {
	return s.rows(ctx, likeTable(kind), ids)
}

// CommentRows returns one row per comment on the given trends
func (s *EngagementStore) CommentRows(ctx context.Context, trendIDs []string) ([]engagement.Row, error) {
	return s.rows(ctx, trendReplies, trendIDs)
}

// SaveRows returns every save row for the given trends
func (s *EngagementStore) SaveRows(ctx context.Context, trendIDs []string) ([]engagement.Row, error) {
	return s.rows(ctx, trendSaves, trendIDs)
}

func (s *EngagementStore) rows(ctx context.Context, table engagementTable, ids []string) ([]engagement.Row, error) {
	query := fmt.Sprintf(`SELECT %s, user_id FROM %s WHERE %s = ANY($1)`, table.column, table.name, table.column)

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", table.name, err)
	}
	defer rows.Close()

	return collectRows(rows, table.name)
}

func collectRows(rows pgx.Rows, table string) ([]engagement.Row, error) {
	var out []engagement.Row
	for rows.Next() {
		var row engagement.Row
		if err := rows.Scan(&row.EntityID, &row.UserID); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", table, err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}

	return out, nil
}

func likeTable(kind engagement.Kind) engagementTable {
	if kind == engagement.KindComment {
		return commentLikes
	}
	return trendLikes
}
