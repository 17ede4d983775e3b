package engagement

import (
	"context"
	"errors"
)

// Kind identifies the type of entity that can be engaged with
type Kind string

const (
	KindTrend   Kind = "trend"
	KindComment Kind = "comment"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindTrend || k == KindComment
}

// ToggleResult reports the state a toggle left behind
type ToggleResult string

const (
	Activated   ToggleResult = "activated"
	Deactivated ToggleResult = "deactivated"
)

// Row is a single (entity, user) engagement row: a like, comment or save
type Row struct {
	EntityID string
	UserID   string
}

// Counts holds aggregated engagement counts for one entity
type Counts struct {
	Likes    int `json:"like_count"`
	Comments int `json:"comment_count"`
	Saves    int `json:"save_count"`
}

// Common errors
var (
	ErrAuthRequired = errors.New("authentication required")
	ErrBusy         = errors.New("action already in progress")
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the backend contract for engagement rows
type Store interface {
	// ToggleLike inserts the like if absent or deletes it if present
	ToggleLike(ctx context.Context, kind Kind, entityID, userID string) (ToggleResult, error)

	// ToggleSave inserts the save if absent or deletes it if present
	ToggleSave(ctx context.Context, trendID, userID string) (ToggleResult, error)

	// LikeRows returns every like row for the given entity ids
	LikeRows(ctx context.Context, kind Kind, ids []string) ([]Row, error)

	// CommentRows returns (trend, author) rows for every comment on the given trends
	CommentRows(ctx context.Context, trendIDs []string) ([]Row, error)

	// SaveRows returns every save row for the given trends
	SaveRows(ctx context.Context, trendIDs []string) ([]Row, error)
}
