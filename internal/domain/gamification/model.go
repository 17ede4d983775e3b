package gamification

import (
	"context"
	"errors"
	"time"

	"locova/internal/domain/trend"
)

// Level is a named tier reached at MinPoints
type Level struct {
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
	Emoji     string `json:"emoji"`
}

// Profile is a user's public profile and point total
type Profile struct {
	ID          string    `json:"id"`
	Points      int       `json:"points"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LeaderboardRow is a single ranked row returned by the backend
type LeaderboardRow struct {
	UserID      string  `json:"id"`
	Points      int     `json:"points"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Action identifies the engagement action a reward is paid for
type Action string

const (
	ActionLikeTrend   Action = "like_trend"
	ActionLikeComment Action = "like_comment"
	ActionComment     Action = "comment"
)

// LedgerKey identifies a one-time reward
type LedgerKey struct {
	TargetID string
	UserID   string
	Action   Action
}

// Common errors
var (
	// ErrLedgerConflict is returned by Ledger.Insert when the key already exists
	ErrLedgerConflict = errors.New("reward ledger entry already exists")
	ErrNotFound       = errors.New("not found")
)

// Ledger records rewards that have already been granted
type Ledger interface {
	// HasEntry reports whether a ledger row exists for key
	HasEntry(ctx context.Context, key LedgerKey) (bool, error)

	// Insert claims the reward; ErrLedgerConflict on a uniqueness violation
	Insert(ctx context.Context, key LedgerKey) error
}

// PointsStore increments user point totals
type PointsStore interface {
	// IncrementPoints adds amount to the user's points. The new total is
	// returned when the backend reports it, nil otherwise.
	IncrementPoints(ctx context.Context, userID string, amount int) (*int, error)
}

// Ranker issues backend leaderboard queries
type Ranker interface {
	// TopGlobal returns the top users by points
	TopGlobal(ctx context.Context, limit int) ([]LeaderboardRow, error)

	// TopWithinRadius returns the top users among those who posted trends within radiusKm of center
	TopWithinRadius(ctx context.Context, center trend.Location, radiusKm float64, limit int) ([]LeaderboardRow, error)
}

// ProfileStore reads and writes user profiles
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p Profile) error
}
