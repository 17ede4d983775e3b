package trend

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a trend or comment does not exist
var ErrNotFound = errors.New("not found")

// Store defines persistence for trends and their comments
type Store interface {
	// CreateTrend inserts a new trend
	CreateTrend(ctx context.Context, t Trend) error

	// GetTrend retrieves a trend by ID
	GetTrend(ctx context.Context, id string) (*Trend, error)

	// FindTrends returns trends newest first, optionally filtered by city
	FindTrends(ctx context.Context, city string, limit int) ([]Trend, error)

	// FindTrendsWithinRadius returns trends within radiusKm of center, nearest first
	FindTrendsWithinRadius(ctx context.Context, center Location, radiusKm float64, limit int) ([]Trend, error)

	// FindRecommended returns trends ordered by like count then recency
	FindRecommended(ctx context.Context, limit int) ([]Trend, error)

	// FindSavedTrends returns trends saved by a user, most recently saved first
	FindSavedTrends(ctx context.Context, userID string) ([]Trend, error)

	// CreateComment inserts a new comment
	CreateComment(ctx context.Context, c Comment) error

	// FindComments returns the comments of a trend, oldest first
	FindComments(ctx context.Context, trendID string) ([]Comment, error)
}
