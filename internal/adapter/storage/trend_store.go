package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"locova/internal/domain/trend"
)

const trendColumns = `
	t.id, t.title, t.category, t.location,
	ST_X(t.coordinates::geometry) AS lng, ST_Y(t.coordinates::geometry) AS lat,
	COALESCE(t.user_id, ''), t.created_at,
	(SELECT count(*) FROM trend_likes l WHERE l.trend_id = t.id) AS like_count,
	(SELECT count(*) FROM trend_comments c WHERE c.trend_id = t.id) AS comment_count`

// TrendStore implements storage for trends and comments
type TrendStore struct {
	db *pgxpool.Pool
}

// NewTrendStore creates a new trend store
func NewTrendStore(db *pgxpool.Pool) *TrendStore {
	return &TrendStore{
		db: db,
	}
}

// CreateTrend inserts a new trend
func (s *TrendStore) CreateTrend(ctx context.Context, t trend.Trend) error {
	query := `
		INSERT INTO trends (id, title, category, location, coordinates, user_id, created_at)
		VALUES (
			$1, $2, $3, $4,
			CASE WHEN $5::float8 IS NOT NULL AND $6::float8 IS NOT NULL
				THEN ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography END,
			NULLIF($7, ''), $8
		)
	`

	// Prepare location data
	var lng, lat *float64
	if t.Coordinates != nil {
		lng = &t.Coordinates.Longitude
		lat = &t.Coordinates.Latitude
	}

	_, err := s.db.Exec(ctx, query, t.ID, t.Title, t.Category, t.Location, lng, lat, t.UserID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// GetTrend retrieves a trend by ID
func (s *TrendStore) GetTrend(ctx context.Context, id string) (*trend.Trend, error) {
	query := `SELECT ` + trendColumns + ` FROM trends t WHERE t.id = $1`

	t, err := scanTrend(s.db.QueryRow(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trend.ErrNotFound
		}
		return nil, fmt.Errorf("error querying trend: %w", err)
	}

	return t, nil
}

// FindTrends returns trends newest first, optionally filtered by a
// case-insensitive city substring
func (s *TrendStore) FindTrends(ctx context.Context, city string, limit int) ([]trend.Trend, error) {
	query := `SELECT ` + trendColumns + ` FROM trends t`
	args := []interface{}{}

	if city != "" {
		query += ` WHERE t.location ILIKE '%' || $1 || '%'`
		args = append(args, city)
	}

	query += fmt.Sprintf(" ORDER BY t.created_at DESC, t.id DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	return s.queryTrends(ctx, false, query, args...)
}

// FindTrendsWithinRadius returns trends within radiusKm of center, nearest first
func (s *TrendStore) FindTrendsWithinRadius(ctx context.Context, center trend.Location, radiusKm float64, limit int) ([]trend.Trend, error) {
	query := `
		SELECT ` + trendColumns + `,
			ST_Distance(t.coordinates, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000 AS distance
		FROM trends t
		WHERE t.coordinates IS NOT NULL
		AND ST_DWithin(t.coordinates, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3 * 1000)
		ORDER BY distance ASC
		LIMIT $4
	`

	return s.queryTrends(ctx, true, query, center.Longitude, center.Latitude, radiusKm, limit)
}

// FindRecommended returns trends ordered by like count then recency
func (s *TrendStore) FindRecommended(ctx context.Context, limit int) ([]trend.Trend, error) {
	query := `SELECT ` + trendColumns + ` FROM trends t ORDER BY like_count DESC, t.created_at DESC LIMIT $1`

	return s.queryTrends(ctx, false, query, limit)
}

// FindSavedTrends returns trends saved by a user, most recently saved first
func (s *TrendStore) FindSavedTrends(ctx context.Context, userID string) ([]trend.Trend, error) {
	query := `
		SELECT ` + trendColumns + `
		FROM trend_saves sv
		JOIN trends t ON t.id = sv.trend_id
		WHERE sv.user_id = $1
		ORDER BY sv.created_at DESC
	`

	return s.queryTrends(ctx, false, query, userID)
}

// CreateComment inserts a new comment
func (s *TrendStore) CreateComment(ctx context.Context, c trend.Comment) error {
	query := `
		INSERT INTO trend_comments (id, trend_id, user_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.Exec(ctx, query, c.ID, c.TrendID, c.UserID, c.Body, c.CreatedAt)
	if err != nil {
		if hasCode(err, foreignKeyViolation) {
			return trend.ErrNotFound
		}
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// FindComments returns the comments of a trend, oldest first
func (s *TrendStore) FindComments(ctx context.Context, trendID string) ([]trend.Comment, error) {
	query := `
		SELECT c.id, c.trend_id, c.user_id, c.comment, c.created_at,
			(SELECT count(*) FROM comment_likes l WHERE l.comment_id = c.id)
		FROM trend_comments c
		WHERE c.trend_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`

	rows, err := s.db.Query(ctx, query, trendID)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	comments := []trend.Comment{}
	for rows.Next() {
		var c trend.Comment
		if err := rows.Scan(&c.ID, &c.TrendID, &c.UserID, &c.Body, &c.CreatedAt, &c.LikeCount); err != nil {
			return nil, fmt.Errorf("error scanning comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

func (s *TrendStore) queryTrends(ctx context.Context, withDistance bool, query string, args ...interface{}) ([]trend.Trend, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	trends := []trend.Trend{}
	for rows.Next() {
		t, err := scanTrend(rows, withDistance)
		if err != nil {
			return nil, fmt.Errorf("error scanning trend: %w", err)
		}
		trends = append(trends, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trends: %w", err)
	}

	return trends, nil
}

func scanTrend(row pgx.Row, withDistance bool) (*trend.Trend, error) {
	var t trend.Trend
	var lng, lat *float64
	var distance float64

	dest := []interface{}{
		&t.ID,
		&t.Title,
		&t.Category,
		&t.Location,
		&lng,
		&lat,
		&t.UserID,
		&t.CreatedAt,
		&t.LikeCount,
		&t.CommentCount,
	}
	if withDistance {
		dest = append(dest, &distance)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	// Set coordinates if present
	if lng != nil && lat != nil {
		t.Coordinates = &trend.Location{
			Longitude: *lng,
			Latitude:  *lat,
		}
	}

	if withDistance {
		t.DistanceKm = &distance
	}

	return &t, nil
}
