package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"locova/internal/domain/gamification"
	"locova/internal/domain/trend"
)

// ProfileStore implements storage for profiles, points and rankings
type ProfileStore struct {
	db *pgxpool.Pool
}

// NewProfileStore creates a new profile store
func NewProfileStore(db *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{
		db: db,
	}
}

// IncrementPoints adds amount to the user's points, creating the profile if
// needed, and returns the new total
func (s *ProfileStore) IncrementPoints(ctx context.Context, userID string, amount int) (*int, error) {
	query := `
		INSERT INTO user_profiles (id, points) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET points = user_profiles.points + EXCLUDED.points
		RETURNING points
	`

	var total int
	if err := s.db.QueryRow(ctx, query, userID, amount).Scan(&total); err != nil {
		return nil, fmt.Errorf("error incrementing points: %w", err)
	}

	return &total, nil
}

// GetProfile retrieves a profile by user ID
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*gamification.Profile, error) {
	query := `SELECT id, points, display_name, avatar_url, created_at FROM user_profiles WHERE id = $1`

	var p gamification.Profile
	err := s.db.QueryRow(ctx, query, userID).Scan(&p.ID, &p.Points, &p.DisplayName, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, gamification.ErrNotFound
		}
		return nil, fmt.Errorf("error querying profile: %w", err)
	}

	return &p, nil
}

// UpsertProfile creates or updates a profile's display fields. Nil fields
// keep their stored value and points are never changed.
func (s *ProfileStore) UpsertProfile(ctx context.Context, p gamification.Profile) error {
	query := `
		INSERT INTO user_profiles (id, display_name, avatar_url) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE(EXCLUDED.display_name, user_profiles.display_name),
			avatar_url = COALESCE(EXCLUDED.avatar_url, user_profiles.avatar_url)
	`

	if _, err := s.db.Exec(ctx, query, p.ID, p.DisplayName, p.AvatarURL); err != nil {
		return fmt.Errorf("error upserting profile: %w", err)
	}

	return nil
}

// TopGlobal returns the top users by points
func (s *ProfileStore) TopGlobal(ctx context.Context, limit int) ([]gamification.LeaderboardRow, error) {
	query := `
		SELECT id, points, display_name, avatar_url
		FROM user_profiles
		ORDER BY points DESC, id ASC
		LIMIT $1
	`

	return s.queryRows(ctx, query, limit)
}

// TopWithinRadius returns the top users among authors of trends within
// radiusKm of center
func (s *ProfileStore) TopWithinRadius(ctx context.Context, center trend.Location, radiusKm float64, limit int) ([]gamification.LeaderboardRow, error) {
	query := `
		SELECT p.id, p.points, p.display_name, p.avatar_url
		FROM user_profiles p
		WHERE EXISTS (
			SELECT 1 FROM trends t
			WHERE t.user_id = p.id
			AND t.coordinates IS NOT NULL
			AND ST_DWithin(t.coordinates, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3 * 1000)
		)
		ORDER BY p.points DESC, p.id ASC
		LIMIT $4
	`

	return s.queryRows(ctx, query, center.Longitude, center.Latitude, radiusKm, limit)
}

func (s *ProfileStore) queryRows(ctx context.Context, query string, args ...interface{}) ([]gamification.LeaderboardRow, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := []gamification.LeaderboardRow{}
	for rows.Next() {
		var row gamification.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Points, &row.DisplayName, &row.AvatarURL); err != nil {
			return nil, fmt.Errorf("error scanning leaderboard row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return out, nil
}
