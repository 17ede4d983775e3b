package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	domain "locova/internal/domain/gamification"
	"locova/internal/domain/identity"
	"locova/internal/domain/trend"
)

// Leaderboard scopes
const (
	ScopeGlobal = "global"
	ScopeRadius = "radius"
)

// Entry is a leaderboard row ready for rendering
type Entry struct {
	Rank        int          `json:"rank"`
	UserID      string       `json:"id"`
	Points      int          `json:"points"`
	DisplayName *string      `json:"display_name,omitempty"`
	AvatarURL   *string      `json:"avatar_url,omitempty"`
	Level       domain.Level `json:"level"`
	IsYou       bool         `json:"is_you"`
}

// Standing is the viewer's own position
type Standing struct {
	Rank   int          `json:"rank"`
	Points int          `json:"points"`
	Level  domain.Level `json:"level"`

	// Approximate is set when the viewer is outside the fetched window. The
	// rank is then only a lower bound derived from that window; the true
	// global rank is unknown.
	Approximate bool `json:"approximate"`
}

// Board is an assembled leaderboard
type Board struct {
	Scope   string    `json:"scope"`
	Entries []Entry   `json:"entries"`
	You     *Standing `json:"you,omitempty"`
}

// Assemble keeps the backend's ranking order and computes the viewer's
// standing. When the viewer is absent from rows, their rank is
// 1 + the number of rows with strictly more points.
func Assemble(rows []domain.LeaderboardRow, viewer *domain.Profile, levels *LevelTable) Board {
	board := Board{Entries: make([]Entry, 0, len(rows))}

	for i, row := range rows {
		entry := Entry{
			Rank:        i + 1,
			UserID:      row.UserID,
			Points:      row.Points,
			DisplayName: row.DisplayName,
			AvatarURL:   row.AvatarURL,
			Level:       levels.Resolve(row.Points),
		}

		if viewer != nil && viewer.ID == row.UserID {
			entry.IsYou = true
			board.You = &Standing{Rank: entry.Rank, Points: row.Points, Level: entry.Level}
		}

		board.Entries = append(board.Entries, entry)
	}

	if board.You == nil && viewer != nil {
		board.You = &Standing{
			Rank:        ApproximateRank(rows, viewer.Points),
			Points:      viewer.Points,
			Level:       levels.Resolve(viewer.Points),
			Approximate: true,
		}
	}

	return board
}

// ApproximateRank returns 1 + count(rows with points > points)
func ApproximateRank(rows []domain.LeaderboardRow, points int) int {
	rank := 1
	for _, row := range rows {
		if row.Points > points {
			rank++
		}
	}
	return rank
}

// LeaderboardService fetches ranked rows for a scope and assembles them
type LeaderboardService struct {
	ranker       domain.Ranker
	profiles     domain.ProfileStore
	levels       *LevelTable
	defaultLimit int
	logger       *logrus.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(
	ranker domain.Ranker,
	profiles domain.ProfileStore,
	levels *LevelTable,
	defaultLimit int,
	logger *logrus.Logger,
) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}

	return &LeaderboardService{
		ranker:       ranker,
		profiles:     profiles,
		levels:       levels,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Leaderboard returns the board for scope. Scope only selects which ranking
// query is issued; assembly is identical for both.
func (s *LeaderboardService) Leaderboard(ctx context.Context, scope trend.Scope, session identity.Session, limit int) (*Board, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	var (
		rows      []domain.LeaderboardRow
		err       error
		scopeName = ScopeGlobal
	)

	if scope.IsRadius() {
		scopeName = ScopeRadius
		rows, err = s.ranker.TopWithinRadius(ctx, *scope.Center, scope.RadiusKm, limit)
	} else {
		rows, err = s.ranker.TopGlobal(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading leaderboard: %w", err)
	}

	var viewer *domain.Profile
	if session.Authenticated() {
		viewer, err = s.profiles.GetProfile(ctx, session.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.WithField("user_id", session.UserID).WithError(err).Warn("Failed to load viewer profile for leaderboard")
			}
			viewer = nil
		}
	}

	board := Assemble(rows, viewer, s.levels)
	board.Scope = scopeName

	return &board, nil
}
