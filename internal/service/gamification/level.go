package gamification

import (
	"errors"
	"fmt"
	"math"

	domain "locova/internal/domain/gamification"
)

// ErrInvalidLevels is returned when a level table is malformed
var ErrInvalidLevels = errors.New("invalid level table")

// DefaultLevels is the tier table shipped with the app
var DefaultLevels = []domain.Level{
	{Name: "Newbie", MinPoints: 0, Emoji: "🧢"},
	{Name: "Explorer", MinPoints: 50, Emoji: "🎒"},
	{Name: "Trendsetter", MinPoints: 150, Emoji: "🔥"},
	{Name: "Influencer", MinPoints: 300, Emoji: "📸"},
	{Name: "Local Legend", MinPoints: 500, Emoji: "🏆"},
}

// LevelTable maps point totals to named tiers. The table always starts at a
// zero-threshold floor and is strictly ascending.
type LevelTable struct {
	levels []domain.Level
}

// NewLevelTable validates and copies levels
func NewLevelTable(levels []domain.Level) (*LevelTable, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrInvalidLevels)
	}
	if levels[0].MinPoints != 0 {
		return nil, fmt.Errorf("%w: first level %q must start at 0 points", ErrInvalidLevels, levels[0].Name)
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].MinPoints <= levels[i-1].MinPoints {
			return nil, fmt.Errorf("%w: level %q is not above %q", ErrInvalidLevels, levels[i].Name, levels[i-1].Name)
		}
	}

	copied := make([]domain.Level, len(levels))
	copy(copied, levels)

	return &LevelTable{levels: copied}, nil
}

// MustLevelTable is like NewLevelTable but panics on a malformed table
func MustLevelTable(levels []domain.Level) *LevelTable {
	t, err := NewLevelTable(levels)
	if err != nil {
		panic(err)
	}
	return t
}

// Levels returns a copy of the table
func (t *LevelTable) Levels() []domain.Level {
	levels := make([]domain.Level, len(t.levels))
	copy(levels, t.levels)
	return levels
}

// Resolve returns the highest tier whose threshold is <= points.
// Negative points are treated as zero.
func (t *LevelTable) Resolve(points int) domain.Level {
	return t.levels[t.index(points)]
}

func (t *LevelTable) index(points int) int {
	if points < 0 {
		points = 0
	}

	idx := 0
	for i, level := range t.levels {
		if points >= level.MinPoints {
			idx = i
		}
	}
	return idx
}

// Progress describes how far a user is between their level and the next one
type Progress struct {
	Points  int           `json:"points"`
	Current domain.Level  `json:"level"`
	Next    *domain.Level `json:"next_level,omitempty"`
	Percent float64       `json:"progress"`
}

// Progress computes level progress for points
func (t *LevelTable) Progress(points int) Progress {
	idx := t.index(points)
	p := Progress{
		Points:  points,
		Current: t.levels[idx],
		Percent: 100,
	}

	if idx+1 < len(t.levels) {
		next := t.levels[idx+1]
		p.Next = &next

		earned := math.Max(0, float64(points-p.Current.MinPoints))
		span := float64(next.MinPoints - p.Current.MinPoints)
		p.Percent = math.Round(earned/span*100*100) / 100
	}

	return p
}
