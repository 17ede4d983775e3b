package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "locova/internal/domain/gamification"
)

func TestNewLevelTable_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		levels []domain.Level
	}{
		{"empty", nil},
		{"no zero floor", []domain.Level{{Name: "A", MinPoints: 10}}},
		{"not ascending", []domain.Level{{Name: "A", MinPoints: 0}, {Name: "B", MinPoints: 50}, {Name: "C", MinPoints: 20}}},
		{"duplicate threshold", []domain.Level{{Name: "A", MinPoints: 0}, {Name: "B", MinPoints: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLevelTable(tt.levels)
			assert.ErrorIs(t, err, ErrInvalidLevels)
		})
	}
}

func TestLevelTable_Resolve(t *testing.T) {
	table := MustLevelTable(DefaultLevels)

	tests := []struct {
		points int
		want   string
	}{
		{-20, "Newbie"},
		{0, "Newbie"},
		{49, "Newbie"},
		{50, "Explorer"},
		{149, "Explorer"},
		{150, "Trendsetter"},
		{300, "Influencer"},
		{499, "Influencer"},
		{500, "Local Legend"},
		{100000, "Local Legend"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, table.Resolve(tt.points).Name, "points=%d", tt.points)
	}
}

func TestLevelTable_ResolveIsGreatestThresholdAtOrBelow(t *testing.T) {
	table := MustLevelTable(DefaultLevels)

	for p := 0; p <= 700; p++ {
		got := table.Resolve(p)
		require.LessOrEqual(t, got.MinPoints, p)
		for _, level := range DefaultLevels {
			if level.MinPoints <= p {
				require.GreaterOrEqual(t, got.MinPoints, level.MinPoints, "points=%d", p)
			}
		}
	}
}

func TestLevelTable_ResolveIsMonotonic(t *testing.T) {
	table := MustLevelTable(DefaultLevels)

	prev := table.Resolve(0)
	for p := 1; p <= 700; p++ {
		cur := table.Resolve(p)
		require.GreaterOrEqual(t, cur.MinPoints, prev.MinPoints, "points=%d", p)
		prev = cur
	}
}

func TestLevelTable_CopiesInput(t *testing.T) {
	levels := []domain.Level{{Name: "Base", MinPoints: 0}, {Name: "Pro", MinPoints: 10}}
	table := MustLevelTable(levels)

	levels[1].Name = "Changed"

	assert.Equal(t, "Pro", table.Resolve(10).Name)
}

func TestLevelTable_Progress(t *testing.T) {
	table := MustLevelTable(DefaultLevels)

	p := table.Progress(100)
	assert.Equal(t, "Explorer", p.Current.Name)
	require.NotNil(t, p.Next)
	assert.Equal(t, "Trendsetter", p.Next.Name)
	assert.Equal(t, 50.0, p.Percent)

	top := table.Progress(900)
	assert.Equal(t, "Local Legend", top.Current.Name)
	assert.Nil(t, top.Next)
	assert.Equal(t, 100.0, top.Percent)

	neg := table.Progress(-5)
	assert.Equal(t, "Newbie", neg.Current.Name)
	assert.Equal(t, 0.0, neg.Percent)
}
