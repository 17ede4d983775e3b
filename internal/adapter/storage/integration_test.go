package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locova/internal/domain/engagement"
	"locova/internal/domain/gamification"
	"locova/internal/domain/trend"
)

// connectTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// using it are skipped when the variable is unset.
func connectTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, Migrate(ctx, db))
	return db
}

func createTestTrend(t *testing.T, store *TrendStore, userID string, at *trend.Location) trend.Trend {
	t.Helper()

	tr := trend.Trend{
		ID:          uuid.New().String(),
		Title:       "Harbor fireworks",
		Category:    "events",
		Location:    "Boston",
		Coordinates: at,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateTrend(context.Background(), tr))
	return tr
}

func TestEngagementStore_ToggleTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	db := connectTestDB(t)
	trends := NewTrendStore(db)
	store := NewEngagementStore(db)

	tr := createTestTrend(t, trends, "author", nil)
	userID := uuid.New().String()

	result, err := store.ToggleLike(ctx, engagement.KindTrend, tr.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, engagement.Activated, result)

	rows, err := store.LikeRows(ctx, engagement.KindTrend, []string{tr.ID})
	require.NoError(t, err)
	assert.Equal(t, []engagement.Row{{EntityID: tr.ID, UserID: userID}}, rows)

	result, err = store.ToggleLike(ctx, engagement.KindTrend, tr.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, engagement.Deactivated, result)

	rows, err = store.LikeRows(ctx, engagement.KindTrend, []string{tr.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)

	result, err = store.ToggleSave(ctx, tr.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, engagement.Activated, result)

	saved, err := trends.FindSavedTrends(ctx, userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, tr.ID, saved[0].ID)
}

func TestLedgerStore_DuplicateInsertConflicts(t *testing.T) {
	ctx := context.Background()
	db := connectTestDB(t)
	ledger := NewLedgerStore(db)

	key := gamification.LedgerKey{
		TargetID: uuid.New().String(),
		UserID:   uuid.New().String(),
		Action:   gamification.ActionLikeTrend,
	}

	exists, err := ledger.HasEntry(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, ledger.Insert(ctx, key))
	assert.ErrorIs(t, ledger.Insert(ctx, key), gamification.ErrLedgerConflict)

	exists, err = ledger.HasEntry(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	// Another action on the same target is a separate claim
	key.Action = gamification.ActionComment
	assert.NoError(t, ledger.Insert(ctx, key))
}

func TestTrendStore_RadiusQueries(t *testing.T) {
	ctx := context.Background()
	db := connectTestDB(t)
	trends := NewTrendStore(db)
	profiles := NewProfileStore(db)

	boston := trend.Location{Latitude: 42.3601, Longitude: -71.0589}
	nyc := trend.Location{Latitude: 40.7128, Longitude: -74.0060}

	author := uuid.New().String()
	tr := createTestTrend(t, trends, author, &boston)

	total, err := profiles.IncrementPoints(ctx, author, 10)
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, 10, *total)

	near, err := trends.FindTrendsWithinRadius(ctx, boston, 5, 500)
	require.NoError(t, err)
	found := false
	for _, candidate := range near {
		if candidate.ID == tr.ID {
			found = true
			require.NotNil(t, candidate.DistanceKm)
			assert.Less(t, *candidate.DistanceKm, 0.01)
			require.NotNil(t, candidate.Coordinates)
			assert.InDelta(t, boston.Latitude, candidate.Coordinates.Latitude, 1e-9)
			assert.InDelta(t, boston.Longitude, candidate.Coordinates.Longitude, 1e-9)
		}
	}
	assert.True(t, found)

	far, err := trends.FindTrendsWithinRadius(ctx, nyc, 5, 500)
	require.NoError(t, err)
	for _, candidate := range far {
		assert.NotEqual(t, tr.ID, candidate.ID)
	}

	rows, err := profiles.TopWithinRadius(ctx, boston, 5, 1000)
	require.NoError(t, err)
	ranked := false
	for _, row := range rows {
		if row.UserID == author {
			ranked = true
			assert.Equal(t, 10, row.Points)
		}
	}
	assert.True(t, ranked)
}

func TestTrendStore_CommentOnMissingTrend(t *testing.T) {
	db := connectTestDB(t)
	trends := NewTrendStore(db)

	err := trends.CreateComment(context.Background(), trend.Comment{
		ID:        uuid.New().String(),
		TrendID:   uuid.New().String(),
		UserID:    "me",
		Body:      "hello",
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, trend.ErrNotFound)
}
