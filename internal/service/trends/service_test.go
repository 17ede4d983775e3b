package trends

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locova/internal/adapter/memory"
	"locova/internal/domain/engagement"
	"locova/internal/domain/geo"
	"locova/internal/domain/identity"
	"locova/internal/domain/realtime"
	"locova/internal/domain/trend"
	engagementService "locova/internal/service/engagement"
	"locova/internal/service/gamification"
)

type recordingPublisher struct {
	changes []realtime.Change
}

func (p *recordingPublisher) Publish(change realtime.Change) error {
	p.changes = append(p.changes, change)
	return nil
}

type fixture struct {
	store      *memory.Store
	trends     *Service
	engagement *engagementService.Service
	publisher  *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	builder := engagementService.NewSnapshotBuilder(store, 2)
	guard := gamification.NewRewardGuard(store, store, logger)
	publisher := &recordingPublisher{}

	return fixture{
		store: store,
		trends: NewService(store, builder, guard, publisher, Config{
			Radius:  geo.RadiusLimits{Default: 20, Min: 1, Max: 100},
			Rewards: Rewards{Submit: 10, Comment: 3},
		}, logger),
		engagement: engagementService.NewService(store, builder, guard, publisher,
			engagementService.RewardAmounts{LikeTrend: 2, LikeComment: 1}, logger),
		publisher: publisher,
	}
}

func (f fixture) points(t *testing.T, userID string) int {
	t.Helper()
	p, err := f.store.GetProfile(context.Background(), userID)
	if err != nil {
		return 0
	}
	return p.Points
}

func at(lat, lng float64) *Coordinates {
	return &Coordinates{Latitude: &lat, Longitude: &lng}
}

func TestService_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	me := identity.Session{UserID: "me"}

	tests := []struct {
		name    string
		session identity.Session
		req     SubmitRequest
		wantErr error
	}{
		{"anonymous", identity.Session{}, SubmitRequest{Title: "a", Category: "b", Location: "c"}, engagement.ErrAuthRequired},
		{"blank title", me, SubmitRequest{Title: "  ", Category: "b", Location: "c"}, engagement.ErrInvalidInput},
		{"missing category", me, SubmitRequest{Title: "a", Location: "c"}, engagement.ErrInvalidInput},
		{"missing location", me, SubmitRequest{Title: "a", Category: "b"}, engagement.ErrInvalidInput},
		{"bad coordinates", me, SubmitRequest{Title: "a", Category: "b", Location: "c", Coordinates: at(91, 0)}, engagement.ErrInvalidInput},
		{"latitude only", me, SubmitRequest{Title: "a", Category: "b", Location: "c", Coordinates: &Coordinates{Latitude: at(42.36, 0).Latitude}}, engagement.ErrInvalidInput},
		{"longitude only", me, SubmitRequest{Title: "a", Category: "b", Location: "c", Coordinates: &Coordinates{Longitude: at(0, -71.06).Longitude}}, engagement.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.trends.Submit(context.Background(), tt.session, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, f.publisher.changes)
}

func TestService_SubmitThenLikeCreditsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	me := identity.Session{UserID: "me"}
	other := identity.Session{UserID: "other"}

	theirs, err := f.trends.Submit(ctx, other, SubmitRequest{Title: "Street fair", Category: "events", Location: "Taipei"})
	require.NoError(t, err)

	result, err := f.trends.Submit(ctx, me, SubmitRequest{Title: " Night market ", Category: "food", Location: "Taipei"})
	require.NoError(t, err)
	assert.Equal(t, "Night market", result.Trend.Title)
	require.NotNil(t, result.Points)
	assert.Equal(t, 10, *result.Points)

	_, err = f.engagement.ToggleLike(ctx, me, engagement.KindTrend, theirs.Trend.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, f.points(t, "me"))

	// Unlike, re-like and re-fetch must not move the total
	_, err = f.engagement.ToggleLike(ctx, me, engagement.KindTrend, theirs.Trend.ID)
	require.NoError(t, err)
	_, err = f.engagement.ToggleLike(ctx, me, engagement.KindTrend, theirs.Trend.ID)
	require.NoError(t, err)
	_, err = f.engagement.Snapshot(ctx, me, engagement.KindTrend, []string{theirs.Trend.ID, result.Trend.ID})
	require.NoError(t, err)

	assert.Equal(t, 12, f.points(t, "me"))
	assert.Equal(t, 10, f.points(t, "other"))

	require.NotEmpty(t, f.publisher.changes)
	assert.Equal(t, realtime.TableTrends, f.publisher.changes[0].Table)
}

func TestService_SubmitStoresCoordinates(t *testing.T) {
	f := newFixture(t)

	result, err := f.trends.Submit(context.Background(), identity.Session{UserID: "me"},
		SubmitRequest{Title: "a", Category: "b", Location: "c", Coordinates: at(42.36, -71.06)})
	require.NoError(t, err)
	require.NotNil(t, result.Trend.Coordinates)
	assert.Equal(t, trend.Location{Latitude: 42.36, Longitude: -71.06}, *result.Trend.Coordinates)

	empty, err := f.trends.Submit(context.Background(), identity.Session{UserID: "me"},
		SubmitRequest{Title: "a", Category: "b", Location: "c", Coordinates: &Coordinates{}})
	require.NoError(t, err)
	assert.Nil(t, empty.Trend.Coordinates)
}

// failingPoints rejects every increment
type failingPoints struct{}

func (failingPoints) IncrementPoints(ctx context.Context, userID string, amount int) (*int, error) {
	return nil, errors.New("rpc down")
}

func TestService_SubmitSurvivesAwardFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	svc := NewService(store, engagementService.NewSnapshotBuilder(store, 60),
		gamification.NewRewardGuard(store, failingPoints{}, logger), nil,
		Config{Rewards: Rewards{Submit: 10}}, logger)

	result, err := svc.Submit(context.Background(), identity.Session{UserID: "me"}, SubmitRequest{Title: "a", Category: "b", Location: "c"})
	require.NoError(t, err)
	assert.Nil(t, result.Points)

	_, err = store.GetTrend(context.Background(), result.Trend.ID)
	assert.NoError(t, err)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	me := identity.Session{UserID: "me"}

	boston := at(42.3601, -71.0589)
	cambridge := at(42.3736, -71.1097)
	nyc := at(40.7128, -74.0060)

	for _, req := range []SubmitRequest{
		{Title: "Harbor fireworks", Category: "events", Location: "Boston", Coordinates: boston},
		{Title: "Taco truck", Category: "food", Location: "Cambridge", Coordinates: cambridge},
		{Title: "Pizza slice", Category: "food", Location: "New York", Coordinates: nyc},
		{Title: "Quiet park", Category: "outdoors", Location: "Boston"},
	} {
		_, err := f.trends.Submit(ctx, me, req)
		require.NoError(t, err)
	}

	t.Run("radius uses default and orders nearest first", func(t *testing.T) {
		trends, err := f.trends.List(ctx, trend.Filter{Scope: trend.Scope{Center: &trend.Location{Latitude: 42.3601, Longitude: -71.0589}}})
		require.NoError(t, err)
		require.Len(t, trends, 2)
		assert.Equal(t, "Harbor fireworks", trends[0].Title)
		assert.Equal(t, "Taco truck", trends[1].Title)
		require.NotNil(t, trends[1].DistanceKm)
		assert.InDelta(t, 4.5, *trends[1].DistanceKm, 1)
	})

	t.Run("city substring", func(t *testing.T) {
		trends, err := f.trends.List(ctx, trend.Filter{City: "bost"})
		require.NoError(t, err)
		assert.Len(t, trends, 2)
	})

	t.Run("query and category", func(t *testing.T) {
		trends, err := f.trends.List(ctx, trend.Filter{Query: "TACO"})
		require.NoError(t, err)
		require.Len(t, trends, 1)
		assert.Equal(t, "Cambridge", trends[0].Location)

		trends, err = f.trends.List(ctx, trend.Filter{Category: "food"})
		require.NoError(t, err)
		assert.Len(t, trends, 2)
	})

	t.Run("invalid center", func(t *testing.T) {
		_, err := f.trends.List(ctx, trend.Filter{Scope: trend.Scope{Center: &trend.Location{Longitude: 200}}})
		assert.ErrorIs(t, err, engagement.ErrInvalidInput)
	})
}

func TestService_CommentsAndThread(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	me := identity.Session{UserID: "me"}
	other := identity.Session{UserID: "other"}

	submitted, err := f.trends.Submit(ctx, other, SubmitRequest{Title: "a", Category: "b", Location: "c"})
	require.NoError(t, err)
	trendID := submitted.Trend.ID

	_, err = f.trends.AddComment(ctx, me, trendID, "   ")
	assert.ErrorIs(t, err, engagement.ErrInvalidInput)
	_, err = f.trends.AddComment(ctx, me, trendID, strings.Repeat("é", MaxCommentLength+1))
	assert.ErrorIs(t, err, engagement.ErrInvalidInput)
	_, err = f.trends.AddComment(ctx, identity.Session{}, trendID, "hi")
	assert.ErrorIs(t, err, engagement.ErrAuthRequired)
	_, err = f.trends.AddComment(ctx, me, "missing", "hi")
	assert.ErrorIs(t, err, trend.ErrNotFound)

	var ids []string
	for i, text := range []string{"first", "second", strings.Repeat("x", MaxCommentLength)} {
		result, err := f.trends.AddComment(ctx, me, trendID, text)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, gamification.OutcomeCredited, result.Reward)
		} else {
			assert.Equal(t, gamification.OutcomeAlreadyCredited, result.Reward)
		}
		ids = append(ids, result.Comment.ID)
	}
	assert.Equal(t, 3, f.points(t, "me"))

	_, err = f.engagement.ToggleLike(ctx, me, engagement.KindComment, ids[2])
	require.NoError(t, err)
	_, err = f.engagement.ToggleLike(ctx, other, engagement.KindComment, ids[2])
	require.NoError(t, err)

	// Snapshot builder is bounded at 2 ids, so three comments span two batches
	thread, err := f.trends.Thread(ctx, me, trendID)
	require.NoError(t, err)
	require.Len(t, thread.Comments, 3)
	assert.Equal(t, "first", thread.Comments[0].Body)
	assert.Equal(t, 2, thread.Comments[2].LikeCount)
	assert.True(t, thread.Comments[2].LikedByMe)
	assert.False(t, thread.Comments[0].LikedByMe)

	_, err = f.trends.Thread(ctx, me, "missing")
	assert.ErrorIs(t, err, trend.ErrNotFound)
}

func TestService_SavedAndRecommended(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	me := identity.Session{UserID: "me"}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.trends.now = func() time.Time { now = now.Add(time.Minute); return now }

	first, err := f.trends.Submit(ctx, me, SubmitRequest{Title: "one", Category: "b", Location: "c"})
	require.NoError(t, err)
	second, err := f.trends.Submit(ctx, me, SubmitRequest{Title: "two", Category: "b", Location: "c"})
	require.NoError(t, err)

	_, err = f.trends.Saved(ctx, identity.Session{})
	assert.ErrorIs(t, err, engagement.ErrAuthRequired)

	_, err = f.engagement.ToggleSave(ctx, me, second.Trend.ID)
	require.NoError(t, err)
	_, err = f.engagement.ToggleSave(ctx, me, first.Trend.ID)
	require.NoError(t, err)

	saved, err := f.trends.Saved(ctx, me)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, first.Trend.ID, saved[0].ID)

	_, err = f.engagement.ToggleLike(ctx, identity.Session{UserID: "fan"}, engagement.KindTrend, first.Trend.ID)
	require.NoError(t, err)

	recommended, err := f.trends.Recommended(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recommended, 2)
	assert.Equal(t, first.Trend.ID, recommended[0].ID)
	assert.Equal(t, 1, recommended[0].LikeCount)
}
