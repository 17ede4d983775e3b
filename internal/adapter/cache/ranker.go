package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/gamification"
	"locova/internal/domain/trend"
)

// Store is the subset of Redis commands the cache needs
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisStore adapts a go-redis client to Store
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: rdb}, nil
}

// Get returns the value at key. A missing key is redis.Nil.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// Set stores value at key for ttl
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ranker caches leaderboard windows in front of another Ranker. Cache
// failures are logged and fall through to the backend.
type Ranker struct {
	next   gamification.Ranker
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRanker creates a new caching ranker
func NewRanker(next gamification.Ranker, store Store, ttl time.Duration, logger *logrus.Logger) *Ranker {
	return &Ranker{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// TopGlobal returns the top users by points
func (r *Ranker) TopGlobal(ctx context.Context, limit int) ([]gamification.LeaderboardRow, error) {
	key := fmt.Sprintf("leaderboard:global:%d", limit)
	return r.cached(ctx, key, func() ([]gamification.LeaderboardRow, error) {
		return r.next.TopGlobal(ctx, limit)
	})
}

// TopWithinRadius returns the top users around center. Centers are keyed
// at roughly 100m precision.
func (r *Ranker) TopWithinRadius(ctx context.Context, center trend.Location, radiusKm float64, limit int) ([]gamification.LeaderboardRow, error) {
	key := fmt.Sprintf("leaderboard:radius:%.3f:%.3f:%g:%d", center.Latitude, center.Longitude, radiusKm, limit)
	return r.cached(ctx, key, func() ([]gamification.LeaderboardRow, error) {
		return r.next.TopWithinRadius(ctx, center, radiusKm, limit)
	})
}

func (r *Ranker) cached(ctx context.Context, key string, load func() ([]gamification.LeaderboardRow, error)) ([]gamification.LeaderboardRow, error) {
	raw, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		var rows []gamification.LeaderboardRow
		if err := json.Unmarshal([]byte(raw), &rows); err == nil {
			return rows, nil
		}
		r.logger.WithField("key", key).Warn("Discarding malformed cached leaderboard")
	case !errors.Is(err, redis.Nil):
		r.logger.WithField("key", key).WithError(err).Warn("Leaderboard cache read failed")
	}

	rows, err := load()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return rows, nil
	}
	if err := r.store.Set(ctx, key, string(data), r.ttl); err != nil {
		r.logger.WithField("key", key).WithError(err).Warn("Leaderboard cache write failed")
	}

	return rows, nil
}
