package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 60, cfg.Snapshot.MaxIDs)
	assert.Equal(t, RewardConfig{SubmitTrend: 10, LikeTrend: 2, LikeComment: 1, Comment: 3}, cfg.Reward)
	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.DebounceWindow)
	assert.Equal(t, 300*time.Millisecond, cfg.Places.Debounce)
	assert.Equal(t, 20.0, cfg.Geo.DefaultRadius)
	assert.Equal(t, 10, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("BACKEND", BackendPostgres)
	t.Setenv("REWARD_LIKE_TREND", "5")
	t.Setenv("SNAPSHOT_MAX_IDS", "not-a-number")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.test,https://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, 5, cfg.Reward.LikeTrend)
	assert.Equal(t, 60, cfg.Snapshot.MaxIDs)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CorsOrigins)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"default secret outside development", map[string]string{"APP_ENV": "production"}},
		{"unknown backend", map[string]string{"BACKEND": "sqlite"}},
		{"non-positive snapshot bound", map[string]string{"SNAPSHOT_MAX_IDS": "0"}},
		{"negative reward", map[string]string{"REWARD_COMMENT": "-1"}},
		{"inverted radius bounds", map[string]string{"GEO_MIN_RADIUS": "50", "GEO_MAX_RADIUS": "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.Level)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger(LogConfig{Level: "loud", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logger.Level)
}
