package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Backend     string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Reward      RewardConfig
	Snapshot    SnapshotConfig
	Realtime    RealtimeConfig
	Geo         GeoConfig
	Leaderboard LeaderboardConfig
	Places      PlacesConfig
	Storage     StorageConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
	Migrate      bool
}

// NATSConfig holds NATS configuration. An empty URL keeps change
// notifications in process.
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// RedisConfig holds leaderboard cache configuration. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AuthConfig holds token validation configuration
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RewardConfig holds point amounts per action
type RewardConfig struct {
	SubmitTrend int
	LikeTrend   int
	LikeComment int
	Comment     int
}

// SnapshotConfig holds engagement snapshot configuration
type SnapshotConfig struct {
	MaxIDs int
}

// RealtimeConfig holds live feed configuration
type RealtimeConfig struct {
	DebounceWindow time.Duration
}

// GeoConfig holds radius query bounds in kilometers
type GeoConfig struct {
	DefaultRadius float64
	MinRadius     float64
	MaxRadius     float64
}

// LeaderboardConfig holds leaderboard configuration
type LeaderboardConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// PlacesConfig holds places search configuration
type PlacesConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Debounce time.Duration
}

// StorageConfig holds avatar object storage configuration. An empty
// AccountName keeps avatars in memory.
type StorageConfig struct {
	AccountName   string
	ContainerName string
	PublicBaseURL string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables. Values from a .env
// file in the working directory are used when the variable is unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env file: %w", err)
	}

	environment := getEnv("APP_ENV", "development")

	config := Config{
		Environment: environment,
		Backend:     getEnv("BACKEND", BackendMemory),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "locova"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			Migrate:      getEnvAsBool("DB_MIGRATE", true),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			SubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "locova.changes"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_LEADERBOARD_TTL", 15*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "your-secret-key"),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		Reward: RewardConfig{
			SubmitTrend: getEnvAsInt("REWARD_SUBMIT_TREND", 10),
			LikeTrend:   getEnvAsInt("REWARD_LIKE_TREND", 2),
			LikeComment: getEnvAsInt("REWARD_LIKE_COMMENT", 1),
			Comment:     getEnvAsInt("REWARD_COMMENT", 3),
		},
		Snapshot: SnapshotConfig{
			MaxIDs: getEnvAsInt("SNAPSHOT_MAX_IDS", 60),
		},
		Realtime: RealtimeConfig{
			DebounceWindow: getEnvAsDuration("REALTIME_DEBOUNCE_WINDOW", 250*time.Millisecond),
		},
		Geo: GeoConfig{
			DefaultRadius: getEnvAsFloat("GEO_DEFAULT_RADIUS", 20.0),
			MinRadius:     getEnvAsFloat("GEO_MIN_RADIUS", 1.0),
			MaxRadius:     getEnvAsFloat("GEO_MAX_RADIUS", 100.0),
		},
		Leaderboard: LeaderboardConfig{
			DefaultLimit: getEnvAsInt("LEADERBOARD_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvAsInt("LEADERBOARD_MAX_LIMIT", 100),
		},
		Places: PlacesConfig{
			APIKey:   getEnv("GOOGLE_PLACES_API_KEY", ""),
			BaseURL:  getEnv("PLACES_BASE_URL", ""),
			Timeout:  getEnvAsDuration("PLACES_TIMEOUT", 5*time.Second),
			Debounce: getEnvAsDuration("PLACES_DEBOUNCE", 300*time.Millisecond),
		},
		Storage: StorageConfig{
			AccountName:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
			ContainerName: getEnv("AZURE_STORAGE_CONTAINER", "avatars"),
			PublicBaseURL: getEnv("AVATAR_PUBLIC_BASE_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(environment)),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Auth.JWTSecret == "your-secret-key" && config.Environment != "development" {
		return fmt.Errorf("JWT secret must be set in non-development environments")
	}

	if config.Backend != BackendMemory && config.Backend != BackendPostgres {
		return fmt.Errorf("unknown backend %q", config.Backend)
	}

	if config.Snapshot.MaxIDs <= 0 {
		return fmt.Errorf("SNAPSHOT_MAX_IDS must be positive")
	}

	if config.Geo.MinRadius <= 0 || config.Geo.MinRadius > config.Geo.MaxRadius {
		return fmt.Errorf("invalid radius bounds [%g, %g]", config.Geo.MinRadius, config.Geo.MaxRadius)
	}

	for name, amount := range map[string]int{
		"REWARD_SUBMIT_TREND": config.Reward.SubmitTrend,
		"REWARD_LIKE_TREND":   config.Reward.LikeTrend,
		"REWARD_LIKE_COMMENT": config.Reward.LikeComment,
		"REWARD_COMMENT":      config.Reward.Comment,
	} {
		if amount < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	return nil
}

func defaultLogFormat(environment string) string {
	if environment == "development" {
		return "text"
	}
	return "json"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
