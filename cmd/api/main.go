// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"locova/internal/adapter/blob"
	"locova/internal/adapter/cache"
	"locova/internal/adapter/events"
	"locova/internal/adapter/memory"
	"locova/internal/adapter/storage"
	"locova/internal/config"
	"locova/internal/domain/engagement"
	"locova/internal/domain/gamification"
	"locova/internal/domain/geo"
	"locova/internal/domain/realtime"
	"locova/internal/domain/trend"
	"locova/internal/server"
	"locova/internal/server/handlers"
	engagementService "locova/internal/service/engagement"
	gamificationService "locova/internal/service/gamification"
	"locova/internal/service/identity"
	"locova/internal/service/places"
	"locova/internal/service/profile"
	realtimeService "locova/internal/service/realtime"
	"locova/internal/service/trends"
)

// backend groups the store contracts one implementation satisfies
type backend struct {
	trends     trend.Store
	engagement engagement.Store
	ledger     gamification.Ledger
	points     gamification.PointsStore
	profiles   gamification.ProfileStore
	ranker     gamification.Ranker
}

// bus carries change notifications from writers to live feeds
type bus interface {
	realtime.Publisher
	realtime.Subscriber
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.Log)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize storage backend
	var stores backend
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := storage.Migrate(ctx, db); err != nil {
				logger.Fatalf("Failed to apply schema: %v", err)
			}
		}

		profileStore := storage.NewProfileStore(db)
		stores = backend{
			trends:     storage.NewTrendStore(db),
			engagement: storage.NewEngagementStore(db),
			ledger:     storage.NewLedgerStore(db),
			points:     profileStore,
			profiles:   profileStore,
			ranker:     profileStore,
		}
	default:
		logger.Warn("Using in-memory backend; data is lost on restart")
		store := memory.NewStore()
		stores = backend{
			trends:     store,
			engagement: store,
			ledger:     store,
			points:     store,
			profiles:   store,
			ranker:     store,
		}
	}

	// Initialize change notification bus
	var changes bus = memory.NewBus()
	if cfg.NATS.URL != "" {
		natsConn, err := initNATS(cfg.NATS, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()

		changes = events.NewBus(natsConn, cfg.NATS.SubjectPrefix, logger)
	}

	// Optional leaderboard cache
	ranker := stores.ranker
	if cfg.Redis.Addr != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()

		ranker = cache.NewRanker(ranker, redisStore, cfg.Redis.TTL, logger)
	}

	// Avatar object storage
	var objects profile.ObjectStore = memory.NewObjectStore(cfg.Storage.PublicBaseURL)
	if cfg.Storage.AccountName != "" {
		avatars, err := blob.NewAvatarStore(ctx, cfg.Storage.AccountName, cfg.Storage.ContainerName, cfg.Storage.PublicBaseURL, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize avatar storage: %v", err)
		}
		objects = avatars
	}

	// Initialize services
	levels := gamificationService.MustLevelTable(gamificationService.DefaultLevels)
	radius := geo.RadiusLimits{
		Default: cfg.Geo.DefaultRadius,
		Min:     cfg.Geo.MinRadius,
		Max:     cfg.Geo.MaxRadius,
	}

	snapshots := engagementService.NewSnapshotBuilder(stores.engagement, cfg.Snapshot.MaxIDs)
	rewards := gamificationService.NewRewardGuard(stores.ledger, stores.points, logger)

	engagementSvc := engagementService.NewService(
		stores.engagement,
		snapshots,
		rewards,
		changes,
		engagementService.RewardAmounts{
			LikeTrend:   cfg.Reward.LikeTrend,
			LikeComment: cfg.Reward.LikeComment,
		},
		logger,
	)

	trendSvc := trends.NewService(
		stores.trends,
		snapshots,
		rewards,
		changes,
		trends.Config{
			Radius: radius,
			Rewards: trends.Rewards{
				Submit:  cfg.Reward.SubmitTrend,
				Comment: cfg.Reward.Comment,
			},
		},
		logger,
	)

	leaderboardSvc := gamificationService.NewLeaderboardService(ranker, stores.profiles, levels, cfg.Leaderboard.DefaultLimit, logger)
	profileSvc := profile.NewService(stores.profiles, objects, levels, logger)
	placesClient := places.NewClient(cfg.Places.APIKey, cfg.Places.BaseURL, cfg.Places.Timeout, logger)
	trigger := realtimeService.NewTrigger(changes, cfg.Realtime.DebounceWindow, logger)
	tokens := identity.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	if !placesClient.Enabled() {
		logger.Warn("GOOGLE_PLACES_API_KEY not set; place search returns no results")
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		server.Handlers{
			Trends:      handlers.NewTrendHandler(trendSvc, logger),
			Engagement:  handlers.NewEngagementHandler(engagementSvc, logger),
			Leaderboard: handlers.NewLeaderboardHandler(leaderboardSvc, radius, cfg.Leaderboard.MaxLimit, logger),
			Profiles:    handlers.NewProfileHandler(profileSvc, logger),
			Places:      handlers.NewPlacesHandler(placesClient, logger),
			Live: handlers.NewLiveHandler(
				engagementSvc,
				trendSvc,
				trigger,
				placesClient,
				cfg.Places.Debounce,
				handlers.DefaultWebSocketConfig(),
				logger,
			),
		},
		tokens,
		logger,
	)

	// Start HTTP server
	go func() {
		logger.Infof("Starting HTTP server on %s:%d (backend=%s)", cfg.Server.Host, cfg.Server.Port, cfg.Backend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	logger.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger *logrus.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
