package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"locova/internal/config"
	"locova/internal/domain/identity"
	"locova/internal/server/handlers"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Trends      *handlers.TrendHandler
	Engagement  *handlers.EngagementHandler
	Leaderboard *handlers.LeaderboardHandler
	Profiles    *handlers.ProfileHandler
	Places      *handlers.PlacesHandler
	Live        *handlers.LiveHandler
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	h Handlers,
	tokens identity.TokenManager,
	logger *logrus.Logger,
) *Server {
	router := NewRouter(cfg, h, tokens, logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// NewRouter builds the route tree
func NewRouter(cfg config.ServerConfig, h Handlers, tokens identity.TokenManager, logger *logrus.Logger) *chi.Mux {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(handlers.Authenticate(tokens, logger))

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Trends API
			r.Route("/trends", func(r chi.Router) {
				r.Get("/", h.Trends.ListTrends)
				r.Post("/", h.Trends.CreateTrend)
				r.Get("/recommended", h.Trends.Recommended)
				r.Get("/{id}", h.Trends.GetTrend)
				r.Post("/{id}/like", h.Engagement.LikeTrend)
				r.Post("/{id}/save", h.Engagement.SaveTrend)

				// Trend comments
				r.Route("/{id}/comments", func(r chi.Router) {
					r.Get("/", h.Trends.ListComments)
					r.Post("/", h.Trends.AddComment)
				})
			})

			r.Post("/comments/{id}/like", h.Engagement.LikeComment)
			r.Post("/engagement/snapshot", h.Engagement.Snapshot)
			r.Get("/saved", h.Trends.Saved)
			r.Get("/leaderboard", h.Leaderboard.GetLeaderboard)

			// Profiles API
			r.Route("/profile/me", func(r chi.Router) {
				r.Get("/", h.Profiles.GetMe)
				r.Put("/", h.Profiles.UpdateMe)
				r.Put("/avatar", h.Profiles.UploadAvatar)
			})
			r.Get("/profiles/{id}", h.Profiles.GetProfile)

			r.Get("/places", h.Places.Search)
		})
	})

	// WebSocket endpoint for live engagement updates
	router.Get("/ws/live", h.Live.ServeHTTP)

	return router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
