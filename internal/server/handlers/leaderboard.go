package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/geo"
	"locova/internal/domain/identity"
	"locova/internal/domain/trend"
	"locova/internal/service/gamification"
)

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	leaderboard *gamification.LeaderboardService
	radius      geo.RadiusLimits
	maxLimit    int
	logger      *logrus.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard *gamification.LeaderboardService, radius geo.RadiusLimits, maxLimit int, logger *logrus.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		radius:      radius,
		maxLimit:    maxLimit,
		logger:      logger,
	}
}

// GetLeaderboard returns the global board, or the board for users posting
// near a point when scope=radius
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	scope, err := queryScope(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	switch r.URL.Query().Get("scope") {
	case "", gamification.ScopeGlobal:
		scope = trend.Scope{}
	case gamification.ScopeRadius:
		if scope.Center == nil {
			respondWithError(w, http.StatusBadRequest, codeInvalidInput, "radius scope requires lat and lng")
			return
		}
		scope.RadiusKm = h.radius.Clamp(scope.RadiusKm)
	default:
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, "scope must be global or radius")
		return
	}

	board, err := h.leaderboard.Leaderboard(r.Context(), scope, identity.FromContext(r.Context()), queryLimit(r, h.maxLimit))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}
