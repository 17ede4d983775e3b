package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	"locova/internal/domain/identity"
	engagementService "locova/internal/service/engagement"
)

// SnapshotRequest asks for the engagement snapshot of a batch of entities
type SnapshotRequest struct {
	Kind engagement.Kind `json:"kind"`
	IDs  []string        `json:"ids"`
}

// SnapshotResponse lists one entry per requested id, in request order
type SnapshotResponse struct {
	Kind    engagement.Kind    `json:"kind"`
	Entries []engagement.Entry `json:"entries"`
}

// EngagementHandler handles like, save and snapshot requests
type EngagementHandler struct {
	engagement *engagementService.Service
	logger     *logrus.Logger
}

// NewEngagementHandler creates a new engagement handler
func NewEngagementHandler(engagement *engagementService.Service, logger *logrus.Logger) *EngagementHandler {
	return &EngagementHandler{
		engagement: engagement,
		logger:     logger,
	}
}

// LikeTrend toggles the caller's like on a trend
func (h *EngagementHandler) LikeTrend(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, engagement.KindTrend)
}

// LikeComment toggles the caller's like on a comment
func (h *EngagementHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, engagement.KindComment)
}

func (h *EngagementHandler) toggleLike(w http.ResponseWriter, r *http.Request, kind engagement.Kind) {
	outcome, err := h.engagement.ToggleLike(r.Context(), identity.FromContext(r.Context()), kind, chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// SaveTrend toggles the caller's save on a trend
func (h *EngagementHandler) SaveTrend(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.engagement.ToggleSave(r.Context(), identity.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// Snapshot returns counts and the caller's like/save state for a batch
func (h *EngagementHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, "Invalid request body")
		return
	}

	ids := uniqueIDs(req.IDs)
	snapshot, err := h.engagement.Snapshot(r.Context(), identity.FromContext(r.Context()), req.Kind, ids)
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SnapshotResponse{Kind: req.Kind, Entries: snapshot.Entries(ids)})
}
