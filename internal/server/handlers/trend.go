package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/identity"
	"locova/internal/domain/trend"
	"locova/internal/service/trends"
)

// TrendHandler handles trend, comment and saved-list requests
type TrendHandler struct {
	trends *trends.Service
	logger *logrus.Logger
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(trends *trends.Service, logger *logrus.Logger) *TrendHandler {
	return &TrendHandler{
		trends: trends,
		logger: logger,
	}
}

// ListTrends returns trends near a point, or newest first for a city
func (h *TrendHandler) ListTrends(w http.ResponseWriter, r *http.Request) {
	scope, err := queryScope(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	q := r.URL.Query()
	filter := trend.Filter{
		Scope:    scope,
		City:     q.Get("city"),
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Limit:    queryLimit(r, 200),
	}

	list, err := h.trends.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// CreateTrend submits a new trend
func (h *TrendHandler) CreateTrend(w http.ResponseWriter, r *http.Request) {
	var req trends.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, "Invalid request body")
		return
	}

	result, err := h.trends.Submit(r.Context(), identity.FromContext(r.Context()), req)
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// Recommended returns the most liked trends
func (h *TrendHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	list, err := h.trends.Recommended(r.Context(), queryLimit(r, 100))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

// GetTrend returns a specific trend by ID
func (h *TrendHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	t, err := h.trends.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

// ListComments returns a trend's comment thread
func (h *TrendHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	thread, err := h.trends.Thread(r.Context(), identity.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, thread)
}

// AddComment posts a comment on a trend
func (h *TrendHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, "Invalid request body")
		return
	}

	result, err := h.trends.AddComment(r.Context(), identity.FromContext(r.Context()), chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// Saved returns the caller's saved trends
func (h *TrendHandler) Saved(w http.ResponseWriter, r *http.Request) {
	list, err := h.trends.Saved(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
