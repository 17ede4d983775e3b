package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"locova/internal/domain/identity"
	"locova/internal/service/profile"
)

// ProfileHandler handles profile requests
type ProfileHandler struct {
	profiles *profile.Service
	logger   *logrus.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *profile.Service, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// GetMe returns the caller's profile and level progress
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.Me(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GetProfile returns another user's public profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// UpdateMe changes the caller's display name
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, "Invalid request body")
		return
	}

	view, err := h.profiles.UpdateDisplayName(r.Context(), identity.FromContext(r.Context()), req.DisplayName)
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// UploadAvatar replaces the caller's avatar with the raw image in the body
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, profile.MaxAvatarBytes+1))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, codeInvalidInput, "Avatar too large")
		return
	}

	view, err := h.profiles.UploadAvatar(r.Context(), identity.FromContext(r.Context()), r.Header.Get("Content-Type"), data)
	if err != nil {
		respondWithServiceError(w, h.logger, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}
