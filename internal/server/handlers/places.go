package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"locova/internal/service/places"
)

// PlacesHandler handles place search requests
type PlacesHandler struct {
	places *places.Client
	logger *logrus.Logger
}

// NewPlacesHandler creates a new places handler
func NewPlacesHandler(places *places.Client, logger *logrus.Logger) *PlacesHandler {
	return &PlacesHandler{
		places: places,
		logger: logger,
	}
}

// Search returns places matching the q parameter
func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.places.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if places.IsCancelled(err) {
			return
		}
		h.logger.WithError(err).Warn("Place search failed")
		respondWithError(w, http.StatusBadGateway, codeInternal, "Place search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, results)
}
