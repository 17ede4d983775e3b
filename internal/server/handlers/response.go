package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	"locova/internal/domain/gamification"
	"locova/internal/domain/trend"
)

// Error codes returned in the "code" field of error responses
const (
	codeAuthRequired = "auth_required"
	codeInvalidInput = "invalid_input"
	codeBusy         = "busy"
	codeNotFound     = "not_found"
	codeInternal     = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, errorResponse{Error: message, Code: errCode})
}

// respondWithServiceError maps service errors onto HTTP statuses. Server
// errors are logged and their detail is not exposed.
func respondWithServiceError(w http.ResponseWriter, logger *logrus.Logger, r *http.Request, err error) {
	switch {
	case errors.Is(err, engagement.ErrAuthRequired):
		respondWithError(w, http.StatusUnauthorized, codeAuthRequired, "Sign in to continue")
	case errors.Is(err, engagement.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, engagement.ErrBusy):
		respondWithError(w, http.StatusConflict, codeBusy, "Request already in progress")
	case errors.Is(err, trend.ErrNotFound), errors.Is(err, gamification.ErrNotFound):
		respondWithError(w, http.StatusNotFound, codeNotFound, "Not found")
	default:
		logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("Request failed")
		respondWithError(w, http.StatusInternalServerError, codeInternal, "Internal error")
	}
}

// queryFloat parses an optional float query parameter
func queryFloat(r *http.Request, key string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// queryLimit parses the limit query parameter, clamped to max when max > 0
func queryLimit(r *http.Request, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// queryScope reads lat, lng and radius. Coordinates are both-or-none.
func queryScope(r *http.Request) (trend.Scope, error) {
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		return trend.Scope{}, errors.New("invalid latitude")
	}
	lng, hasLng, err := queryFloat(r, "lng")
	if err != nil {
		return trend.Scope{}, errors.New("invalid longitude")
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil {
		return trend.Scope{}, errors.New("invalid radius")
	}

	if hasLat != hasLng {
		return trend.Scope{}, errors.New("lat and lng must be provided together")
	}
	if !hasLat {
		return trend.Scope{}, nil
	}

	center := trend.Location{Latitude: lat, Longitude: lng}
	if !center.Valid() {
		return trend.Scope{}, errors.New("coordinates out of range")
	}

	return trend.Scope{Center: &center, RadiusKm: radius}, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
