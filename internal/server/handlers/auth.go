package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/identity"
)

// Authenticate attaches the caller's session to the request context. A
// request without credentials proceeds anonymously; one with an invalid
// token is rejected. WebSocket clients may pass the token as access_token.
func Authenticate(tokens identity.TokenManager, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.ValidateToken(token)
			if err != nil {
				logger.WithError(err).Debug("Rejected token")
				respondWithError(w, http.StatusUnauthorized, codeAuthRequired, "Invalid or expired token")
				return
			}

			ctx := identity.WithSession(r.Context(), identity.Session{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return r.URL.Query().Get("access_token")
}
