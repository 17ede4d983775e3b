package identity

import (
	"context"
)

// Session is the explicit authentication context of a request. A zero
// Session is anonymous.
type Session struct {
	UserID string
}

// Authenticated reports whether the session carries a user identity
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// TokenManager validates tokens issued by the auth backend
type TokenManager interface {
	// ValidateToken validates a token and returns the user ID
	ValidateToken(token string) (string, error)
}

type sessionKey struct{}

// WithSession attaches a session to ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session attached to ctx, or an anonymous one
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}
