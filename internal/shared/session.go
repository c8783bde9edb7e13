// File: internal/shared/session.go
package shared

import (
	"context"
	"errors"
)

// ErrNoSession is returned when a request carries no authenticated identity.
var ErrNoSession = errors.New("no authenticated user in context")

// Session is the authenticated identity a request runs as. UserID is the
// identity provider's UID and doubles as the profile primary key.
type Session struct {
	UserID        string
	Email         string
	Name          string
	Role          string
	EmailVerified bool
}

type sessionContextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || s == nil || s.UserID == "" {
		return nil, false
	}
	return s, true
}

// IdentityProvider answers "who is the current user".
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*Session, error)
}

// ContextIdentity resolves the current user from the request context
// populated by the auth middleware.
type ContextIdentity struct{}

// NewContextIdentity creates a ContextIdentity.
func NewContextIdentity() *ContextIdentity {
	return &ContextIdentity{}
}

func (ContextIdentity) CurrentUser(ctx context.Context) (*Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}
