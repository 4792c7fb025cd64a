// Package auth implements the password gate in front of the relay.
//
// The gate compares the submitted string with a single shared secret. A successful
// unlock is recorded on the session and surfaced to handlers as a Context value
// instead of being looked up from ambient state.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/zhouzirui/assistant-relay/backend/internal/metrics"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
)

// ErrInvalidPassword is returned for any input that does not match the secret.
var ErrInvalidPassword = errors.New("password incorrect")

// SessionAuthenticator records a successful unlock on a session.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, sessionID string) (chat.Session, error)
}

// Gatekeeper checks submitted passwords against the configured secret.
type Gatekeeper struct {
	secret   []byte
	sessions SessionAuthenticator
}

// NewGatekeeper creates a Gatekeeper for the given secret.
func NewGatekeeper(secret string, sessions SessionAuthenticator) *Gatekeeper {
	return &Gatekeeper{secret: []byte(secret), sessions: sessions}
}

// Check reports whether input equals the secret exactly.
func (g *Gatekeeper) Check(input string) bool {
	if len(g.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(input), g.secret) == 1
}

// Unlock authenticates the session when input matches. A mismatch leaves the session
// locked; there is no lockout, so callers may re-prompt indefinitely.
func (g *Gatekeeper) Unlock(ctx context.Context, sessionID, input string) (Context, error) {
	if !g.Check(input) {
		metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		return Context{}, ErrInvalidPassword
	}

	session, err := g.sessions.Authenticate(ctx, sessionID)
	if err != nil {
		return Context{}, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("accepted").Inc()
	return ContextFromSession(session)
}

// Context is the authentication state of the request's session.
type Context struct {
	SessionID       string
	AuthenticatedAt time.Time
}

// ErrUnauthenticated is returned when a locked session is used where an unlocked one
// is required.
var ErrUnauthenticated = errors.New("authentication required")

// ContextFromSession builds a Context for an unlocked session.
func ContextFromSession(session chat.Session) (Context, error) {
	if !session.Authenticated {
		return Context{}, ErrUnauthenticated
	}

	ac := Context{SessionID: session.ID}
	if session.AuthenticatedAt != nil {
		ac.AuthenticatedAt = *session.AuthenticatedAt
	}
	return ac, nil
}

type contextKey struct{}

// WithContext stores ac in ctx.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the Context stored by WithContext.
func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(Context)
	return ac, ok
}
