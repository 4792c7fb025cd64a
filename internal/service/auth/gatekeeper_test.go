package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
)

func setup(t *testing.T, secret string) (*auth.Gatekeeper, *chatservice.Service, string) {
	t.Helper()
	sessions, err := chatservice.NewService(4)
	require.NoError(t, err)
	session, err := sessions.CreateSession(context.Background())
	require.NoError(t, err)
	return auth.NewGatekeeper(secret, sessions), sessions, session.ID
}

func TestUnlockWithCorrectSecret(t *testing.T) {
	gate, sessions, id := setup(t, "abc123")
	ctx := context.Background()

	ac, err := gate.Unlock(ctx, id, "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, ac.SessionID)
	assert.False(t, ac.AuthenticatedAt.IsZero())

	session, err := sessions.GetSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, session.Authenticated)

	// A repeated unlock keeps the original timestamp.
	again, err := gate.Unlock(ctx, id, "abc123")
	require.NoError(t, err)
	assert.Equal(t, ac.AuthenticatedAt, again.AuthenticatedAt)
}

func TestUnlockWithWrongSecretsStaysLocked(t *testing.T) {
	gate, sessions, id := setup(t, "abc123")
	ctx := context.Background()

	for _, attempt := range []string{"", "abc", "abc1234", "ABC123", " abc123", "abc123 "} {
		_, err := gate.Unlock(ctx, id, attempt)
		assert.ErrorIs(t, err, auth.ErrInvalidPassword, "attempt %q", attempt)
	}

	session, err := sessions.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, session.Authenticated)
}

func TestEmptySecretNeverMatches(t *testing.T) {
	gate, _, _ := setup(t, "")
	assert.False(t, gate.Check(""))
}

func TestUnlockUnknownSession(t *testing.T) {
	gate, _, _ := setup(t, "abc123")

	_, err := gate.Unlock(context.Background(), "missing", "abc123")
	assert.ErrorIs(t, err, chatservice.ErrSessionNotFound)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := auth.FromContext(ctx)
	assert.False(t, ok)

	ctx = auth.WithContext(ctx, auth.Context{SessionID: "s1"})
	ac, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "s1", ac.SessionID)
}
