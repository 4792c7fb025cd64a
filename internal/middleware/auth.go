package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/pkg/utils"
)

// SessionLookup resolves sessions by id.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
}

// RequireAuth admits requests whose {sessionID} is unlocked and stores the resulting
// auth.Context on the request. Locked sessions get 401, unknown ones 404.
func RequireAuth(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")

			session, err := sessions.GetSession(r.Context(), sessionID)
			if errors.Is(err, chatservice.ErrSessionNotFound) {
				utils.RespondError(w, r, http.StatusNotFound, err.Error())
				return
			}
			if err != nil {
				utils.RespondError(w, r, http.StatusInternalServerError, "failed to load session")
				return
			}

			ac, err := auth.ContextFromSession(session)
			if err != nil {
				utils.RespondError(w, r, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
		})
	}
}
