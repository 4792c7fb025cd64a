package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/handler/apierr"
	authService "github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	"github.com/zhouzirui/assistant-relay/backend/pkg/utils"
)

// Handler serves the password gate.
type Handler struct {
	gate *authService.Gatekeeper
}

// New creates the gate handler.
func New(gate *authService.Gatekeeper) *Handler {
	return &Handler{gate: gate}
}

// RegisterRoutes mounts the login route under /sessions/{sessionID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	log := zerolog.Ctx(r.Context())

	var payload struct {
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	ac, err := h.gate.Unlock(r.Context(), sessionID, payload.Password)
	if err != nil {
		if errors.Is(err, authService.ErrInvalidPassword) {
			log.Info().Str("session_id", sessionID).Msg("password rejected")
		}
		apierr.Write(w, r, err)
		return
	}

	log.Info().Str("session_id", sessionID).Msg("session unlocked")
	utils.RespondJSON(w, r, http.StatusOK, map[string]any{
		"sessionId":       ac.SessionID,
		"authenticated":   true,
		"authenticatedAt": ac.AuthenticatedAt,
	})
}
