package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/handler/apierr"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	authService "github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatService "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
	"github.com/zhouzirui/assistant-relay/backend/pkg/utils"
)

// Handler serves session lifecycle and message routes.
type Handler struct {
	sessions *chatService.Service
	relay    *relay.Relay
	title    string
	prompts  chat.Prompts
}

// New creates the chat handler.
func New(sessions *chatService.Service, relay *relay.Relay, title string, prompts chat.Prompts) *Handler {
	return &Handler{
		sessions: sessions,
		relay:    relay,
		title:    title,
		prompts:  prompts,
	}
}

// SessionView is what a presenter needs to render a session.
type SessionView struct {
	Session     chat.Session   `json:"session"`
	Title       string         `json:"title"`
	Locked      bool           `json:"locked"`
	Placeholder string         `json:"placeholder,omitempty"`
	Messages    []chat.Message `json:"messages,omitempty"`
}

// RegisterRoutes mounts POST /sessions.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
}

// RegisterSessionRoutes mounts the routes available before unlocking, under
// /sessions/{sessionID}.
func (h *Handler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/", h.handleGetSession)
	r.Delete("/", h.handleEndSession)
}

// RegisterProtectedRoutes mounts the routes that need an unlocked session.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/messages", h.handleListMessages)
	r.Post("/messages", h.handleSendMessage)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("session_id", session.ID).Msg("session created")
	utils.RespondJSON(w, r, http.StatusCreated, SessionView{
		Session: session,
		Title:   h.title,
		Locked:  true,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	utils.RespondJSON(w, r, http.StatusOK, view)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.sessions.EndSession(r.Context(), sessionID); err != nil {
		apierr.Write(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("session_id", sessionID).Msg("session ended")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ac, ok := authService.FromContext(r.Context())
	if !ok {
		apierr.Write(w, r, authService.ErrUnauthenticated)
		return
	}

	messages, err := h.sessions.LoadTranscript(r.Context(), ac.SessionID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	utils.RespondJSON(w, r, http.StatusOK, messages)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	ac, ok := authService.FromContext(r.Context())
	if !ok {
		apierr.Write(w, r, authService.ErrUnauthenticated)
		return
	}

	reply, err := h.relay.Send(r.Context(), ac.SessionID, payload.Content, nil)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	utils.RespondJSON(w, r, http.StatusOK, map[string]any{
		"reply":       reply,
		"placeholder": h.prompts.Next,
	})
}

// view hides the transcript of locked sessions.
func (h *Handler) view(r *http.Request, sessionID string) (SessionView, error) {
	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		return SessionView{}, err
	}

	view := SessionView{Session: session, Title: h.title, Locked: !session.Authenticated}
	if view.Locked {
		return view, nil
	}

	messages, err := h.sessions.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		return SessionView{}, err
	}
	view.Messages = messages
	view.Placeholder = h.prompts.Placeholder(messages)
	return view, nil
}
