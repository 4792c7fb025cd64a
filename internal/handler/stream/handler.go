package stream

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/handler/apierr"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
	"github.com/zhouzirui/assistant-relay/backend/pkg/utils"
)

// Handler relays one turn and reports its progress via Server-Sent Events.
type Handler struct {
	relay *relay.Relay
}

// New creates a new stream handler.
func New(relay *relay.Relay) *Handler {
	return &Handler{relay: relay}
}

// StreamResponse represents one SSE frame.
type StreamResponse struct {
	Event     string         `json:"event"`
	SessionID string         `json:"sessionId,omitempty"`
	Content   string         `json:"content,omitempty"`
	Status    chat.RunStatus `json:"status,omitempty"`
	Message   *chat.Message  `json:"message,omitempty"`
	Finished  bool           `json:"finished,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// RegisterRoutes mounts GET /stream. The router must already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		apierr.Write(w, r, auth.ErrUnauthenticated)
		return
	}

	userMessage := r.URL.Query().Get("message")
	if strings.TrimSpace(userMessage) == "" {
		utils.RespondError(w, r, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(w, r, ac.SessionID, userMessage); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("session_id", ac.SessionID).Msg("[stream] turn ended with error")
	}
}

// HandleStreamRequest runs the turn and emits start, status, message, error and end
// as named events. Status events double as the "working" indicator.
func (h *Handler) HandleStreamRequest(w http.ResponseWriter, r *http.Request, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	send := func(resp StreamResponse) {
		resp.SessionID = sessionID
		utils.SendSSEEvent(ctx, w, flusher, resp.Event, resp)
	}

	send(StreamResponse{Event: "start", Content: userMessage})

	reply, err := h.relay.Send(ctx, sessionID, userMessage, func(status chat.RunStatus) {
		send(StreamResponse{Event: "status", Status: status})
	})
	if err != nil {
		body := apierr.NewBody(err)
		send(StreamResponse{Event: "error", Error: body.Error, Status: body.RunStatus})
		send(StreamResponse{Event: "end", Finished: true})
		return err
	}

	send(StreamResponse{Event: "message", Content: reply.Content, Message: &reply})
	send(StreamResponse{Event: "end", Finished: true})
	return nil
}
