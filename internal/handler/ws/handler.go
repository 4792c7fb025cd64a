package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/handler/apierr"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Handler runs chat turns over a WebSocket connection.
type Handler struct {
	relay    *relay.Relay
	sessions *chatservice.Service
	prompts  chat.Prompts
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler.
func New(relay *relay.Relay, sessions *chatservice.Service, prompts chat.Prompts) *Handler {
	return &Handler{
		relay:    relay,
		sessions: sessions,
		prompts:  prompts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts GET /ws. The router must already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type replyPayload struct {
	Message     chat.Message `json:"message"`
	Placeholder string       `json:"placeholder"`
}

// peer is one open connection. gorilla/websocket allows a single concurrent writer,
// so data frames go through writeMu.
type peer struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		apierr.Write(w, r, auth.ErrUnauthenticated)
		return
	}

	transcript, err := h.sessions.LoadTranscript(r.Context(), ac.SessionID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("[websocket] upgrade failed")
		return
	}
	defer conn.Close()

	log := zerolog.Ctx(r.Context()).With().Str("session_id", ac.SessionID).Logger()
	log.Info().Msg("[websocket] connection opened")

	// The request context outlives the client after the upgrade; ctx is cancelled
	// once the read loop fails, which aborts any turn still polling.
	ctx, cancel := context.WithCancel(log.WithContext(r.Context()))
	var turns sync.WaitGroup
	defer func() {
		cancel()
		turns.Wait()
		log.Info().Msg("[websocket] connection closed")
	}()

	p := &peer{conn: conn, sessionID: ac.SessionID}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	go h.pingLoop(ctx, conn)

	h.send(ctx, p, "connected", map[string]any{
		"placeholder": h.prompts.Placeholder(transcript),
		"messages":    len(transcript),
	})

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("[websocket] read error")
			}
			return
		}

		switch msg.Type {
		case "message":
			turns.Add(1)
			go func(content string) {
				defer turns.Done()
				h.handleUserMessage(ctx, p, content)
			}(msg.Content)
		case "ping":
			h.send(ctx, p, "pong", nil)
		default:
			h.send(ctx, p, "error", apierr.Body{Error: "unsupported message type: " + msg.Type})
		}
	}
}

// handleUserMessage runs one turn. A message sent while another turn is running is
// answered with an error frame by the session's turn lock.
func (h *Handler) handleUserMessage(ctx context.Context, p *peer, content string) {
	reply, err := h.relay.Send(ctx, p.sessionID, content, func(status chat.RunStatus) {
		h.send(ctx, p, "status", map[string]any{"status": status})
	})
	if err != nil {
		if ctx.Err() != nil {
			zerolog.Ctx(ctx).Info().Err(err).Msg("[websocket] turn abandoned by client")
			return
		}
		h.send(ctx, p, "error", apierr.NewBody(err))
		return
	}

	h.send(ctx, p, "reply", replyPayload{Message: reply, Placeholder: h.prompts.Next})
}

func (h *Handler) send(ctx context.Context, p *peer, kind string, data interface{}) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := p.conn.WriteJSON(outgoingMessage{
		Type:      kind,
		SessionID: p.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("[websocket] write failed")
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
