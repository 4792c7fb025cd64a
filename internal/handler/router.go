package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	authHandler "github.com/zhouzirui/assistant-relay/backend/internal/handler/auth"
	"github.com/zhouzirui/assistant-relay/backend/internal/handler/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/handler/stream"
	"github.com/zhouzirui/assistant-relay/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/assistant-relay/backend/internal/middleware"
	chatModel "github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	authService "github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatService "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
	"github.com/zhouzirui/assistant-relay/backend/pkg/utils"
)

// Presentation is the copy handed to presenters.
type Presentation struct {
	Title   string
	Prompts chatModel.Prompts
}

// NewRouter wires HTTP routes to core services.
func NewRouter(log zerolog.Logger, sessions *chatService.Service, gate *authService.Gatekeeper, relaySvc *relay.Relay, ui Presentation) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(sessions, relaySvc, ui.Title, ui.Prompts)
	loginHandler := authHandler.New(gate)
	streamHandler := stream.New(relaySvc)
	wsHandler := ws.New(relaySvc, sessions, ui.Prompts)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, r, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": sessions.Len(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)

		api.Route("/sessions/{sessionID}", func(s chi.Router) {
			chatHandler.RegisterSessionRoutes(s)
			loginHandler.RegisterRoutes(s)

			s.Group(func(protected chi.Router) {
				protected.Use(middlewarePkg.RequireAuth(sessions))

				chatHandler.RegisterProtectedRoutes(protected)
				streamHandler.RegisterRoutes(protected)
				wsHandler.RegisterRoutes(protected)
			})
		})
	})

	return r
}
