package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/config"
	"github.com/zhouzirui/assistant-relay/backend/internal/handler"
	"github.com/zhouzirui/assistant-relay/backend/internal/logger"
	chatModel "github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		bootLog.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.Log)

	sessions, err := chat.NewService(cfg.Session.MaxActive)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session store")
	}

	gateway := assistant.NewOpenAIGateway(cfg.Assistant)
	relaySvc := relay.New(sessions, gateway, cfg.Assistant.AssistantID, assistant.PolicyFromConfig(cfg.Assistant))
	gate := auth.NewGatekeeper(cfg.Auth.Password, sessions)

	log.Info().
		Str("assistant_id", cfg.Assistant.AssistantID).
		Dur("poll_interval", cfg.Assistant.PollInterval).
		Dur("poll_max_wait", cfg.Assistant.PollMaxWait).
		Int("max_sessions", cfg.Session.MaxActive).
		Msg("assistant relay initialized")

	router := handler.NewRouter(log, sessions, gate, relaySvc, handler.Presentation{
		Title: cfg.UI.Title,
		Prompts: chatModel.Prompts{
			First: cfg.UI.FirstPlaceholder,
			Next:  cfg.UI.Placeholder,
		},
	})

	startServer(ctx, log, cfg.Server, router)
}

func startServer(ctx context.Context, log zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("assistant relay listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
