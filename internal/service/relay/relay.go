// Package relay runs one user turn against the hosted assistant.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/metrics"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant"
	chatservice "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
)

var ErrEmptyMessage = errors.New("message content is required")

// StatusFunc observes run statuses while a turn waits on the assistant.
type StatusFunc func(status chat.RunStatus)

// Relay ties the session store to the assistant gateway.
type Relay struct {
	sessions    *chatservice.Service
	gateway     assistant.Gateway
	poller      *assistant.Poller
	assistantID string
}

// New creates a Relay that answers with the given assistant.
func New(sessions *chatservice.Service, gateway assistant.Gateway, assistantID string, policy assistant.PollPolicy) *Relay {
	return &Relay{
		sessions:    sessions,
		gateway:     gateway,
		poller:      assistant.NewPoller(gateway, policy),
		assistantID: assistantID,
	}
}

// Send relays text as a user turn and returns the appended assistant reply.
//
// The user message is recorded locally before the remote calls start, so it stays in
// the history even when the turn fails. No assistant message is appended unless the
// run completed.
func (r *Relay) Send(ctx context.Context, sessionID, text string, onStatus StatusFunc) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	release, err := r.sessions.BeginTurn(ctx, sessionID)
	if err != nil {
		return chat.Message{}, err
	}
	defer release()

	log := zerolog.Ctx(ctx).With().Str("session_id", sessionID).Logger()

	reply, err := r.turn(log.WithContext(ctx), sessionID, text, onStatus)
	metrics.TurnsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		log.Warn().Err(err).Msg("turn aborted")
		return chat.Message{}, err
	}

	log.Info().Int("reply_length", len(reply.Content)).Msg("turn completed")
	return reply, nil
}

func (r *Relay) turn(ctx context.Context, sessionID, text string, onStatus StatusFunc) (chat.Message, error) {
	log := zerolog.Ctx(ctx)

	threadID, err := r.sessions.EnsureThread(ctx, sessionID, r.gateway.CreateThread)
	if err != nil {
		return chat.Message{}, fmt.Errorf("ensure thread: %w", err)
	}

	if _, err := r.sessions.AppendMessage(ctx, sessionID, schema.User, text); err != nil {
		return chat.Message{}, err
	}

	if err := r.gateway.Send(ctx, threadID, text); err != nil {
		return chat.Message{}, err
	}

	run, err := r.gateway.StartRun(ctx, threadID, r.assistantID)
	if err != nil {
		return chat.Message{}, err
	}
	log.Debug().Str("thread_id", threadID).Str("run_id", run.ID).Msg("assistant run started")

	run, err = r.poller.Wait(ctx, run, onStatus)
	if err != nil {
		return chat.Message{}, err
	}

	content, err := r.gateway.FetchLatest(ctx, threadID, run.ID)
	if err != nil {
		return chat.Message{}, err
	}

	return r.sessions.AppendMessage(ctx, sessionID, schema.Assistant, content)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, assistant.ErrRunFailed):
		return "run_failed"
	case errors.Is(err, assistant.ErrPollTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, chatservice.ErrTurnInProgress):
		return "busy"
	default:
		return "error"
	}
}
