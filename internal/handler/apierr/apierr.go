// Package apierr maps relay errors onto HTTP responses.
package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
	"github.com/zhouzirui/assistant-relay/backend/pkg/utils"
)

// Body is the JSON error payload. RunStatus is set for failed assistant runs.
type Body struct {
	Error     string         `json:"error"`
	RunStatus chat.RunStatus `json:"runStatus,omitempty"`
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, relay.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidPassword), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, chatservice.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatservice.ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, assistant.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// nginx's "client closed request"; the client is gone and never sees it.
		return 499
	default:
		// Run failures, missing replies and transport errors all come from upstream.
		return http.StatusBadGateway
	}
}

// NewBody builds the payload for err.
func NewBody(err error) Body {
	body := Body{Error: err.Error()}
	var runErr *assistant.RunError
	if errors.As(err, &runErr) {
		body.Error = "Run failed with status: " + string(runErr.Status)
		body.RunStatus = runErr.Status
	}
	return body
}

// Write sends the mapped status and payload.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	utils.RespondJSON(w, r, Status(err), NewBody(err))
}
