package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
)

var (
	// ErrRunFailed matches every *RunError.
	ErrRunFailed   = errors.New("assistant run failed")
	ErrPollTimeout = errors.New("timed out waiting for assistant run")
	ErrNoReply     = errors.New("assistant produced no reply")
)

// Gateway is the remote thread/run/message API consumed by the relay.
type Gateway interface {
	// CreateThread opens a new remote conversation and returns its id.
	CreateThread(ctx context.Context) (string, error)
	// Send appends a user-authored message to the thread.
	Send(ctx context.Context, threadID, text string) error
	// StartRun asks the assistant to process the thread.
	StartRun(ctx context.Context, threadID, assistantID string) (chat.Run, error)
	// GetRun re-fetches the status of a run.
	GetRun(ctx context.Context, threadID, runID string) (chat.Run, error)
	// FetchLatest returns the newest assistant-authored text of the thread. When runID
	// is set only messages produced by that run are considered.
	FetchLatest(ctx context.Context, threadID, runID string) (string, error)
}

// RunError reports a run that reached a terminal status other than completed.
type RunError struct {
	RunID  string
	Status chat.RunStatus
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
}

// Is makes errors.Is(err, ErrRunFailed) hold for any RunError.
func (e *RunError) Is(target error) bool {
	return target == ErrRunFailed
}
