package assistant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant/assistanttest"
)

func fastPolicy() assistant.PollPolicy {
	return assistant.PollPolicy{
		Interval:    time.Millisecond,
		Multiplier:  1.5,
		MaxInterval: 5 * time.Millisecond,
		MaxWait:     2 * time.Second,
	}
}

func startRun(t *testing.T, gw *assistanttest.Gateway) chat.Run {
	t.Helper()
	run, err := gw.StartRun(context.Background(), "thread_1", "asst")
	require.NoError(t, err)
	return run
}

func TestWaitUntilCompleted(t *testing.T) {
	gw := &assistanttest.Gateway{Statuses: []chat.RunStatus{chat.RunInProgress, chat.RunInProgress, chat.RunCompleted}}
	run := startRun(t, gw)

	var seen []chat.RunStatus
	got, err := assistant.NewPoller(gw, fastPolicy()).Wait(context.Background(), run, func(s chat.RunStatus) {
		seen = append(seen, s)
	})

	require.NoError(t, err)
	assert.Equal(t, chat.RunCompleted, got.Status)
	assert.Equal(t, []chat.RunStatus{chat.RunQueued, chat.RunInProgress, chat.RunInProgress, chat.RunCompleted}, seen)
	assert.Equal(t, 3, gw.Polls(run.ID))
}

func TestWaitFatalStatuses(t *testing.T) {
	for _, status := range []chat.RunStatus{chat.RunFailed, chat.RunCancelled, chat.RunExpired, chat.RunRequiresAction, chat.RunIncomplete} {
		t.Run(string(status), func(t *testing.T) {
			gw := &assistanttest.Gateway{Statuses: []chat.RunStatus{chat.RunInProgress, status}}
			run := startRun(t, gw)

			got, err := assistant.NewPoller(gw, fastPolicy()).Wait(context.Background(), run, nil)

			require.ErrorIs(t, err, assistant.ErrRunFailed)
			var runErr *assistant.RunError
			require.True(t, errors.As(err, &runErr))
			assert.Equal(t, status, runErr.Status)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, 2, gw.Polls(run.ID), "polling must stop at the first terminal status")
		})
	}
}

func TestWaitTerminalStartSkipsPolling(t *testing.T) {
	gw := &assistanttest.Gateway{InitialStatus: chat.RunCompleted}
	run := startRun(t, gw)

	_, err := assistant.NewPoller(gw, fastPolicy()).Wait(context.Background(), run, nil)
	require.NoError(t, err)
	assert.Zero(t, gw.Polls(run.ID))
}

func TestWaitTimesOut(t *testing.T) {
	gw := &assistanttest.Gateway{Statuses: []chat.RunStatus{chat.RunInProgress}}
	run := startRun(t, gw)
	policy := fastPolicy()
	policy.MaxWait = 30 * time.Millisecond

	_, err := assistant.NewPoller(gw, policy).Wait(context.Background(), run, nil)
	require.ErrorIs(t, err, assistant.ErrPollTimeout)
	assert.NotErrorIs(t, err, assistant.ErrRunFailed)
}

func TestWaitHonoursCancellation(t *testing.T) {
	gw := &assistanttest.Gateway{Statuses: []chat.RunStatus{chat.RunInProgress}}
	run := startRun(t, gw)
	policy := fastPolicy()
	policy.Interval = time.Hour
	policy.MaxInterval = time.Hour
	policy.MaxWait = 0

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := assistant.NewPoller(gw, policy).Wait(ctx, run, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, gw.Polls(run.ID))
}

func TestWaitReturnsRemoteErrorWithoutRetry(t *testing.T) {
	boom := errors.New("503 from upstream")
	gw := &assistanttest.Gateway{GetRunErr: boom}
	run := startRun(t, gw)

	_, err := assistant.NewPoller(gw, fastPolicy()).Wait(context.Background(), run, nil)
	require.ErrorIs(t, err, boom)
}
