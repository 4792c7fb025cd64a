package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/config"
	"github.com/zhouzirui/assistant-relay/backend/internal/metrics"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
)

// PollPolicy bounds how a run is awaited.
type PollPolicy struct {
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	MaxWait     time.Duration
}

// PolicyFromConfig extracts the polling settings.
func PolicyFromConfig(cfg config.AssistantConfig) PollPolicy {
	return PollPolicy{
		Interval:    cfg.PollInterval,
		Multiplier:  cfg.PollMultiplier,
		MaxInterval: cfg.PollMaxInterval,
		MaxWait:     cfg.PollMaxWait,
	}
}

// Poller waits for runs to leave the pending states.
type Poller struct {
	gateway Gateway
	policy  PollPolicy
}

// NewPoller creates a Poller re-fetching runs through gateway.
func NewPoller(gateway Gateway, policy PollPolicy) *Poller {
	return &Poller{gateway: gateway, policy: policy}
}

func (p *Poller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.policy.Interval
	b.Multiplier = p.policy.Multiplier
	b.MaxInterval = p.policy.MaxInterval
	b.MaxElapsedTime = p.policy.MaxWait
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Wait sleeps and re-fetches run until its status is terminal. onStatus, when set,
// observes every fetched status, including the initial one.
//
// A completed run is returned with a nil error. Other terminal statuses yield a
// *RunError. Exceeding MaxWait yields ErrPollTimeout and a cancelled ctx yields
// ctx.Err(). Remote errors abort the wait without retry.
func (p *Poller) Wait(ctx context.Context, run chat.Run, onStatus func(chat.RunStatus)) (chat.Run, error) {
	log := zerolog.Ctx(ctx)
	started := time.Now()
	observe := func(status string) {
		metrics.RunWaitDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	}

	notify := func(status chat.RunStatus) {
		if onStatus != nil {
			onStatus(status)
		}
	}
	notify(run.Status)

	b := p.newBackOff()
	for run.Status.Pending() {
		next := b.NextBackOff()
		if next == backoff.Stop {
			observe("timeout")
			return run, fmt.Errorf("%w: run %s still %s after %s", ErrPollTimeout, run.ID, run.Status, time.Since(started).Round(time.Millisecond))
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			observe("cancelled")
			return run, ctx.Err()
		case <-timer.C:
		}

		refreshed, err := p.gateway.GetRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			observe("error")
			return run, err
		}
		run = refreshed

		metrics.RunPollsTotal.WithLabelValues(string(run.Status)).Inc()
		log.Debug().
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Dur("next_wait", next).
			Msg("polled assistant run")
		notify(run.Status)
	}

	observe(string(run.Status))
	if !run.Status.Completed() {
		return run, &RunError{RunID: run.ID, Status: run.Status}
	}
	return run, nil
}
