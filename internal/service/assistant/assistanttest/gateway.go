// Package assistanttest provides a scriptable in-memory assistant.Gateway.
package assistanttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant"
)

// Sent records one user message delivered to the fake.
type Sent struct {
	ThreadID string
	Text     string
}

// Gateway plays back scripted run statuses. Each started run walks Statuses in order
// and then stays on the last entry; an empty script completes immediately.
type Gateway struct {
	// InitialStatus is reported by StartRun; queued when empty.
	InitialStatus chat.RunStatus
	Statuses      []chat.RunStatus
	// Reply builds the assistant answer from the last user text. Defaults to an echo.
	Reply func(text string) string

	CreateThreadErr error
	SendErr         error
	StartRunErr     error
	GetRunErr       error
	FetchErr        error

	mu      sync.Mutex
	threads []string
	sent    []Sent
	runs    int
	polls   map[string]int
}

var _ assistant.Gateway = (*Gateway)(nil)

// CreateThread returns thread_1, thread_2, ...
func (g *Gateway) CreateThread(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateThreadErr != nil {
		return "", g.CreateThreadErr
	}
	id := fmt.Sprintf("thread_%d", len(g.threads)+1)
	g.threads = append(g.threads, id)
	return id, nil
}

func (g *Gateway) Send(_ context.Context, threadID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		return g.SendErr
	}
	g.sent = append(g.sent, Sent{ThreadID: threadID, Text: text})
	return nil
}

func (g *Gateway) StartRun(_ context.Context, threadID, _ string) (chat.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.StartRunErr != nil {
		return chat.Run{}, g.StartRunErr
	}
	g.runs++
	status := g.InitialStatus
	if status == "" {
		status = chat.RunQueued
	}
	return chat.Run{ID: fmt.Sprintf("run_%d", g.runs), ThreadID: threadID, Status: status}, nil
}

func (g *Gateway) GetRun(_ context.Context, threadID, runID string) (chat.Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.GetRunErr != nil {
		return chat.Run{}, g.GetRunErr
	}
	if g.polls == nil {
		g.polls = make(map[string]int)
	}

	status := chat.RunCompleted
	if n := len(g.Statuses); n > 0 {
		idx := g.polls[runID]
		if idx >= n {
			idx = n - 1
		}
		status = g.Statuses[idx]
	}
	g.polls[runID]++
	return chat.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

func (g *Gateway) FetchLatest(_ context.Context, threadID, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FetchErr != nil {
		return "", g.FetchErr
	}

	var last string
	for _, s := range g.sent {
		if s.ThreadID == threadID {
			last = s.Text
		}
	}
	if g.Reply != nil {
		return g.Reply(last), nil
	}
	return "echo: " + last, nil
}

// Threads returns the ids created so far.
func (g *Gateway) Threads() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.threads...)
}

// SentMessages returns the user messages delivered so far.
func (g *Gateway) SentMessages() []Sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Sent(nil), g.sent...)
}

// Polls returns how many times GetRun was called for runID.
func (g *Gateway) Polls(runID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls[runID]
}
