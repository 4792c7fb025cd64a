package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/assistant-relay/backend/internal/config"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
)

// fetchWindow is how many recent messages are scanned for the assistant reply.
const fetchWindow = 20

// OpenAIGateway implements Gateway on top of the OpenAI Assistants API.
type OpenAIGateway struct {
	client *openai.Client
}

// NewOpenAIGateway creates a gateway using the configured credential.
func NewOpenAIGateway(cfg config.AssistantConfig) *OpenAIGateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if cfg.OrgID != "" {
		clientCfg.OrgID = cfg.OrgID
	}
	if cfg.RequestTimeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &OpenAIGateway{client: openai.NewClientWithConfig(clientCfg)}
}

// CreateThread opens an empty thread.
func (g *OpenAIGateway) CreateThread(ctx context.Context) (string, error) {
	thread, err := g.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// Send posts a user message to the thread.
func (g *OpenAIGateway) Send(ctx context.Context, threadID, text string) error {
	_, err := g.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("append message to thread %s: %w", threadID, err)
	}
	return nil
}

// StartRun starts the assistant on the thread.
func (g *OpenAIGateway) StartRun(ctx context.Context, threadID, assistantID string) (chat.Run, error) {
	run, err := g.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return chat.Run{}, fmt.Errorf("start run on thread %s: %w", threadID, err)
	}
	return toRun(threadID, run), nil
}

// GetRun fetches the current run status.
func (g *OpenAIGateway) GetRun(ctx context.Context, threadID, runID string) (chat.Run, error) {
	run, err := g.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return chat.Run{}, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return toRun(threadID, run), nil
}

// FetchLatest lists the thread newest first and returns the first assistant text.
func (g *OpenAIGateway) FetchLatest(ctx context.Context, threadID, runID string) (string, error) {
	limit := fetchWindow
	order := "desc"
	var runFilter *string
	if runID != "" {
		runFilter = &runID
	}

	list, err := g.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, runFilter)
	if err != nil {
		return "", fmt.Errorf("list messages of thread %s: %w", threadID, err)
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		if text := messageText(msg); text != "" {
			return text, nil
		}
	}
	return "", ErrNoReply
}

func toRun(threadID string, run openai.Run) chat.Run {
	if run.ThreadID != "" {
		threadID = run.ThreadID
	}
	return chat.Run{
		ID:       run.ID,
		ThreadID: threadID,
		Status:   chat.RunStatus(run.Status),
	}
}

// messageText joins the text parts of a message; image parts are skipped.
func messageText(msg openai.Message) string {
	parts := make([]string, 0, len(msg.Content))
	for _, content := range msg.Content {
		if content.Text == nil || content.Text.Value == "" {
			continue
		}
		parts = append(parts, content.Text.Value)
	}
	return strings.Join(parts, "\n\n")
}

var _ Gateway = (*OpenAIGateway)(nil)
