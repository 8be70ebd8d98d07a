// Package ollama streams chat replies from a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollamaapi "github.com/ollama/ollama/api"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

const DefaultBaseURL = "http://localhost:11434"

type Config struct {
	BaseURL string
	Timeout time.Duration
	Params  llm.Params
}

type Chat struct {
	client *ollamaapi.Client
	params llm.Params
}

var _ llm.ChatModel = (*Chat)(nil)

func New(cfg Config) (*Chat, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	hc := &http.Client{}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &Chat{client: ollamaapi.NewClient(base, hc), params: cfg.Params}, nil
}

func (c *Chat) Name() string { return "ollama:" + c.params.Model }

func (c *Chat) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan llm.StreamToken, error) {
	msgs := make([]ollamaapi.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollamaapi.Message{Role: string(m.Role), Content: m.Content}
	}
	stream := true
	req := &ollamaapi.ChatRequest{
		Model:    c.params.Model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.params.Temperature,
			"top_p":       c.params.TopP,
			"num_predict": c.params.MaxTokens,
		},
	}
	out := make(chan llm.StreamToken)
	go func() {
		defer close(out)
		done := false
		err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
			if resp.Message.Content != "" {
				if !llm.Send(ctx, out, llm.StreamToken{Content: resp.Message.Content}) {
					return ctx.Err()
				}
			}
			if resp.Done {
				done = true
			}
			return nil
		})
		switch {
		case err != nil:
			llm.Send(ctx, out, llm.StreamToken{Err: err})
		case done:
			llm.Send(ctx, out, llm.StreamToken{Done: true})
		}
	}()
	return out, nil
}
