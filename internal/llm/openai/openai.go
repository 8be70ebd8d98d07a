// Package openai streams chat completions from OpenAI-compatible APIs
// (OpenAI, Groq, vLLM, LM Studio).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	goopenai "github.com/meguminnnnnnnnn/go-openai"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

const GroqBaseURL = "https://api.groq.com/openai/v1"

type Config struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
	Params    llm.Params
}

// Chat is an llm.ChatModel backed by the chat completions endpoint.
type Chat struct {
	client *goopenai.Client
	params llm.Params
}

var _ llm.ChatModel = (*Chat)(nil)

func New(cfg Config) (*Chat, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Chat{client: goopenai.NewClientWithConfig(oc), params: cfg.Params}, nil
}

func (c *Chat) Name() string { return "openai:" + c.params.Model }

func (c *Chat) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan llm.StreamToken, error) {
	temperature := c.params.Temperature
	req := goopenai.ChatCompletionRequest{
		Model:       c.params.Model,
		Messages:    toMessages(messages),
		Temperature: &temperature,
		TopP:        c.params.TopP,
		MaxTokens:   c.params.MaxTokens,
	}
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}
	out := make(chan llm.StreamToken)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				llm.Send(ctx, out, llm.StreamToken{Done: true})
				return
			}
			if err != nil {
				llm.Send(ctx, out, llm.StreamToken{Err: err})
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !llm.Send(ctx, out, llm.StreamToken{Content: choice.Delta.Content}) {
					return
				}
			}
		}
	}()
	return out, nil
}

func toMessages(messages []domain.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
