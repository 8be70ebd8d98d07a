// Package anthropic streams replies from the Claude Messages API.
package anthropic

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

type Config struct {
	BaseURL   string
	APIKeyEnv string
	Params    llm.Params
}

type Chat struct {
	client anthropic.Client
	params llm.Params
}

var _ llm.ChatModel = (*Chat)(nil)

func New(cfg Config) (*Chat, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Chat{client: anthropic.NewClient(opts...), params: cfg.Params}, nil
}

func (c *Chat) Name() string { return "anthropic:" + c.params.Model }

func (c *Chat) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan llm.StreamToken, error) {
	system, turns := llm.SplitSystem(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.params.Model),
		MaxTokens: int64(c.params.MaxTokens),
		Messages:  toMessages(turns),
	}
	if c.params.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(min(c.params.Temperature, 1)))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	out := make(chan llm.StreamToken)
	go func() {
		defer close(out)
		defer stream.Close()
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !llm.Send(ctx, out, llm.StreamToken{Content: delta.Text}) {
						return
					}
				}
			case anthropic.MessageStopEvent:
				llm.Send(ctx, out, llm.StreamToken{Done: true})
				return
			}
		}
		if err := stream.Err(); err != nil {
			llm.Send(ctx, out, llm.StreamToken{Err: err})
		}
	}()
	return out, nil
}

func toMessages(turns []domain.ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return out
}
