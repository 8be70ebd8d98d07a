// Package gemini streams chat replies from Google Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

type Config struct {
	APIKeyEnv string
	Params    llm.Params
}

type Chat struct {
	client *genai.Client
	params llm.Params
}

var _ llm.ChatModel = (*Chat)(nil)

func New(ctx context.Context, cfg Config) (*Chat, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Chat{client: client, params: cfg.Params}, nil
}

func (c *Chat) Name() string { return "gemini:" + c.params.Model }

// Stream replays all but the last turn as chat history and sends the last.
func (c *Chat) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan llm.StreamToken, error) {
	system, turns := llm.SplitSystem(messages)
	if len(turns) == 0 {
		return nil, errors.New("no user message to send")
	}
	model := c.client.GenerativeModel(c.params.Model)
	model.SetTemperature(c.params.Temperature)
	model.SetTopP(c.params.TopP)
	if c.params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.params.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	iter := cs.SendMessageStream(ctx, genai.Text(turns[len(turns)-1].Content))

	out := make(chan llm.StreamToken)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				llm.Send(ctx, out, llm.StreamToken{Done: true})
				return
			}
			if err != nil {
				llm.Send(ctx, out, llm.StreamToken{Err: err})
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if text, ok := part.(genai.Text); ok && text != "" {
						if !llm.Send(ctx, out, llm.StreamToken{Content: string(text)}) {
							return
						}
					}
				}
			}
		}
	}()
	return out, nil
}
