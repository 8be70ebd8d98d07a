// Package llm adapts hosted chat models to the answering and summarising
// backends used by the orchestrator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat/internal/domain"
)

// StreamToken is one increment of a streamed chat response. The final token
// has Done set; a token with Err ends the stream abnormally.
type StreamToken struct {
	Content string
	Done    bool
	Err     error
}

// ChatModel is a hosted chat-completion API returning a token stream. The
// channel is closed after the Done or Err token, or when ctx ends.
type ChatModel interface {
	Name() string
	Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan StreamToken, error)
}

// Params are the sampling settings shared by all providers.
type Params struct {
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// DefaultParams match the hosted Groq setup: llama-3.3-70b-versatile,
// temperature 1, top_p 1, 1024 completion tokens.
func DefaultParams() Params {
	return Params{Model: "llama-3.3-70b-versatile", Temperature: 1, TopP: 1, MaxTokens: 1024}
}

// Collect drains a stream into the full response text. Every token is
// passed to sink as it arrives. The text is returned only when the stream
// completed; a stream that ends early yields ErrStreamInterrupted.
func Collect(ctx context.Context, stream <-chan StreamToken, sink domain.TokenSink) (string, error) {
	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", domain.ErrStreamInterrupted, ctx.Err())
		case tok, ok := <-stream:
			if !ok {
				return "", domain.ErrStreamInterrupted
			}
			if tok.Err != nil {
				if errors.Is(tok.Err, context.Canceled) || errors.Is(tok.Err, context.DeadlineExceeded) {
					return "", fmt.Errorf("%w: %v", domain.ErrStreamInterrupted, tok.Err)
				}
				return "", fmt.Errorf("%w: %v", domain.ErrBackend, tok.Err)
			}
			if tok.Content != "" {
				b.WriteString(tok.Content)
				if sink != nil {
					sink(tok.Content)
				}
			}
			if tok.Done {
				return b.String(), nil
			}
		}
	}
}

// ChatBackend is the HostedChat answering backend.
type ChatBackend struct {
	model ChatModel
}

var _ domain.AnsweringBackend = (*ChatBackend)(nil)

func NewChatBackend(model ChatModel) *ChatBackend { return &ChatBackend{model: model} }

func (b *ChatBackend) Name() string { return b.model.Name() }

// Answer sends the prepared message sequence and streams the reply.
func (b *ChatBackend) Answer(ctx context.Context, req domain.AnswerRequest, sink domain.TokenSink) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: empty prompt", domain.ErrBackend)
	}
	stream, err := b.model.Stream(ctx, req.Messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	return Collect(ctx, stream, sink)
}

const summaryInstruction = "Summarize the following document in a few sentences. Reply with the summary only."

// ChatSummarizer summarises with a hosted chat model.
type ChatSummarizer struct {
	model ChatModel
}

var _ domain.Summarizer = (*ChatSummarizer)(nil)

func NewChatSummarizer(model ChatModel) *ChatSummarizer { return &ChatSummarizer{model: model} }

func (s *ChatSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	stream, err := s.model.Stream(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: summaryInstruction},
		{Role: domain.RoleUser, Content: text},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	return Collect(ctx, stream, nil)
}

// SplitSystem separates system messages from the conversation, for
// providers that take the system prompt out of band.
func SplitSystem(messages []domain.ChatMessage) (string, []domain.ChatMessage) {
	var sys []string
	rest := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}

// Send delivers tok unless ctx ends first.
func Send(ctx context.Context, ch chan<- StreamToken, tok StreamToken) bool {
	select {
	case ch <- tok:
		return true
	case <-ctx.Done():
		return false
	}
}
