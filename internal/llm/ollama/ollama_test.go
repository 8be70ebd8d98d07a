package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

func TestStreamNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		_ = enc.Encode(map[string]any{"model": "llama3.2", "message": map[string]string{"role": "assistant", "content": "Blue"}, "done": false})
		_ = enc.Encode(map[string]any{"model": "llama3.2", "message": map[string]string{"role": "assistant", "content": "."}, "done": false})
		_ = enc.Encode(map[string]any{"model": "llama3.2", "message": map[string]string{"role": "assistant", "content": ""}, "done": true})
	}))
	defer srv.Close()

	chat, err := New(Config{BaseURL: srv.URL, Params: llm.Params{Model: "llama3.2", Temperature: 1, TopP: 1, MaxTokens: 64}})
	require.NoError(t, err)

	answer, err := llm.NewChatBackend(chat).Answer(context.Background(), domain.AnswerRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleSystem, Content: "doc"}, {Role: domain.RoleUser, Content: "sky?"}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Blue.", answer)
}

func TestStreamWithoutDoneIsInterrupted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"role": "assistant", "content": "half"}, "done": false})
	}))
	defer srv.Close()

	chat, err := New(Config{BaseURL: srv.URL, Params: llm.Params{Model: "m"}})
	require.NoError(t, err)

	_, err = llm.NewChatBackend(chat).Answer(context.Background(), domain.AnswerRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrStreamInterrupted)
}
