package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

func TestStreamAgainstSSEServer(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"The sky", " is blue."} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	t.Setenv("TEST_GROQ_KEY", "gsk-test")
	params := llm.DefaultParams()
	chat, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GROQ_KEY", Params: params})
	require.NoError(t, err)

	answer, err := llm.NewChatBackend(chat).Answer(context.Background(), domain.AnswerRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "doc"},
			{Role: domain.RoleUser, Content: "What color is the sky?"},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)

	assert.Equal(t, params.Model, got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GROQ_KEY", "bad")
	chat, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GROQ_KEY", Params: llm.DefaultParams()})
	require.NoError(t, err)

	_, err = llm.NewChatBackend(chat).Answer(context.Background(), domain.AnswerRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrBackend)
}
