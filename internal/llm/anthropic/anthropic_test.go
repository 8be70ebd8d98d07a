package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/llm"
)

func sse(w http.ResponseWriter, event string, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func TestStreamMessages(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, "message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-test","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":1}}}`)
		sse(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		sse(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"The sky"}}`)
		sse(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" is blue."}}`)
		sse(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		sse(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":4}}`)
		sse(w, "message_stop", `{"type":"message_stop"}`)
	}))
	defer srv.Close()

	t.Setenv("TEST_ANTHROPIC_KEY", "sk-ant-test")
	chat, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_ANTHROPIC_KEY", Params: llm.Params{Model: "claude-test", MaxTokens: 256, Temperature: 1}})
	require.NoError(t, err)

	answer, err := llm.NewChatBackend(chat).Answer(context.Background(), domain.AnswerRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "document text"},
			{Role: domain.RoleUser, Content: "earlier"},
			{Role: domain.RoleAssistant, Content: "reply"},
			{Role: domain.RoleUser, Content: "What color is the sky?"},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)

	assert.Equal(t, "claude-test", body["model"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 3)
	assert.NotNil(t, body["system"])
}
