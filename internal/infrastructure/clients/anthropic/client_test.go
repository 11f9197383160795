package anthropic

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/pkg/config"
)

func newTestClient(t *testing.T, status int, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(&config.AnthropicConfig{
		APIKey:  "test-key",
		Model:   "claude-test",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.AnthropicConfig{})
	assert.Error(t, err)
}

func TestComplete_JoinsTextBlocks(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [{"type": "text", "text": "{\"provider_id\":"}, {"type": "text", "text": "\"gp-1\"}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`)

	text, err := client.Complete(t.Context(), providers.ReasoningRequest{SystemPrompt: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, `{"provider_id":"gp-1"}`, text)
	assert.Equal(t, "anthropic:claude-test", client.Name())
}

func TestComplete_UnauthorizedIsWrapped(t *testing.T) {
	client := newTestClient(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)

	_, err := client.Complete(t.Context(), providers.ReasoningRequest{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrReasoningUnauthorized)
}
