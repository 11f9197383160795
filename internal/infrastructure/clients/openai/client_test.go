package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.OpenAIConfig{
		APIKey:       "test-key",
		Model:        "gpt-test",
		BaseURL:      server.URL,
		RateLimitRPM: -1,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestComplete_ReturnsOutputText(t *testing.T) {
	var received map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":"{\"urgency_level\":3}"}]}]}`))
	})

	text, err := client.Complete(t.Context(), providers.ReasoningRequest{
		SystemPrompt: "system",
		Prompt:       "patient says hello",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"urgency_level":3}`, text)
	assert.Equal(t, "gpt-test", received["model"])
	assert.Equal(t, "openai:gpt-test", client.Name())
}

func TestComplete_UnauthorizedIsWrapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Complete(t.Context(), providers.ReasoningRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrReasoningUnauthorized)
}

func TestComplete_ServerErrorAndEmptyOutput(t *testing.T) {
	failing := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := failing.Complete(t.Context(), providers.ReasoningRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "status 502")

	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[]}`))
	})
	_, err = empty.Complete(t.Context(), providers.ReasoningRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "missing output text")
}

func TestNewTokenBucket_DisabledForNegativeRate(t *testing.T) {
	assert.Nil(t, newTokenBucket(-1, 5))
	assert.NotNil(t, newTokenBucket(0, 0))
}
