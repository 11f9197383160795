package handlers_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/adapters/events"
	"github.com/zatekoja/caretriage/internal/api/handlers"
	"github.com/zatekoja/caretriage/internal/domain/providers"
)

// readEvent returns the next SSE event name and data line.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestStreamHandler_RelaysCaseEvents(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	handler := handlers.NewStreamHandler(bus).WithHeartbeat(time.Hour)
	server := httptest.NewServer(http.HandlerFunc(handler.StreamReview))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, providers.EventChannelReview)

	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelReview, &providers.CaseEvent{
		ID:     "evt-1",
		Type:   providers.CaseEventReviewRequired,
		CaseID: "CASE-00C0FFEE",
	}))

	name, data = readEvent(t, reader)
	assert.Equal(t, string(providers.CaseEventReviewRequired), name)
	assert.Contains(t, data, "CASE-00C0FFEE")
}

func TestStreamHandler_Heartbeat(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	handler := handlers.NewStreamHandler(bus).WithHeartbeat(20 * time.Millisecond)
	server := httptest.NewServer(http.HandlerFunc(handler.StreamCases))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	require.Equal(t, "connected", name)
	name, _ = readEvent(t, reader)
	assert.Equal(t, "heartbeat", name)
}

func TestStreamHandler_ClosedBus(t *testing.T) {
	bus := events.NewMemoryEventBus()
	require.NoError(t, bus.Close())

	handler := handlers.NewStreamHandler(bus)
	w := httptest.NewRecorder()
	handler.StreamCases(w, httptest.NewRequest(http.MethodGet, "/api/stream/cases", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
