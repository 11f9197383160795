package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
)

// StreamHandler relays case events to clients as Server-Sent Events
type StreamHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
}

// NewStreamHandler creates a new SSE handler
func NewStreamHandler(eventBus providers.EventBus) *StreamHandler {
	return &StreamHandler{
		eventBus:  eventBus,
		heartbeat: 30 * time.Second,
	}
}

// WithHeartbeat overrides the keep-alive interval.
func (h *StreamHandler) WithHeartbeat(d time.Duration) *StreamHandler {
	if d > 0 {
		h.heartbeat = d
	}
	return h
}

// StreamCases handles GET /api/stream/cases
func (h *StreamHandler) StreamCases(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, providers.EventChannelCases)
}

// StreamReview handles GET /api/stream/review
func (h *StreamHandler) StreamReview(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, providers.EventChannelReview)
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, channel string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logger := observability.LoggerFromContext(ctx)

	events, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "connected", map[string]interface{}{
		"channel":   channel,
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("channel", channel).Msg("Client disconnected from case stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
