package providers

import (
	"context"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// CaseEventType describes what happened to a case
type CaseEventType string

const (
	CaseEventFinalized      CaseEventType = "case_finalized"
	CaseEventReviewRequired CaseEventType = "case_review_required"
)

// CaseEvent is published once a case has been finalized
type CaseEvent struct {
	ID        string                `json:"id"`
	Type      CaseEventType         `json:"type"`
	CaseID    string                `json:"case_id"`
	Outcome   *entities.CaseOutcome `json:"outcome"`
	Timestamp time.Time             `json:"timestamp"`
}

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *CaseEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *CaseEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for case events
const (
	// EventChannelCases carries every finalized case
	EventChannelCases = "cases:finalized"

	// EventChannelReview carries only cases that require human review
	EventChannelReview = "cases:review"
)
