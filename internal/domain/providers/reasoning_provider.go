package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// ErrReasoningUnauthorized is returned by engines when the API key is rejected.
var ErrReasoningUnauthorized = errors.New("reasoning engine unauthorized")

// ReasoningRequest is one completion request to the reasoning engine.
type ReasoningRequest struct {
	SystemPrompt string
	Prompt       string
	Schema       entities.Schema
}

// ReasoningEngine is the external text-completion capability. Implementations return
// the raw text of the completion or an engine-level error (network, auth, timeout).
type ReasoningEngine interface {
	Complete(ctx context.Context, req ReasoningRequest) (string, error)
	Name() string
}
