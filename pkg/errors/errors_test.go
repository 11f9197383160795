package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsType_WalksWrappedAppErrors(t *testing.T) {
	inner := NewSchemaViolation("urgency_level out of range")
	outer := NewUnrecoverableStageFailure("triage", "fallback disabled", inner)

	assert.True(t, IsType(outer, ErrorTypeUnrecoverableStage))
	assert.True(t, IsType(outer, ErrorTypeSchemaViolation))
	assert.False(t, IsType(outer, ErrorTypeEngine))
	assert.False(t, IsType(nil, ErrorTypeEngine))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeInternal))
}

func TestParseFailure_UnwrapsEngineError(t *testing.T) {
	engineErr := NewEngineError("request failed", context.DeadlineExceeded)
	pf := NewParseFailure(ReasonEngineError, "", engineErr)
	wrapped := fmt.Errorf("intake: %w", pf)

	got, ok := AsParseFailure(wrapped)
	require.True(t, ok)
	assert.Equal(t, ReasonEngineError, got.Reason)
	assert.True(t, IsType(got.Err, ErrorTypeEngine))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.Contains(t, pf.Error(), "engine-error")
}

func TestAppError_Message(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: case CASE-1", NewNotFoundError("case CASE-1").Error())
	assert.Equal(t, "UNRECOVERABLE_STAGE: intake: empty input", NewUnrecoverableStageFailure("intake", "empty input", nil).Error())
}
