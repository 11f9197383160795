package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeEngine indicates transport, auth or timeout trouble talking to the reasoning engine
	ErrorTypeEngine ErrorType = "ENGINE"

	// ErrorTypeSchemaViolation indicates a parsed value failed structural constraints
	ErrorTypeSchemaViolation ErrorType = "SCHEMA_VIOLATION"

	// ErrorTypeUnrecoverableStage indicates a stage fallback could not produce a minimal result
	ErrorTypeUnrecoverableStage ErrorType = "UNRECOVERABLE_STAGE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewEngineError creates a reasoning engine error
func NewEngineError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeEngine,
		Message: message,
		Err:     err,
	}
}

// NewSchemaViolation creates a schema violation error
func NewSchemaViolation(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeSchemaViolation,
		Message: message,
	}
}

// NewUnrecoverableStageFailure creates an error for a stage whose fallback also failed
func NewUnrecoverableStageFailure(stage, message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeUnrecoverableStage,
		Message: stage + ": " + message,
		Err:     err,
	}
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, t ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Err
	}
	return false
}

// ParseReason classifies why the reasoning gateway could not produce a value.
type ParseReason string

const (
	ReasonNotStructured   ParseReason = "not-structured"
	ReasonSchemaViolation ParseReason = "schema-violation"
	ReasonEngineError     ParseReason = "engine-error"
	ReasonTimeout         ParseReason = "timeout"
)

// ParseFailure is returned by the reasoning gateway when the engine output is unusable.
// Raw holds whatever text the engine returned, if any.
type ParseFailure struct {
	Reason ParseReason
	Raw    string
	Err    error
}

// Error implements the error interface
func (e *ParseFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse failure (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse failure (%s)", e.Reason)
}

// Unwrap implements the unwrap interface
func (e *ParseFailure) Unwrap() error {
	return e.Err
}

// NewParseFailure creates a parse failure with the given reason
func NewParseFailure(reason ParseReason, raw string, err error) *ParseFailure {
	return &ParseFailure{Reason: reason, Raw: raw, Err: err}
}

// AsParseFailure extracts a ParseFailure from err's chain.
func AsParseFailure(err error) (*ParseFailure, bool) {
	var pf *ParseFailure
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
