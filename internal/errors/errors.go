package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeSchemaFetch   ErrorType = "schema_fetch"
	ErrTypeIntrospection ErrorType = "introspection"
	ErrTypeEmbedding     ErrorType = "embedding"
	ErrTypeVectorIndex   ErrorType = "vector_index"
	ErrTypeTimeout       ErrorType = "timeout"
	ErrTypeLLM           ErrorType = "llm"
	ErrTypeValidation    ErrorType = "validation"
	ErrTypeConflict      ErrorType = "conflict"
	ErrTypeConfig        ErrorType = "config"
	ErrTypeNetwork       ErrorType = "network"
	ErrTypeFileSystem    ErrorType = "filesystem"
	ErrTypeInternal      ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
// A deadline or cancellation anywhere in the chain turns the error into a timeout.
func Wrap(err error, errType ErrorType, message string) *Error {
	if isDeadline(err) {
		errType = ErrTypeTimeout
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	if isDeadline(err) {
		return ErrTypeTimeout
	}

	return ErrTypeInternal
}

func isDeadline(err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}

// User-facing messages. Internal detail never reaches the user through these.
const (
	MessageTryAgain = "The request took too long. Please try again."
	MessageApology  = "An error occurred while processing your request. Please try again."
	MessageInvalid  = "The request is invalid."
	MessageBusy     = "Indexing is already in progress."
)

// UserMessage maps an error to the message shown to end users
func UserMessage(err error) string {
	switch GetType(err) {
	case ErrTypeTimeout:
		return MessageTryAgain
	case ErrTypeValidation:
		return MessageInvalid
	case ErrTypeConflict:
		return MessageBusy
	default:
		return MessageApology
	}
}

// FromContext classifies a context error. Deadline expiry becomes a timeout,
// anything else is returned unchanged.
func FromContext(err error) error {
	if isDeadline(err) {
		var structErr *Error
		if errors.As(err, &structErr) && structErr.Type == ErrTypeTimeout {
			return err
		}

		return Wrap(err, ErrTypeTimeout, "operation timed out")
	}

	return err
}
