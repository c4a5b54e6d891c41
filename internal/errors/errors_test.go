package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "test error message")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "test error message", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeSchemaFetch, "failed to read %s", "information_schema")

	assert.Equal(t, ErrTypeSchemaFetch, err.Type)
	assert.Equal(t, "failed to read information_schema", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeEmbedding, "embedding call failed")

	assert.Equal(t, ErrTypeEmbedding, wrappedErr.Type)
	assert.Equal(t, "embedding call failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapDeadlineBecomesTimeout(t *testing.T) {
	cause := fmt.Errorf("post embeddings: %w", context.DeadlineExceeded)
	wrappedErr := Wrap(cause, ErrTypeEmbedding, "embedding call failed")

	assert.Equal(t, ErrTypeTimeout, wrappedErr.Type)
	assert.True(t, errors.Is(wrappedErr, context.DeadlineExceeded))
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrapf(
		originalErr,
		ErrTypeNetwork,
		"failed to connect to %s:%d",
		"localhost",
		5432,
	)

	assert.Equal(t, ErrTypeNetwork, wrappedErr.Type)
	assert.Equal(t, "failed to connect to localhost:5432", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrTypeValidation,
				Message: "invalid input",
			},
			expected: "validation: invalid input",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeVectorIndex,
				Message: "query failed",
				Cause:   errors.New("connection timeout"),
			},
			expected: "vector_index: query failed (caused by: connection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeNetwork, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeSchemaFetch, "cannot read schema")
	err = err.WithSuggestion("Check DATABASE_URL")
	err = err.WithSuggestion("Check the database user permissions")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "Check DATABASE_URL")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeValidation, "validation error")
	regularErr := errors.New("regular error")
	nested := fmt.Errorf("outer: %w", Wrap(regularErr, ErrTypeIntrospection, "inner"))

	assert.True(t, IsType(structErr, ErrTypeValidation))
	assert.False(t, IsType(structErr, ErrTypeEmbedding))
	assert.False(t, IsType(regularErr, ErrTypeValidation))
	assert.True(t, IsType(nested, ErrTypeIntrospection))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeLLM, GetType(New(ErrTypeLLM, "API error")))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("regular error")))
	assert.Equal(t, ErrTypeTimeout, GetType(context.DeadlineExceeded))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "log_level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "log_level")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"timeout", Wrap(context.DeadlineExceeded, ErrTypeEmbedding, "slow"), MessageTryAgain},
		{"validation", New(ErrTypeValidation, "empty question"), MessageInvalid},
		{"conflict", New(ErrTypeConflict, "busy"), MessageBusy},
		{"schema", New(ErrTypeSchemaFetch, "boom"), MessageApology},
		{"plain", errors.New("secret internal detail"), MessageApology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := UserMessage(tt.err)
			assert.Equal(t, tt.expected, msg)
			assert.NotContains(t, msg, "secret")
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, FromContext(plain))

	classified := FromContext(context.DeadlineExceeded)
	assert.True(t, IsType(classified, ErrTypeTimeout))
	assert.Equal(t, MessageTryAgain, UserMessage(classified))
}
