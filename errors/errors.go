package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingAPIKey indicates no API key is configured for the AI endpoint
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrStreamActive indicates a streaming request is already in flight
	ErrStreamActive = errors.New("stream already active")

	// ErrEmptyContext indicates a document action was triggered with no
	// surrounding content to work from
	ErrEmptyContext = errors.New("no content to work from")

	// ErrGhostActive indicates a ghost review is already open for the document
	ErrGhostActive = errors.New("ghost review already active")

	// ErrLLMCommunication indicates LLM communication failed
	ErrLLMCommunication = errors.New("llm communication failed")

	// ErrDatabaseOperation indicates a database operation failed
	ErrDatabaseOperation = errors.New("database operation failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMissingAPIKey checks if error is a missing credential error
func IsMissingAPIKey(err error) bool {
	return errors.Is(err, ErrMissingAPIKey)
}

// IsStreamActive checks if error indicates an in-flight stream
func IsStreamActive(err error) bool {
	return errors.Is(err, ErrStreamActive)
}

// IsDatabaseOperation checks if error is a database operation error
func IsDatabaseOperation(err error) bool {
	return errors.Is(err, ErrDatabaseOperation)
}
