// Package errors provides the error taxonomy for reposcout.
// Every failure that crosses a package boundary is one of these types so the
// reconciliation loop can decide, with errors.Is/As, whether a record is
// skipped or the whole run is aborted.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Sentinel errors used for classification.
var (
	// ErrConfig indicates missing or invalid configuration.
	ErrConfig = errors.New("configuration error")

	// ErrTransient indicates a failure that may resolve itself on retry.
	ErrTransient = errors.New("transient error")

	// ErrFatal indicates a failure that requires operator intervention.
	ErrFatal = errors.New("fatal error")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the API rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAPIKeyRequired indicates that an API token is required but not provided.
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrAPIKeyInvalid indicates that the provided API token was rejected.
	ErrAPIKeyInvalid = errors.New("API key invalid")

	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// TransientError is returned once a retryable failure has exhausted its
// attempt budget. It carries the last observed status code.
type TransientError struct {
	Operation  string
	StatusCode int
	Attempts   int
	Err        error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed after %d attempt(s) (last status %d): %v", e.Operation, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Operation, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientError) Is(target error) bool {
	if target == ErrTransient {
		return true
	}
	if target == ErrRateLimited {
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusForbidden
	}
	return false
}

// NewTransientError creates a new TransientError
func NewTransientError(operation string, statusCode, attempts int, err error) *TransientError {
	return &TransientError{
		Operation:  operation,
		StatusCode: statusCode,
		Attempts:   attempts,
		Err:        err,
	}
}

// FatalError indicates misconfiguration or rejected credentials. It is never retried.
type FatalError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *FatalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FatalError) Is(target error) bool {
	switch target {
	case ErrFatal:
		return true
	case ErrAPIKeyInvalid:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// NewFatalError creates a new FatalError
func NewFatalError(operation string, statusCode int, message string, err error) *FatalError {
	return &FatalError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// RecordUpdateError wraps a failed write of a single record.
// Its classification (transient or fatal) comes from the wrapped error.
type RecordUpdateError struct {
	RecordID string
	Err      error
}

// Error implements the error interface
func (e *RecordUpdateError) Error() string {
	return fmt.Sprintf("failed to update record %s: %v", e.RecordID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RecordUpdateError) Unwrap() error {
	return e.Err
}

// NewRecordUpdateError creates a new RecordUpdateError
func NewRecordUpdateError(recordID string, err error) *RecordUpdateError {
	return &RecordUpdateError{RecordID: recordID, Err: err}
}

// APIError represents an unexpected response from a remote API
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return target == ErrRateLimited
	}
	return false
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsTransient checks if an error is transient
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsFatal checks if an error must abort the run
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAPIKeyError checks if an error is related to API tokens
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrAPIKeyRequired) || errors.Is(err, ErrAPIKeyInvalid)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}
