package errors

import (
	"fmt"
	"time"
)

/**
 * Custom error types for the LayoutOCR Worker
 *
 * Recognition errors are created once at the boundary where they occur
 * and travel up the pipeline unchanged, so callers can match on Code.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Recognition errors
	ErrorRecognitionUnavailable ErrorCode = "RECOGNITION_UNAVAILABLE"
	ErrorRecognitionTimedOut    ErrorCode = "RECOGNITION_TIMED_OUT"

	// Input errors
	ErrorInvalidImage ErrorCode = "INVALID_IMAGE"

	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// Sentinels for errors.Is matching; only the Code is compared.
var (
	ErrRecognitionUnavailable = &ProcessingError{Code: ErrorRecognitionUnavailable}
	ErrRecognitionTimedOut    = &ProcessingError{Code: ErrorRecognitionTimedOut}
	ErrInvalidImage           = &ProcessingError{Code: ErrorInvalidImage}
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ProcessingError with the same code.
func (e *ProcessingError) Is(target error) bool {
	t, ok := target.(*ProcessingError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of a ProcessingError, or "" for any other error.
func CodeOf(err error) ErrorCode {
	if pe, ok := err.(*ProcessingError); ok {
		return pe.Code
	}
	return ""
}

// Factory functions for common errors

func NewRecognitionUnavailableError(language string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRecognitionUnavailable,
		Message:   fmt.Sprintf("Recognizer unavailable for language: %s", language),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"language": language,
		},
		Cause: cause,
	}
}

func NewRecognitionTimedOutError(elapsed time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRecognitionTimedOut,
		Message:   fmt.Sprintf("Recognition did not return after %v", elapsed),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"elapsed": elapsed.String(),
		},
		Cause: cause,
	}
}

func NewInvalidImageError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidImage,
		Message:   "Image could not be decoded",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store capture results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for database storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
