/**
 * Custom error types for the document recognition worker.
 *
 * Only INPUT_NOT_FOUND is ever surfaced to a pipeline caller as a hard
 * failure; every other code is absorbed at a stage boundary and converted
 * into that stage's documented default output.
 */

package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Pipeline errors
	ErrorInputNotFound      ErrorCode = "INPUT_NOT_FOUND"
	ErrorDegradedCapability ErrorCode = "DEGRADED_CAPABILITY"
	ErrorStageFailed        ErrorCode = "STAGE_FAILED"

	// Upload boundary errors
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorFileTooLarge      ErrorCode = "FILE_TOO_LARGE"

	// Queue errors
	ErrorQueueFailed       ErrorCode = "QUEUE_FAILED"
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
)

// PipelineError represents a structured recognition error
type PipelineError struct {
	Code      ErrorCode
	Message   string
	FileID    string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewInputNotFoundError(fileID string) *PipelineError {
	return &PipelineError{
		Code:      ErrorInputNotFound,
		Message:   fmt.Sprintf("no stored upload matches id %q", fileID),
		FileID:    fileID,
		Timestamp: time.Now(),
	}
}

func NewDegradedCapabilityError(fileID, capability string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorDegradedCapability,
		Message:   fmt.Sprintf("capability unavailable: %s", capability),
		FileID:    fileID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"capability": capability,
		},
		Cause: cause,
	}
}

func NewStageFailedError(fileID, stage string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorStageFailed,
		Message:   fmt.Sprintf("stage failed: %s", stage),
		FileID:    fileID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"stage": stage,
		},
		Cause: cause,
	}
}

func NewUnsupportedFormatError(filename string) *PipelineError {
	return &PipelineError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("unsupported file type: %s", filename),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"filename": filename,
		},
	}
}

func NewFileTooLargeError(size, limit int64) *PipelineError {
	return &PipelineError{
		Code:      ErrorFileTooLarge,
		Message:   fmt.Sprintf("file size %d exceeds limit %d", size, limit),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"size":  size,
			"limit": limit,
		},
	}
}

func NewQueueFailedError(fileID string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorQueueFailed,
		Message:   "failed to enqueue recognition job",
		FileID:    fileID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("processing timed out after %v", duration),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"job_id":           jobID,
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

// IsNotFound reports whether err carries the INPUT_NOT_FOUND code.
func IsNotFound(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Code == ErrorInputNotFound
}

// ToMap converts the error to a map for status reporting
func (e *PipelineError) ToMap() map[string]interface{} {
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
