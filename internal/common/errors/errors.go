// Package errors provides standardized error handling for the alert engine and its BPMN/HTTP surfaces.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeScoringEngineFailed     ErrorCode = "SCORING_ENGINE_FAILED"
	ErrCodeDirectoryUnavailable    ErrorCode = "DIRECTORY_UNAVAILABLE"
	ErrCodeLedgerWriteFailed       ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeChannelSendFailed       ErrorCode = "CHANNEL_SEND_FAILED"
	ErrCodeTemplateInvalid         ErrorCode = "TEMPLATE_INVALID"
	ErrCodeRequestNotFound         ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeDuplicateRequest        ErrorCode = "DUPLICATE_REQUEST_ID"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError reports a malformed or out-of-range descriptor. No side effects have happened.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringEngineError wraps an unexpected failure inside the scoring function.
func NewScoringEngineError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringEngineFailed,
		Message:   "Urgency scoring failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDirectoryUnavailableError reports a failed donor query. Fatal for the request.
func NewDirectoryUnavailableError(bloodGroup string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryUnavailable,
		Message:   "Patient directory query failed",
		Details:   fmt.Sprintf("bloodGroup: %s, error: %s", bloodGroup, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewLedgerWriteFailedError reports a failed ledger insert or update.
func NewLedgerWriteFailedError(requestID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerWriteFailed,
		Message:   "Request ledger write failed",
		Details:   fmt.Sprintf("requestId: %s, error: %s", requestID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewChannelSendFailedError is recorded per recipient and never surfaced as a request failure.
func NewChannelSendFailedError(donorID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("donorId: %s, error: %s", donorID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTemplateInvalidError reports a malformed alert template.
func NewTemplateInvalidError(templateID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateInvalid,
		Message:   "Alert template is malformed",
		Details:   fmt.Sprintf("templateId: %s, %s", templateID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRequestNotFoundError(requestID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestNotFound,
		Message:   "Blood request not found",
		Details:   fmt.Sprintf("requestId: %s", requestID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateRequestError reports a requestId that is already in the ledger. Never retried.
func NewDuplicateRequestError(requestID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateRequest,
		Message:   "Blood request already exists",
		Details:   fmt.Sprintf("requestId: %s, error: %s", requestID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidStatusTransitionError(requestID, from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatusTransition,
		Message:   "Status transition not allowed",
		Details:   fmt.Sprintf("requestId: %s, from: %s, to: %s", requestID, from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion
// ==========================

// AsStandard normalizes any error to a StandardError.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandard(err).Code
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDirectoryUnavailable, ErrCodeLedgerWriteFailed:
		return 3
	case ErrCodeChannelSendFailed:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status used by the HTTP API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeTemplateInvalid:
		return http.StatusBadRequest
	case ErrCodeRequestNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidStatusTransition, ErrCodeDuplicateRequest:
		return http.StatusConflict
	case ErrCodeDirectoryUnavailable, ErrCodeLedgerWriteFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "TEMPLATE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SCORING"):
		return "SCORING"
	case strings.Contains(codeStr, "DIRECTORY") || strings.Contains(codeStr, "LEDGER"):
		return "DATABASE"
	case strings.Contains(codeStr, "CHANNEL"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "REQUEST") || strings.Contains(codeStr, "STATUS"):
		return "LEDGER"
	default:
		return "OTHER"
	}
}
