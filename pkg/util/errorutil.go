package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewAnalysisError reports a failed or unparsable analysis-provider call.
func NewAnalysisError(message string, err error) error {
	return &DomainError{
		Code:       "ANALYSIS_FAILED",
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewGenerationError reports a failed draft-generation call.
func NewGenerationError(message string, err error) error {
	return &DomainError{
		Code:       "GENERATION_FAILED",
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewChannelUnreachable reports a failed inbound fetch from the notification channel.
func NewChannelUnreachable(err error) error {
	return &DomainError{
		Code:       "CHANNEL_UNREACHABLE",
		Message:    "notification channel unreachable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewChannelError reports a failed outbound delivery.
func NewChannelError(err error) error {
	return &DomainError{
		Code:       "CHANNEL_ERROR",
		Message:    "notification channel delivery failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewInvalidTransition rejects a status change the lifecycle does not allow.
func NewInvalidTransition(from, to string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition record from %s to %s", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

// NewAnalysisInFlight rejects a duplicate pipeline run for the same record.
func NewAnalysisInFlight(recordID string) error {
	return NewDomainError("ANALYSIS_IN_FLIGHT",
		"analysis already running for record",
		http.StatusConflict,
		map[string]any{"record_id": recordID})
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
