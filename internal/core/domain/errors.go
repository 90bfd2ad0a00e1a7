package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
	ErrSessionBusy       = errors.New("session busy")
	ErrGuardViolation    = errors.New("submission guard violated")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrRetryExhausted    = errors.New("retry attempts exhausted")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FileValidationError lists every constraint a selected file violated.
type FileValidationError struct {
	Problems []string
}

func (e *FileValidationError) Error() string {
	return "file rejected: " + strings.Join(e.Problems, "; ")
}

func (e *FileValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

type PreviewParseError struct {
	Format string
	Err    error
}

func (e *PreviewParseError) Error() string {
	return fmt.Sprintf("could not parse %s preview: %v", e.Format, e.Err)
}

func (e *PreviewParseError) Unwrap() error { return e.Err }

func (e *PreviewParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MappingValidationError blocks submission while the transformed preview
// does not satisfy the canonical schema.
type MappingValidationError struct {
	Errors []ValidationError
}

func (e *MappingValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "mapping validation failed"
	}
	return fmt.Sprintf("mapping validation failed: %d error(s), first: %s", len(e.Errors), e.Errors[0].Message)
}

func (e *MappingValidationError) Is(target error) bool {
	return target == ErrGuardViolation
}

type GuardReason string

const (
	GuardMissingFile      GuardReason = "missing_file"
	GuardMissingPartner   GuardReason = "missing_partner"
	GuardMissingMapping   GuardReason = "missing_mapping"
	GuardValidationErrors GuardReason = "validation_errors"
)

var guardMessages = map[GuardReason]string{
	GuardMissingFile:      "Please select a file to upload",
	GuardMissingPartner:   "Please select a partner",
	GuardMissingMapping:   "Please select a mapping",
	GuardValidationErrors: "Please fix validation errors before uploading",
}

type GuardError struct {
	Reason GuardReason
	Errors []ValidationError
}

func (e *GuardError) Error() string {
	return e.Message()
}

func (e *GuardError) Message() string {
	if msg, ok := guardMessages[e.Reason]; ok {
		return msg
	}
	return string(e.Reason)
}

func (e *GuardError) Is(target error) bool {
	return target == ErrGuardViolation
}

func (e *GuardError) Unwrap() error {
	if e.Reason != GuardValidationErrors {
		return nil
	}
	return &MappingValidationError{Errors: e.Errors}
}

// NetworkError means the request left the client but no response came back.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: no response: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool {
	return target == ErrTemporary
}

// MalformedResponseError is a 2xx answer whose body could not be decoded.
type MalformedResponseError struct {
	Operation string
	Err       error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Operation, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ServerError is a non-2xx answer or an error payload from a remote endpoint.
type ServerError struct {
	Operation      string
	StatusCode     int
	Status         string
	BackendMessage string
}

func (e *ServerError) Error() string {
	if e.BackendMessage == "" {
		return fmt.Sprintf("%s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Operation, e.Status, e.BackendMessage)
}

// UserMessage picks the most specific text available: backend message, then
// the HTTP status, then a generic fallback.
func (e *ServerError) UserMessage() string {
	if msg := strings.TrimSpace(e.BackendMessage); msg != "" {
		return msg
	}
	if e.StatusCode > 0 {
		text := http.StatusText(e.StatusCode)
		if text == "" {
			text = "unexpected status"
		}
		return fmt.Sprintf("Server error (%d): %s", e.StatusCode, text)
	}
	return GenericUploadFailureMessage
}

func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrTemporary:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	default:
		return false
	}
}

// PartialFailure reports that the endpoint accepted a batch but rejected part
// of it. Failed counts the records still held for retry or export.
type PartialFailure struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

func (p PartialFailure) Error() string {
	return fmt.Sprintf("%d of %d records failed", p.Failed, p.Total)
}

const (
	GenericUploadFailureMessage = "Upload failed. Please try again."
	NoResponseMessage           = "No response from server. Please check your connection and try again."
	MissingSummaryMessage       = "Upload finished but the server returned no summary."
)

// UploadFailedError is returned when an upload or retry attempt ended in the
// failed state. Message is the text shown to the user.
type UploadFailedError struct {
	Message string
	Err     error
}

func (e *UploadFailedError) Error() string {
	return e.Message
}

func (e *UploadFailedError) Unwrap() error { return e.Err }
