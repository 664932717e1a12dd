// Package apperr holds the error kinds surfaced to callers of the dumper actions.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by repositories when a row does not exist for the caller.
var ErrNotFound = errors.New("not found")

// InvalidFormatError reports a field that failed validation.
type InvalidFormatError struct {
	Field string
	Msg   string
}

func (e *InvalidFormatError) Error() string {
	if e.Field == "" {
		return "invalid format: " + e.Msg
	}
	return fmt.Sprintf("invalid format: %s %s", e.Field, e.Msg)
}

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Entity string
	Value  string
}

func (e *DuplicateError) Error() string {
	if e.Value == "" {
		return e.Entity + " already exists"
	}
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Value)
}

// FileNotAllowedError reports an upload whose content type is not accepted.
type FileNotAllowedError struct {
	FileName    string
	ContentType string
}

func (e *FileNotAllowedError) Error() string {
	return fmt.Sprintf("file %q of type %s is not allowed", e.FileName, e.ContentType)
}

// UnexpectedError wraps an infrastructure failure.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	if e.Err == nil {
		return "unexpected error in " + e.Op
	}
	return fmt.Sprintf("unexpected error in %s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// NotificationError reports a failed delivery to a notification channel.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Invalid builds an InvalidFormatError.
func Invalid(field, msg string) error {
	return &InvalidFormatError{Field: field, Msg: msg}
}

// Unexpected wraps err unless it is already one of the known kinds.
func Unexpected(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsKnown(err) {
		return err
	}
	return &UnexpectedError{Op: op, Err: err}
}

// IsKnown reports whether err is one of the user-facing kinds or ErrNotFound.
func IsKnown(err error) bool {
	var inv *InvalidFormatError
	var dup *DuplicateError
	var fna *FileNotAllowedError
	var unx *UnexpectedError
	var ntf *NotificationError
	return errors.Is(err, ErrNotFound) ||
		errors.As(err, &inv) ||
		errors.As(err, &dup) ||
		errors.As(err, &fna) ||
		errors.As(err, &unx) ||
		errors.As(err, &ntf)
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	var inv *InvalidFormatError
	var dup *DuplicateError
	var fna *FileNotAllowedError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &inv):
		return http.StatusBadRequest
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &fna):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text shown to the user for err. Unexpected failures
// never leak their cause.
func Message(err error) string {
	var inv *InvalidFormatError
	var dup *DuplicateError
	var fna *FileNotAllowedError
	var ntf *NotificationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return err.Error()
	case errors.As(err, &inv):
		return inv.Error()
	case errors.As(err, &dup):
		return dup.Error()
	case errors.As(err, &fna):
		return fna.Error()
	case errors.As(err, &ntf):
		return "notification failed"
	default:
		return "unexpected error occurred"
	}
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	var inv *InvalidFormatError
	var dup *DuplicateError
	var fna *FileNotAllowedError
	var ntf *NotificationError
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.As(err, &inv):
		return "INVALID_FORMAT"
	case errors.As(err, &dup):
		return "DUPLICATE"
	case errors.As(err, &fna):
		return "FILE_NOT_ALLOWED"
	case errors.As(err, &ntf):
		return "NOTIFICATION_FAILED"
	default:
		return "UNEXPECTED"
	}
}
