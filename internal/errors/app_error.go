// Package errors defines the structured error type shared by the supervisor, the control loop and
// the front-ends. Every failure that reaches a user carries a Kind so the boundary that shows it can
// decide how to present it.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by the user action it came from.
type Kind string

const (
	// KindConfig is an invalid or missing executable path. Never raised to the user, it only
	// disables actions.
	KindConfig Kind = "config"
	// KindLaunch is a failure to create the supervised process.
	KindLaunch Kind = "launch"
	// KindTerminate is a failure to kill the supervised process.
	KindTerminate Kind = "terminate"
	// KindAutostart is a failure to read or change the run-at-login registration.
	KindAutostart Kind = "autostart"
	// KindSettings is a failure to load or persist settings.
	KindSettings Kind = "settings"
	// KindUnavailable means the control loop is no longer accepting actions.
	KindUnavailable Kind = "unavailable"
)

// AppError represents a structured application error.
type AppError struct {
	// Kind is the failure class.
	Kind Kind `json:"kind"`
	// Message is the user-facing error message.
	Message string `json:"message"`
	// Details provides additional error context (optional).
	Details map[string]interface{} `json:"details,omitempty"`
	// Err is the underlying error (not marshaled to JSON).
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError of the same kind with no message, so callers can
// write errors.Is(err, &AppError{Kind: KindLaunch}).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// ToJSON returns the JSON byte representation of the error.
func (e *AppError) ToJSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// WithDetail attaches a detail field and returns the same error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(kind Kind, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// HTTPStatus maps a kind onto the status code the control API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindConfig:
		return http.StatusPreconditionFailed
	case KindLaunch, KindTerminate, KindAutostart:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
