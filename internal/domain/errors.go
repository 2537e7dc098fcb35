package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RemoteCallError is any failed call to the tracker, the AI endpoint or the
// relay. StatusCode is zero when no response was received.
type RemoteCallError struct {
	Service    string
	Op         string
	Detail     string
	StatusCode int
	Status     string
	Body       string
	Message    string
	Err        error
}

func (e *RemoteCallError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Op)
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Status
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	return b.String()
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// ValidationError reports a missing or malformed request or tool argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Field + " is required"
	}
	return e.Field + ": " + e.Reason
}

func Required(field string) error { return &ValidationError{Field: field} }

// NotConfiguredError is returned by optional components that were disabled
// at startup.
type NotConfiguredError struct {
	Component string
}

func (e *NotConfiguredError) Error() string {
	return e.Component + " is not configured"
}

// ParseError means the AI reply contained a JSON-looking substring that did
// not parse. A reply without any JSON is not an error.
type ParseError struct {
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return "failed to parse AI analysis: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
