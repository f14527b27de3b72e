// Package apierror defines the error returned when a root-cause backend
// answers a query with a non-success HTTP status.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is the type of error returned by a dispatcher when the backend
// rejects a query. It contains the HTTP status code so that callers can tell
// missing data from server failure.
type Error struct {
	err    error
	status int
}

// errorMessage is the JSON body the backend uses for error responses.
type errorMessage struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func New(err error, status int) *Error {
	return &Error{
		err:    err,
		status: status,
	}
}

// FromResponse creates an error from a response status and body. A JSON error
// body contributes its message; any other body is used as trimmed text. A
// zero status returns a plain error, or nil if the body is also empty.
func FromResponse(status int, body []byte) error {
	var err error
	text := strings.TrimSpace(string(body))
	if text != "" {
		var msg errorMessage
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			text = msg.Message
		}
		err = errors.New(text)
	}
	if status == 0 {
		return err
	}
	return New(err, status)
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.status == 0 {
		return ""
	}
	if text := http.StatusText(e.status); text != "" {
		return fmt.Sprintf("%d %s", e.status, text)
	}
	return fmt.Sprintf("%d", e.status)
}

func (e *Error) Status() int {
	return e.status
}

// Temporary reports whether the same query may succeed if sent again.
func (e *Error) Temporary() bool {
	return e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError
}

// Text returns the status and message together, e.g. "502 Bad Gateway: no
// upstream".
func (e *Error) Text() string {
	var b strings.Builder
	if e.status != 0 {
		fmt.Fprintf(&b, "%d", e.status)
		if text := http.StatusText(e.status); text != "" {
			b.WriteString(" ")
			b.WriteString(text)
		}
	}
	if e.err != nil {
		if b.Len() != 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsTemporary reports whether err is, or wraps, an *Error that is temporary.
func IsTemporary(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Temporary()
}
