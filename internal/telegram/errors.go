// ABOUTME: Structured Bot API request errors and their classification helpers
// ABOUTME: Session conflicts (409) and poll timeouts are distinguished here, once, at the transport boundary

package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// conflictCode is the Bot API status for a long-poll session held by
// another process ("terminated by other getUpdates request").
const conflictCode = 409

// RequestError is a failed Bot API invocation. It keeps both the HTTP
// status and the error_code field from the response envelope because the
// provider reports conflicts through either.
type RequestError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *RequestError) Error() string {
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = strings.TrimSpace(e.Body)
	}
	if desc != "" {
		return fmt.Sprintf("telegram %s: http %d: %s", e.Method, e.StatusCode, desc)
	}
	return fmt.Sprintf("telegram %s: http %d", e.Method, e.StatusCode)
}

// IsConflict reports whether err is a session-conflict error: another
// process is holding the same long-poll session.
func IsConflict(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.StatusCode == conflictCode || reqErr.ErrorCode == conflictCode
}

// IsPollTimeout reports whether err is an ordinary long-poll timeout,
// which the poll loop treats as a quiet cycle rather than a failure.
func IsPollTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

// IsParseError reports whether the provider rejected a message because it
// could not parse the requested formatting entities. The sender falls back
// to plain text on these.
func IsParseError(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	desc := strings.ToLower(reqErr.Description)
	return strings.Contains(desc, "can't parse entities") || strings.Contains(desc, "can't parse entity")
}
