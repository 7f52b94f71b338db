// ABOUTME: Prompt construction for AI backend requests
// ABOUTME: Pure function turning an inbound message into a completion request string

package prompt

import (
	"github.com/2389/coven-relay/internal/store"
)

// Build turns (userID, message, history) into a single completion request
// string. The current template intentionally uses only the message; userID
// and history are accepted so the contract is stable when the template
// grows. No escaping is performed: callers must treat the result as
// untrusted text, especially before it becomes part of a command line.
func Build(userID int64, message string, history []*store.Turn) string {
	_ = userID
	_ = history
	return "User: " + message + "\nPlease provide a short response:"
}
