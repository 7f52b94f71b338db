// ABOUTME: Store interface and data types for coven-relay persistence
// ABOUTME: Defines the Turn struct and the Store interface for conversation history

package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when an operation is attempted on a closed store
var ErrClosed = errors.New("store is closed")

// Role constants for conversation turns
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn represents one stored message exchange unit for a user.
// Turns are append-only: created once, never mutated, deleted only by
// Clear or ClearAll.
type Turn struct {
	ID        string
	UserID    int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// DefaultHistoryLimit bounds History when the caller passes limit <= 0
const DefaultHistoryLimit = 20

// Store defines the interface for conversation turn persistence
type Store interface {
	// Append inserts a new turn with a server-assigned ID and timestamp.
	Append(ctx context.Context, userID int64, role, content string) (*Turn, error)

	// History returns up to limit turns for the user in ascending
	// timestamp order. Unknown users get an empty slice, not an error.
	History(ctx context.Context, userID int64, limit int) ([]*Turn, error)

	// Clear deletes all turns for one user. Idempotent.
	Clear(ctx context.Context, userID int64) error

	// ClearAll deletes every turn for every user.
	ClearAll(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
