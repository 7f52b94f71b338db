// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation turn persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps concurrent appends from different users from blocking readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Every write is committed before Append returns; a crash after an
	// acknowledged append never loses the turn.
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting synchronous mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,

			CHECK (role IN ('user', 'assistant'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_user_id
			ON conversations(user_id);

		CREATE INDEX IF NOT EXISTS idx_conversations_user_created
			ON conversations(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Append inserts a new turn with a server-assigned ID and timestamp
func (s *SQLiteStore) Append(ctx context.Context, userID int64, role, content string) (*Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("appending turn: %w", ErrClosed)
	}

	turn := &Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO conversations (id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		turn.ID,
		turn.UserID,
		turn.Role,
		turn.Content,
		turn.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting turn: %w", err)
	}

	s.logger.Debug("appended turn", "id", turn.ID, "user_id", userID, "role", role)
	return turn, nil
}

// History retrieves up to limit turns for the user in ascending timestamp
// order. The bound is applied to the ascending scan (earliest limit rows),
// preserving the behavior conversations were recorded against.
// The insertion rowid breaks created_at ties so retrieval never reorders
// turns appended in the same instant.
func (s *SQLiteStore) History(ctx context.Context, userID int64, limit int) ([]*Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("querying history: %w", ErrClosed)
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, user_id, role, content, created_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var turn Turn
		var createdAtStr string

		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Role, &turn.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}

		turn.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		turns = append(turns, &turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turn rows: %w", err)
	}

	return turns, nil
}

// Clear deletes all turns for one user. Succeeds even if none exist.
func (s *SQLiteStore) Clear(ctx context.Context, userID int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("clearing history: %w", ErrClosed)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	s.logger.Debug("cleared history", "user_id", userID, "turns", rowsAffected)
	return nil
}

// ClearAll deletes every turn for every user. Used at process startup to
// discard stale context from a previous run.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("clearing all conversations: %w", ErrClosed)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations`)
	if err != nil {
		return fmt.Errorf("clearing all conversations: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	s.logger.Info("cleared all conversations", "turns", rowsAffected)
	return nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
