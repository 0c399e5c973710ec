package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("preference not found")

// Key identifies one preference value: a namespace plus an optional user
// scope. Global preferences (theme, session identity) use an empty UserID.
// Using an explicit composite key instead of string concatenation keeps user
// addresses containing separator characters from colliding.
type Key struct {
	Namespace string
	UserID    string
}

// Namespaces for everything the client persists locally. No email content is
// ever stored here.
const (
	NamespaceStarred   = "starred_emails"
	NamespaceTheme     = "theme"
	NamespaceToken     = "token"
	NamespaceUserEmail = "user_email"
	NamespaceUsername  = "username"
	NamespaceTempToken = "temp_token"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	namespace  TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, user_id)
);
`

// Store is the durable key/value store backing starred-id sets, the theme
// name, and the stored session identity. Writes are last-write-wins: two
// concurrent clients for the same user overwrite each other whole-value,
// which matches the accepted multi-writer behavior for the starred set.
type Store struct {
	db *sqlx.DB
}

// Open opens (and creates if needed) the preference database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	return open(dsn)
}

// OpenInMemory opens a throwaway in-memory store, used in tests.
func OpenInMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to preference database: %w", err)
	}

	// A single connection keeps :memory: databases from fragmenting across
	// the pool and serializes writers on file-backed ones.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run preference migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key Key) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM preferences WHERE namespace = ? AND user_id = ?`,
		key.Namespace, key.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key.Namespace, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key Key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (namespace, user_id, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, user_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key.Namespace, key.UserID, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key.Namespace, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE namespace = ? AND user_id = ?`,
		key.Namespace, key.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key.Namespace, err)
	}
	return nil
}

// StarredIDs returns the persisted starred-id set for the user. A missing or
// unreadable set degrades to empty: starred flags then revert to what the
// server reports.
func (s *Store) StarredIDs(ctx context.Context, userEmail string) ([]string, error) {
	value, err := s.Get(ctx, Key{Namespace: NamespaceStarred, UserID: userEmail})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		return nil, nil
	}
	return ids, nil
}

// SaveStarredIDs replaces the persisted starred-id set for the user.
func (s *Store) SaveStarredIDs(ctx context.Context, userEmail string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode starred ids: %w", err)
	}
	return s.Set(ctx, Key{Namespace: NamespaceStarred, UserID: userEmail}, string(encoded))
}
