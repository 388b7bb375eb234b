// Package sqlite implements the embedded conversation store on SQLite.
// Conversations are kept as JSON documents with their messages embedded,
// one row per conversation, mirroring an object store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/prefs"
	"github.com/Rrens/sommelier/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	body    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);
`

// openDatabase is swapped in tests to observe how often the engine is opened
var openDatabase = openSQLite

// Store implements store.Store
type Store struct {
	path string
	slot prefs.Slot
	now  func() time.Time

	group  singleflight.Group
	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	userMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New creates a store for the database file at path. The session user id is
// cached in slot. Nothing is opened until the first operation or Open.
func New(path string, slot prefs.Slot) *Store {
	return &Store{
		path: path,
		slot: slot,
		now:  time.Now,
	}
}

// Open establishes the connection once. Concurrent callers share the same
// in-flight open; a failed open is retried by the next caller.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.conn(ctx)
	return err
}

// Close releases the connection. Later operations fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.RLock()
	db, closed := s.db, s.closed
	s.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	if db != nil {
		return db, nil
	}

	v, err, _ := s.group.Do("open", func() (any, error) {
		s.mu.RLock()
		existing := s.db
		s.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		db, err := openDatabase(ctx, s.path)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			_ = db.Close()
			return nil, fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
		}
		s.db = db
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", domain.ErrStoreUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create store directory: %w", domain.ErrStoreUnavailable, err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", domain.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", domain.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %w", domain.ErrStoreUnavailable, err)
	}

	return db, nil
}

// txErr classifies an engine error, leaving already-classified errors alone
func txErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrTransactionFailed) {
		return err
	}
	return fmt.Errorf("%w: failed to %s: %w", domain.ErrTransactionFailed, op, err)
}
