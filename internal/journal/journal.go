package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"galley/internal/config"
)

// DatabaseName is the journal file created inside the project state directory.
const DatabaseName = "journal.db"

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the project journal database. The DSN
// pragmas apply to every pooled connection: WAL keeps concurrent readers
// (watch mode, doctor) off the writer's lock, and busy_timeout covers the
// remaining contention.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.RequireProject(); err != nil {
		return nil, err
	}

	stateDir := cfg.StateDir()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}

	dbPath := filepath.Join(stateDir, DatabaseName)
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run journal: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the journal database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close releases the store's database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const (
	sqliteBusyCode  = 5
	busyMaxAttempts = 5
	busyBaseDelay   = 10 * time.Millisecond
	busyMaxDelay    = 200 * time.Millisecond
)

// exec runs a write statement, retrying with capped exponential backoff while
// the database reports SQLITE_BUSY.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var res sql.Result
	err := withBusyRetry(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func withBusyRetry(ctx context.Context, op func() error) error {
	delay := busyBaseDelay
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isBusy(err) || attempt == busyMaxAttempts {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > busyMaxDelay {
			delay = busyMaxDelay
		}
	}
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code() == sqliteBusyCode {
		return true
	}
	// Fallback for drivers that only surface the text.
	text := err.Error()
	return strings.Contains(text, "SQLITE_BUSY") || strings.Contains(text, "database is locked")
}
