package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bleep/internal/config"
)

// Store is the sqlite-backed job table shared by the daemon and the
// offline CLI. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open ensures the configured directories exist and opens DatabasePath.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens (creating if needed) the database at path in WAL mode so
// the CLI can read while the daemon writes.
func OpenPath(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// busy reports whether err is SQLITE_BUSY or SQLITE_LOCKED surfacing through
// the driver, which happens when the daemon and CLI write at once despite
// busy_timeout.
func busy(err error) bool {
	const sqliteBusy, sqliteLocked = 5, 6
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		code := coded.Code() & 0xff
		return code == sqliteBusy || code == sqliteLocked
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// retryOnBusy runs op up to five times, doubling a 10ms backoff (capped at
// 200ms) between busy failures. Other errors return immediately.
func retryOnBusy(ctx context.Context, op func() error) error {
	backoff := 10 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !busy(err) || attempt == 5 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 200*time.Millisecond)
	}
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (res sql.Result, err error) {
	err = retryOnBusy(ctx, func() error {
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}
