// Package store implements C8, the Review Store: the single source of
// persistent truth for jobs, files, tags, and review decisions. It is
// backed by SQLite in WAL mode, following the same Options/Open shape the
// corpus's embedded-SQLite wrapper uses — a short busy-wait timeout instead
// of application-level write mutexing, since SQLite already serializes
// writers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Options configures the underlying SQLite connection. Mirrors the
// journal-mode/synchronous/busy-timeout knobs named in spec.md §4.8
// ("enable WAL-style journaling and a short busy-wait timeout").
type Options struct {
	Path        string
	JournalMode string // default "WAL"
	Synchronous string // default "NORMAL"
	BusyTimeout time.Duration // default 5s
	ForeignKeys bool          // default true
}

// DefaultOptions returns the spec-mandated defaults for path.
func DefaultOptions(path string) Options {
	return Options{
		Path:        path,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
		BusyTimeout: 5 * time.Second,
		ForeignKeys: true,
	}
}

// Store wraps a *sql.DB with the Review Store's typed operations.
type Store struct {
	db *sql.DB
}

// Open establishes the connection, applies the WAL/synchronous/busy_timeout
// pragmas, and runs the schema migration. It uses modernc.org/sqlite (a
// pure-Go driver, no cgo toolchain required at deploy time) rather than a
// cgo-backed driver.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.JournalMode == "" {
		opts.JournalMode = "WAL"
	}
	if opts.Synchronous == "" {
		opts.Synchronous = "NORMAL"
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", opts.Path, err)
	}
	db.SetMaxOpenConns(1) // SQLite allows one writer; avoid pool-level contention

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", opts.JournalMode),
		fmt.Sprintf("PRAGMA synchronous=%s", opts.Synchronous),
		fmt.Sprintf("PRAGMA busy_timeout=%d", opts.BusyTimeout.Milliseconds()),
	}
	if opts.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys=ON")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }
