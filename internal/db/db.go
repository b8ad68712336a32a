// Package db persists scoring runs, per-trial results and their step
// series in SQLite. Series are stored as little-endian float64 BLOBs so
// missing frames (NaN) survive a round trip bit for bit.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/rula.report/internal/timeutil"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run or result does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// pragmas applied to every connection opened by NewDB.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// NewDB opens (or creates) the database at path and migrates it to the
// latest schema.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps per-connection pragmas (foreign_keys) in force.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	db := &DB{DB: sqlDB, path: path, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// SetClock replaces the clock used for created-at stamps.
func (db *DB) SetClock(c timeutil.Clock) { db.clock = c }

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

func (db *DB) now() int64 { return db.clock.Now().UnixNano() }

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn until it succeeds, fails with a non-busy error, or
// runs out of attempts.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	backoff := 20 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !isBusy(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return fmt.Errorf("database busy after %d attempts: %w", attempts, err)
}
