// Package store provides the single-writer, many-reader SQLite
// persistence layer: schema migrations plus typed, transactional
// access to puzzles, users, cards, reviews, skips, and app data.
package store

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/bettertactics/internal/apperror"
)

// Store wraps the database handle. All exported methods are
// individually transactional; the Store itself holds no other state.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite file named by databaseURL (accepting
// both "sqlite://relative/path" and "sqlite:///absolute/path" forms),
// applies pragmas for write-ahead journaling and foreign keys, and
// runs pending migrations.
func Open(databaseURL string) (*Store, error) {
	path := parseSQLitePath(databaseURL)

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, apperror.StoreUnavailable("failed to open database", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperror.StoreUnavailable(fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}

	// SQLite has no concurrent-writer support. The pool holds a single
	// connection, so reads and writes alike are serialized through it;
	// a read waits while a write transaction holds the connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, apperror.StoreUnavailable("migration failed", err)
	}

	if err := s.ensureLocalUser(); err != nil {
		db.Close()
		return nil, apperror.StoreUnavailable("failed to seed local user", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func parseSQLitePath(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:///"):
		return "/" + strings.TrimPrefix(databaseURL, "sqlite:///")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return databaseURL
	}
}
