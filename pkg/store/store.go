// Package store records what has been crawled in a SQLite database: users,
// tags, posts and the tag listings each post was found in.
//
// Writes commit immediately and fail open: a failed statement is logged with
// the link or entity it concerned and reported as false, so a single bad row
// never stops a crawl.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"igcrawler/pkg/logger"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// orphanCleanup deletes posts that lost their owner and every tag listing.
const orphanCleanup = `
	DELETE FROM post
	WHERE user_id IS NULL
	  AND id NOT IN (SELECT post_id FROM tag_post)`

// Store is the crawl's single database connection. It is owned by the
// crawler; other components only read and append through it.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// connPragmas run on every new connection of the pool.
var connPragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func dsn(path string) string {
	q := url.Values{"_pragma": connPragmas}
	return "file:" + path + "?" + q.Encode()
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	s := &Store{db: db, logger: log.WithField("component", "store")}
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.DebugWithFields("database opened", map[string]interface{}{"path": path})
	return s, nil
}

// EnsureSchema creates the four relations when they are missing. It never
// drops or alters existing data.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("sqlite: exec schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, removing orphaned posts before commit.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, orphanCleanup); err != nil {
		return fmt.Errorf("remove orphaned posts: %w", err)
	}
	return tx.Commit()
}

// fail logs a failed statement and returns false for the caller to pass on.
func (s *Store) fail(err error, msg string, fields map[string]interface{}) bool {
	s.logger.WithError(err).ErrorWithFields(msg, fields)
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
