package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Note: the busy_timeout pragma must be first because the connection needs to be set to
// block on busy before WAL mode is set in case it hasn't been already set by another
// connection. foreign_keys is required for category and tag deletes to reach posts.
const pragmas = "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=journal_size_limit(200000000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=temp_store(MEMORY)&_pragma=cache_size(-16000)"

// Open opens the SQLite database at dbPath with the pragmas the store relies on.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const schema = `
	-- Table for holding authors
	CREATE TABLE IF NOT EXISTS authors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	);

	-- Table for categories
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	-- Table for tags
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	-- Table for holding posts. Deleting a category leaves its posts uncategorized.
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL,
		title TEXT NOT NULL UNIQUE,
		author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
		excerpt TEXT NOT NULL,
		published BOOLEAN NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		views INTEGER NOT NULL DEFAULT 0,
		reading_time INTEGER NOT NULL DEFAULT 0,
		featured BOOLEAN NOT NULL DEFAULT 0
	);

	-- Index for the public listing
	CREATE INDEX IF NOT EXISTS posts_published_created_idx ON posts(published, created_at);

	-- Index on category
	CREATE INDEX IF NOT EXISTS posts_category_idx ON posts(category_id);

	-- Index on author
	CREATE INDEX IF NOT EXISTS posts_author_idx ON posts(author_id);

	-- Join table for post tags
	CREATE TABLE IF NOT EXISTS post_tags (
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY(post_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS post_tags_tag_idx ON post_tags(tag_id);
`
