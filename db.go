package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const visitorSchema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,  -- salted hash, never the raw address
	user_agent TEXT,
	path TEXT NOT NULL,
	document_id TEXT,
	viewed_at INTEGER NOT NULL -- unix seconds, UTC
);
CREATE INDEX IF NOT EXISTS visitors_viewed_at ON visitors (viewed_at);
CREATE INDEX IF NOT EXISTS visitors_document_id ON visitors (document_id);
`

// openDB opens the SQLite database holding visitor data and applies the
// schema. A single connection keeps ":memory:" databases coherent.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, visitorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create visitors table: %w", err)
	}
	return db, nil
}
