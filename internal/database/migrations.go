package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "news items and failed runs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS news_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    day TEXT NOT NULL,
    event_text TEXT NOT NULL,
    language TEXT NOT NULL,
    title TEXT NOT NULL,
    article TEXT NOT NULL,
    keywords TEXT,
    coverage REAL NOT NULL,
    article_coverage REAL NOT NULL DEFAULT 0,
    repaired INTEGER NOT NULL DEFAULT 0,
    title_source TEXT NOT NULL,
    source_url TEXT,
    model TEXT,
    output_path TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS failed_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    event_text TEXT NOT NULL,
    language TEXT NOT NULL,
    state TEXT NOT NULL,
    reason TEXT NOT NULL,
    source_url TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_news_items_day ON news_items(day);
CREATE INDEX IF NOT EXISTS idx_news_items_source_url ON news_items(source_url);
CREATE INDEX IF NOT EXISTS idx_failed_runs_created ON failed_runs(created_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "publication log",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS publications (
    item_id INTEGER NOT NULL REFERENCES news_items(id),
    channel TEXT NOT NULL,
    message_id TEXT,
    published_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (item_id, channel)
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
