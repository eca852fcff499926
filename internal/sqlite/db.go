package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: opens its own empty database.
	if dataSourceName == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema if it does not exist yet
func (db *DB) RunMigrations() error {
	migration := `
-- Collections; nested records are stored as JSON documents
CREATE TABLE IF NOT EXISTS collections (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL CHECK(state IN (
        'draft', 'aip_submitted', 'aot_drafting', 'aot_review',
        'aot_approved', 'implementing', 'access_granted', 'maintaining'
    )),
    is_public INTEGER NOT NULL DEFAULT 0,
    owner TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    state_entered_at TIMESTAMP NOT NULL,
    datasets TEXT NOT NULL DEFAULT '[]',
    users TEXT NOT NULL DEFAULT '[]',
    scope TEXT NOT NULL DEFAULT '{}',
    terms TEXT NOT NULL DEFAULT '{}',
    comments TEXT NOT NULL DEFAULT '[]',
    watchers TEXT NOT NULL DEFAULT '[]',
    approvals TEXT NOT NULL DEFAULT '[]',
    keywords TEXT NOT NULL DEFAULT '[]',
    categories TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_collections_owner ON collections(owner);
CREATE INDEX IF NOT EXISTS idx_collections_state ON collections(state);

-- Collection timeline
CREATE TABLE IF NOT EXISTS timeline_events (
    id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    type TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    summary TEXT NOT NULL,
    from_state TEXT,
    to_state TEXT,
    occurred_at TIMESTAMP NOT NULL,
    FOREIGN KEY (collection_id) REFERENCES collections(id)
);
CREATE INDEX IF NOT EXISTS idx_timeline_collection ON timeline_events(collection_id, seq);

-- Notifications
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL CHECK(type IN ('blocker', 'mention', 'approval', 'update', 'completion')),
    priority TEXT NOT NULL CHECK(priority IN ('critical', 'high', 'medium', 'low')),
    recipient_id TEXT NOT NULL,
    collection_id TEXT NOT NULL,
    collection_name TEXT NOT NULL DEFAULT '',
    actors TEXT NOT NULL DEFAULT '[]',
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    is_read INTEGER NOT NULL DEFAULT 0,
    is_archived INTEGER NOT NULL DEFAULT 0,
    action_url TEXT NOT NULL DEFAULT '',
    dedup_key TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_archived, is_read);
CREATE INDEX IF NOT EXISTS idx_notifications_dedup ON notifications(recipient_id, dedup_key);
CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
