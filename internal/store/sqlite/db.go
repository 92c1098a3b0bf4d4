package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs database migrations. A simple, idempotent set of CREATE TABLE /
// CREATE INDEX statements.
//
// The unique index on (participant_one, participant_two) relies on the service
// layer storing the pair in canonical order; a violation on insert means the
// conversation was created concurrently and the caller should re-fetch.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Display profiles (synced from the platform's account service)
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			avatar_url TEXT DEFAULT NULL
		);`,
		// Conversations
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			participant_one TEXT NOT NULL,
			participant_two TEXT NOT NULL,
			last_message_id TEXT DEFAULT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			content TEXT NOT NULL,
			is_read BOOLEAN DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);`,
		// Indexes
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair ON conversations(participant_one, participant_two);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_one ON conversations(participant_one);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_two ON conversations(participant_two);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at ASC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages(receiver_id, is_read);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
