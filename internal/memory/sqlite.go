package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteStore implements Store on a local SQLite database. It mirrors the
// Redis contract — retention window, per-key expiry refreshed on append,
// idempotent clear — so local development behaves like production. Expiry is
// enforced with a created_at cutoff applied on read and append rather than a
// background sweeper.
type SQLiteStore struct {
	db         *sql.DB
	ttl        time.Duration
	maxHistory int
}

// SQLiteConfig holds settings for a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file path. Use ":memory:" in tests.
	Path string
	// TTL is how long an idle conversation lives. Defaults to 24h if zero.
	TTL time.Duration
	// MaxHistory is the number of turns to retain. Defaults to 10.
	MaxHistory int
}

// OpenSQLite opens (or creates) a SQLiteStore at the given path and runs the
// schema migration.
func OpenSQLite(cfg *SQLiteConfig) (*SQLiteStore, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 10
	}

	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", cfg.Path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, ttl: cfg.TTL, maxHistory: cfg.MaxHistory}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS conversations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     INTEGER NOT NULL,
    session_id  TEXT    NOT NULL,
    role        TEXT    NOT NULL CHECK(role IN ('user','assistant')),
    content     TEXT    NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_conversations_key_created
    ON conversations (user_id, session_id, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("memory: migrate: %w", err)
	}
	return nil
}

// Append inserts the message, refreshes the conversation's expiry (by
// touching created_at on retained rows), and trims to the retention window.
func (s *SQLiteStore) Append(ctx context.Context, key Key, role Role, content string) error {
	now := time.Now().Unix()

	const ins = `INSERT INTO conversations (user_id, session_id, role, content, created_at)
VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, ins, key.UserID, key.SessionID, string(role), content, now); err != nil {
		return fmt.Errorf("memory: append: %w", err)
	}

	// Refresh expiry for the whole conversation, matching Redis EXPIRE-on-append.
	const touch = `UPDATE conversations SET created_at = ? WHERE user_id = ? AND session_id = ?`
	if _, err := s.db.ExecContext(ctx, touch, now, key.UserID, key.SessionID); err != nil {
		return fmt.Errorf("memory: refresh expiry: %w", err)
	}

	// Trim to the most recent maxHistory*2 rows for this key.
	const trim = `
DELETE FROM conversations
WHERE user_id = ? AND session_id = ? AND id NOT IN (
    SELECT id FROM conversations
    WHERE  user_id = ? AND session_id = ?
    ORDER  BY id DESC
    LIMIT  ?
)`
	if _, err := s.db.ExecContext(ctx, trim, key.UserID, key.SessionID, key.UserID, key.SessionID, s.maxHistory*2); err != nil {
		return fmt.Errorf("memory: trim: %w", err)
	}

	return nil
}

// History returns the retained, unexpired tail of the conversation, oldest
// first.
func (s *SQLiteStore) History(ctx context.Context, key Key) ([]Message, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()

	const q = `
SELECT role, content FROM (
    SELECT id, role, content
    FROM   conversations
    WHERE  user_id = ? AND session_id = ? AND created_at >= ?
    ORDER  BY id DESC
    LIMIT  ?
) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, q, key.UserID, key.SessionID, cutoff, s.maxHistory*2)
	if err != nil {
		return nil, fmt.Errorf("memory: history: %w", err)
	}
	defer rows.Close()

	msgs := make([]Message, 0, s.maxHistory*2)
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&role, &m.Content); err != nil {
			return nil, fmt.Errorf("memory: history scan: %w", err)
		}
		m.Role = Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: history rows: %w", err)
	}
	return msgs, nil
}

// Clear deletes all messages for the key. Deleting zero rows is fine, so
// clearing an absent key is a no-op.
func (s *SQLiteStore) Clear(ctx context.Context, key Key) error {
	const q = `DELETE FROM conversations WHERE user_id = ? AND session_id = ?`
	if _, err := s.db.ExecContext(ctx, q, key.UserID, key.SessionID); err != nil {
		return fmt.Errorf("memory: clear: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("memory: close: %w", err)
	}
	return nil
}
