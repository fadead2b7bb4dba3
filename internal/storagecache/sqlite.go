package storagecache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store over a single-table SQLite database, for
// deployments that want a queryable run history instead of (or alongside)
// the JSON file cache.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the SQLite-backed cache at path and
// runs its one migration.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging cache db: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS run_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			stored_at  INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating cache db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the cached payload for key; ok is false, with a nil error,
// when the key is absent. Expired rows are treated as absent (not actively
// purged here).
func (s *SQLiteStore) Get(key string) (json.RawMessage, bool, error) {
	var payload []byte
	var expiresAt int64
	err := s.db.QueryRow(`SELECT payload, expires_at FROM run_cache WHERE key = ?`, key).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}
	if expiresAt != 0 && time.Now().Unix() > expiresAt {
		return nil, false, nil
	}
	return json.RawMessage(payload), true, nil
}

// Put stores payload under key with the given time-to-live (zero means
// never expires).
func (s *SQLiteStore) Put(key string, payload json.RawMessage, ttl time.Duration) error {
	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}
	_, err := s.db.Exec(`
		INSERT INTO run_cache (key, payload, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at, expires_at = excluded.expires_at`,
		key, []byte(payload), now.Unix(), expiresAt)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
