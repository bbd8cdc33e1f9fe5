package kv

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every key in one table. Expired rows are hidden on read and
// purged when the store is opened.
type SQLiteStore struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

func OpenSQLite(dsn string, timeout time.Duration) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s, err := NewSQLiteStore(db, timeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n, err := s.PurgeExpired(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	} else if n > 0 {
		log.Printf("[kv] purged %d expired keys", n)
	}
	return s, nil
}

func NewSQLiteStore(db *sqlx.DB, timeout time.Duration) (*SQLiteStore, error) {
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, timeout: timeout, now: time.Now}, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS kv(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  expires_at INTEGER,            -- unix millis, NULL = no expiry
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at);
`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv(key, value, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
		  value = excluded.value,
		  expires_at = excluded.expires_at,
		  updated_at = CURRENT_TIMESTAMP
	`, key, string(b), expires)
	if err != nil {
		return storageErr("set", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	var raw string
	err := s.db.GetContext(ctx, &raw, `
		SELECT value FROM kv
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("get", key, err)
	}
	if err := decode(key, []byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return storageErr("delete", key, err)
	}
	return nil
}

// Keys relies on SQLite GLOB, which has the same *, ? and [...] syntax as Redis patterns.
func (s *SQLiteStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	keys := []string{}
	err := s.db.SelectContext(ctx, &keys, `
		SELECT key FROM kv
		WHERE key GLOB ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY key
	`, pattern, s.now().UnixMilli())
	if err != nil {
		return nil, storageErr("keys", pattern, err)
	}
	return keys, nil
}

// PurgeExpired deletes rows whose TTL has passed and returns how many were removed.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, storageErr("purge", "*", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
