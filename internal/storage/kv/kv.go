// Package kv is the key-value store adapter. Values are JSON encoded; writes are
// last-writer-wins with no concurrency check, and no operation retries.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"autolot/internal/domain"
)

// Store is implemented by every key-value backend.
type Store interface {
	// Set overwrites key unconditionally. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get decodes the value at key into dst. It reports false if the key is absent or expired.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// Keys returns every live key matching a glob pattern such as "listing:*", sorted.
	// There is no pagination.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

const DefaultTimeout = 5 * time.Second

func storageErr(op, key string, err error) error {
	return fmt.Errorf("%w: kv %s %q: %w", domain.ErrStorage, op, key, err)
}

func encode(key string, value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, storageErr("encode", key, err)
	}
	return b, nil
}

func decode(key string, b []byte, dst any) error {
	if err := json.Unmarshal(b, dst); err != nil {
		return storageErr("decode", key, err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
