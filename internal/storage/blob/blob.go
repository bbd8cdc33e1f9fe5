// Package blob is the binary object store adapter. Size limits are enforced by callers
// before anything reaches a Store.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"autolot/internal/domain"
)

type Store interface {
	// Upload writes r at pathname, overwriting any object already there.
	Upload(ctx context.Context, pathname string, r io.Reader, size int64, contentType string) (domain.StorageFile, error)
	// Delete is idempotent.
	Delete(ctx context.Context, pathname string) error
	// List returns the objects under prefix in no particular order. The prefix is a raw
	// key prefix: "uploads" also matches "uploads-old/x"; pass "uploads/" for one folder.
	List(ctx context.Context, prefix string) ([]domain.StorageFile, error)
}

// CleanPath normalises an object key and rejects traversal, absolute paths and NUL bytes.
func CleanPath(p string) (string, error) {
	raw := strings.ToLower(p)
	if strings.TrimSpace(p) == "" || strings.Contains(raw, "\x00") || strings.Contains(raw, "%2e") {
		return "", domain.Invalid("pathname", "invalid path")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", domain.Invalid("pathname", "invalid path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", domain.Invalid("pathname", "invalid path")
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", domain.Invalid("pathname", "invalid path")
	}
	return clean, nil
}

// cleanPrefix is CleanPath for list prefixes, where "" means everything and a
// trailing slash is kept.
func cleanPrefix(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(p, "/") {
		clean += "/"
	}
	return clean, nil
}

func storageErr(op, pathname string, err error) error {
	return fmt.Errorf("%w: blob %s %q: %w", domain.ErrStorage, op, pathname, err)
}

func joinURL(base, pathname string) string {
	return strings.TrimRight(base, "/") + "/" + pathname
}
