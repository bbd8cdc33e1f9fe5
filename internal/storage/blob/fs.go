package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autolot/internal/domain"
)

const tmpPrefix = ".upload-"

// FSStore keeps objects under a local directory that the HTTP layer serves at BaseURL.
type FSStore struct {
	Root    string
	BaseURL string
}

func NewFSStore(root, baseURL string) (*FSStore, error) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{Root: root, BaseURL: baseURL}, nil
}

func (s *FSStore) Upload(ctx context.Context, pathname string, r io.Reader, size int64, contentType string) (domain.StorageFile, error) {
	clean, err := CleanPath(pathname)
	if err != nil {
		return domain.StorageFile{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.StorageFile{}, storageErr("upload", clean, err)
	}
	full := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return domain.StorageFile{}, storageErr("upload", clean, err)
	}
	// write-then-rename so readers never see a half-written object
	tmp, err := os.CreateTemp(filepath.Dir(full), tmpPrefix+"*")
	if err != nil {
		return domain.StorageFile{}, storageErr("upload", clean, err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), full)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return domain.StorageFile{}, storageErr("upload", clean, err)
	}
	return domain.StorageFile{
		URL:        joinURL(s.BaseURL, clean),
		Pathname:   clean,
		Size:       n,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (s *FSStore) Delete(ctx context.Context, pathname string) error {
	clean, err := CleanPath(pathname)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storageErr("delete", clean, err)
	}
	err = os.Remove(filepath.Join(s.Root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("delete", clean, err)
	}
	return nil
}

func (s *FSStore) List(ctx context.Context, prefix string) ([]domain.StorageFile, error) {
	prefix, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	out := []domain.StorageFile{}
	err = filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, domain.StorageFile{
			URL:        joinURL(s.BaseURL, rel),
			Pathname:   rel,
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, storageErr("list", prefix, err)
	}
	return out, nil
}
