// Package fs stores objects as files in nested directories under a root.
// Directory names are folder ids, so the on-disk tree mirrors materialized
// paths one to one.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"foldervault/internal/domain/storage"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Backend implements storage.Backend on the local filesystem
type Backend struct {
	root   string
	logger *slog.Logger
}

// New creates the root directory if needed and returns a backend rooted there
func New(root string, logger *slog.Logger) (*Backend, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	logger.Info("filesystem storage initialized", "root", abs)

	return &Backend{root: abs, logger: logger}, nil
}

// Root returns the absolute storage root
func (b *Backend) Root() string {
	return b.root
}

// MkdirAll creates dir below the root; an existing directory is success
func (b *Backend) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := b.resolveDir(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, dirPerm); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// Create opens dir/name for writing. The directory is created if missing and
// an existing object with the same name is never overwritten.
func (b *Backend) Create(ctx context.Context, dir, name string) (storage.ObjectWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := b.resolveObject(dir, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), dirPerm); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return nil, fmt.Errorf("%s: %w", name, storage.ErrObjectExists)
		}
		return nil, fmt.Errorf("create object %s: %w", name, err)
	}

	return &objectWriter{file: f, path: full}, nil
}

// Open returns a reader for dir/name
func (b *Backend) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := b.resolveObject(dir, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, storage.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("open object %s: %w", name, err)
	}
	return f, nil
}

// Remove deletes dir/name; a missing object is success
func (b *Backend) Remove(ctx context.Context, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := b.resolveObject(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("remove object %s: %w", name, err)
	}
	return nil
}

// RemoveAll deletes the subtree at dir; a missing subtree is success.
// The storage root itself can never be removed.
func (b *Backend) RemoveAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if strings.Trim(dir, "/") == "" {
		return errors.New("refusing to remove the storage root")
	}

	full, err := b.resolveDir(dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("remove directory %s: %w", dir, err)
	}
	return nil
}

// resolveDir maps a slash-separated materialized path below the root
func (b *Backend) resolveDir(dir string) (string, error) {
	rel := filepath.FromSlash(strings.Trim(dir, "/"))
	if rel == "" {
		return b.root, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q escapes the storage root", dir)
	}
	return filepath.Join(b.root, rel), nil
}

func (b *Backend) resolveObject(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	full, err := b.resolveDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(full, name), nil
}
