package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
)

// objectWriter appends to an exclusively created file
type objectWriter struct {
	file   *os.File
	path   string
	closed bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.file.Write(p)
}

// Commit fsyncs and closes the file
func (w *objectWriter) Commit(ctx context.Context) error {
	if w.closed {
		return os.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.closed = true
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("sync %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	return nil
}

// Abort closes the file if still open and deletes it
func (w *objectWriter) Abort(ctx context.Context) error {
	if !w.closed {
		w.closed = true
		_ = w.file.Close()
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("remove partial object %s: %w", w.path, err)
	}
	return nil
}
