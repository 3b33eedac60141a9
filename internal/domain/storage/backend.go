// Package storage defines the byte-store contract shared by the fs and s3
// backends. Objects are addressed by a directory (a folder's materialized
// path, empty for the storage root) and a flat object name.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrObjectNotFound is returned by Open when the object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists is returned by Create, or by Commit on backends that
	// can only detect the conflict at write time, when the name is taken.
	ErrObjectExists = errors.New("object already exists")
)

// Backend is addressable byte storage keyed by materialized path.
type Backend interface {
	// MkdirAll creates dir and any missing parents. Creating a directory that
	// already exists succeeds.
	MkdirAll(ctx context.Context, dir string) error

	// Create opens a new object for sequential writing.
	Create(ctx context.Context, dir, name string) (ObjectWriter, error)

	// Open returns a reader for an existing object.
	Open(ctx context.Context, dir, name string) (io.ReadCloser, error)

	// Remove deletes one object. A missing object is not an error.
	Remove(ctx context.Context, dir, name string) error

	// RemoveAll deletes dir and everything below it. A missing or partially
	// missing subtree is not an error.
	RemoveAll(ctx context.Context, dir string) error
}

// ObjectWriter appends bytes to a single object in write order.
//
// Exactly one of Commit or Abort ends the writer's life; Abort is also valid
// after a failed Commit and removes whatever was written.
type ObjectWriter interface {
	io.Writer

	// Commit flushes and closes the object, making it durable and readable.
	Commit(ctx context.Context) error

	// Abort discards the object and removes any partially written bytes.
	Abort(ctx context.Context) error
}
