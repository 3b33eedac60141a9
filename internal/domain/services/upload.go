package services

import (
	"context"
	"io"

	"foldervault/internal/domain/models"
)

// UploadService streams uploads into storage and serves stored files
type UploadService interface {
	// Upload runs one upload to completion or failure
	Upload(ctx context.Context, req *UploadRequest) (*models.File, error)

	// Open resolves a file record and opens its bytes; the caller closes the reader
	Open(ctx context.Context, fileID string) (*models.File, io.ReadCloser, error)

	// DeleteFile removes a single file record and its object
	DeleteFile(ctx context.Context, fileID string) error
}

// UploadRequest describes one upload
type UploadRequest struct {
	SessionID    string    // progress channel session, empty = nobody listening
	FolderID     *string   // target folder, nil = storage root
	OriginalName string    // name supplied by the client
	MimeType     string    // declared content type, checked against the allow-list
	Size         int64     // declared total size in bytes
	Body         io.Reader // content, read until EOF
}

// ProgressPublisher delivers progress events to whoever listens on a session
type ProgressPublisher interface {
	Publish(sessionID string, event models.ProgressEvent)
}
