// Package upload implements the chunked upload pipeline: resolve the target
// folder, stream bytes into the storage backend while publishing progress,
// and create the file record only once every byte is durable.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"foldervault/internal/config"
	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
	"foldervault/internal/domain/services"
	"foldervault/internal/domain/storage"
	"foldervault/internal/metrics"
)

// FailureMessage is the error text subscribers see. Details stay in the logs.
const FailureMessage = "File upload failed"

// createAttempts bounds retries when a stored name collides
const createAttempts = 3

// Config tunes the pipeline
type Config struct {
	ChunkSize    int
	MaxSize      int64 // 0 = unlimited
	AllowedTypes []string
}

type uploadService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	backend    storage.Backend
	publisher  services.ProgressPublisher
	chunkSize  int
	maxSize    int64
	allowed    map[string]struct{}
	logger     *slog.Logger
	now        func() time.Time
}

// NewUploadService creates the upload pipeline
func NewUploadService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	backend storage.Backend,
	publisher services.ProgressPublisher,
	cfg Config,
	logger *slog.Logger,
) services.UploadService {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}

	allowedTypes := cfg.AllowedTypes
	if len(allowedTypes) == 0 {
		allowedTypes = config.DefaultAllowedTypes
	}
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}

	return &uploadService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		backend:    backend,
		publisher:  publisher,
		chunkSize:  chunkSize,
		maxSize:    cfg.MaxSize,
		allowed:    allowed,
		logger:     logger,
		now:        time.Now,
	}
}

// Upload runs one upload through the state machine
func (s *uploadService) Upload(ctx context.Context, req *services.UploadRequest) (*models.File, error) {
	p := &pipeline{
		svc:   s,
		req:   req,
		state: StatePending,
		logger: s.logger.With(
			"session_id", req.SessionID,
			"original_name", req.OriginalName,
		),
	}

	file, err := p.run(ctx)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues(metrics.ResultCompleted).Inc()
	metrics.UploadBytesTotal.Add(float64(file.Size))

	return file, nil
}

// Open resolves a file record and opens its bytes
func (s *uploadService) Open(ctx context.Context, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, domain.MetadataError("get file", err)
	}

	r, err := s.backend.Open(ctx, file.Path, file.FileName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("file record without object",
				"file_id", file.ID,
				"path", file.Path,
				"file_name", file.FileName,
			)
			return nil, nil, fmt.Errorf("file %s bytes: %w", fileID, domain.ErrNotFound)
		}
		return nil, nil, domain.StorageError("open file", err)
	}

	return file, r, nil
}

// DeleteFile removes the record first, then the object
func (s *uploadService) DeleteFile(ctx context.Context, fileID string) error {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return domain.MetadataError("get file", err)
	}

	if err := s.fileRepo.Delete(ctx, fileID); err != nil {
		return domain.MetadataError("delete file", err)
	}

	if err := s.backend.Remove(ctx, file.Path, file.FileName); err != nil {
		return domain.StorageError("remove file object", err)
	}

	s.logger.Info("file deleted",
		"file_id", file.ID,
		"file_name", file.FileName,
		"path", file.Path,
	)

	return nil
}

// pipeline carries the state of one upload
type pipeline struct {
	svc    *uploadService
	req    *services.UploadRequest
	state  State
	logger *slog.Logger

	dir      string
	fileName string
	writer   storage.ObjectWriter
	written  int64
}

func (p *pipeline) transition(to State) {
	p.logger.Debug("upload state change",
		"from", p.state.String(),
		"to", to.String(),
		"bytes_written", p.written,
	)
	p.state = to
}

func (p *pipeline) run(ctx context.Context) (*models.File, error) {
	s := p.svc
	req := p.req

	// Resolving
	p.transition(StateResolving)

	if _, ok := s.allowed[req.MimeType]; !ok {
		return nil, p.fail(ctx, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, req.MimeType), false)
	}
	if req.Size < 0 {
		return nil, p.fail(ctx, fmt.Errorf("%w: declared size must not be negative", domain.ErrValidation), false)
	}
	if s.maxSize > 0 && req.Size > s.maxSize {
		return nil, p.fail(ctx, fmt.Errorf("%w: declared size %d exceeds limit %d", domain.ErrValidation, req.Size, s.maxSize), false)
	}
	sanitized := SanitizeName(req.OriginalName)
	if sanitized == "" || len(sanitized) > config.MaxFileNameLength {
		return nil, p.fail(ctx, fmt.Errorf("%w: invalid file name %q", domain.ErrValidation, req.OriginalName), false)
	}

	var folderID *string
	if req.FolderID != nil && *req.FolderID != "" {
		folder, err := s.folderRepo.GetByID(ctx, *req.FolderID)
		if err != nil {
			return nil, p.fail(ctx, domain.MetadataError("get target folder", err), true)
		}
		p.dir = folder.Path
		folderID = &folder.ID
	}

	// Streaming
	p.transition(StateStreaming)

	if err := p.createWriter(ctx, sanitized); err != nil {
		return nil, p.fail(ctx, err, true)
	}
	if err := p.stream(ctx); err != nil {
		return nil, p.fail(ctx, err, true)
	}

	// Finalizing
	p.transition(StateFinalizing)

	if p.written != req.Size {
		return nil, p.fail(ctx, fmt.Errorf("%w: declared %d bytes, received %d",
			domain.ErrSizeMismatch, req.Size, p.written), true)
	}
	if err := p.writer.Commit(ctx); err != nil {
		return nil, p.fail(ctx, domain.StorageError("commit object", err), true)
	}
	p.writer = nil

	file := &models.File{
		FileName:     p.fileName,
		OriginalName: req.OriginalName,
		FolderID:     folderID,
		Path:         p.dir,
		MimeType:     req.MimeType,
		Size:         p.written,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		// The folder may have been deleted while bytes were streaming
		if rmErr := s.backend.Remove(context.WithoutCancel(ctx), p.dir, p.fileName); rmErr != nil {
			p.logger.Error("failed to remove object after record creation failed",
				"path", p.dir,
				"file_name", p.fileName,
				"error", rmErr,
			)
		}
		return nil, p.fail(ctx, domain.MetadataError("create file record", err), true)
	}

	p.transition(StateCompleted)
	s.publisher.Publish(req.SessionID, models.NewProgressEvent(100, file))

	p.logger.Info("upload completed",
		"file_id", file.ID,
		"file_name", file.FileName,
		"path", file.Path,
		"size", file.Size,
	)

	return file, nil
}

// createWriter opens the destination object, moving the timestamp forward
// when a name from the same millisecond is already taken
func (p *pipeline) createWriter(ctx context.Context, sanitized string) error {
	created := p.svc.now()

	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		name := StoredName(created.Add(time.Duration(attempt)*time.Millisecond), sanitized)
		w, err := p.svc.backend.Create(ctx, p.dir, name)
		if err == nil {
			p.writer = w
			p.fileName = name
			return nil
		}
		lastErr = err
		if !errors.Is(err, storage.ErrObjectExists) {
			break
		}
	}

	return domain.StorageError("create object", lastErr)
}

// stream copies the body chunk by chunk, publishing progress after each
// chunk is appended
func (p *pipeline) stream(ctx context.Context) error {
	buf := make([]byte, p.svc.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("upload cancelled: %w", err)
		}

		n, readErr := io.ReadFull(p.req.Body, buf)
		if n > 0 {
			if p.written+int64(n) > p.req.Size {
				return fmt.Errorf("%w: received more than the declared %d bytes",
					domain.ErrSizeMismatch, p.req.Size)
			}
			if _, err := p.writer.Write(buf[:n]); err != nil {
				return domain.StorageError("write chunk", err)
			}
			p.written += int64(n)
			p.svc.publisher.Publish(p.req.SessionID,
				models.NewProgressEvent(Percent(p.written, p.req.Size), nil))
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return nil
		default:
			return fmt.Errorf("read upload body: %w", readErr)
		}
	}
}

// fail moves the upload to Failed, discards partial bytes and optionally
// tells the subscriber. Failures found while resolving the request publish
// nothing.
func (p *pipeline) fail(ctx context.Context, err error, notify bool) error {
	from := p.state
	p.transition(StateFailed)

	if p.writer != nil {
		if abortErr := p.writer.Abort(context.WithoutCancel(ctx)); abortErr != nil {
			p.logger.Error("failed to discard partial object",
				"path", p.dir,
				"file_name", p.fileName,
				"error", abortErr,
			)
		}
		p.writer = nil
	}

	if notify {
		p.svc.publisher.Publish(p.req.SessionID, models.NewUploadErrorEvent(FailureMessage))
	}

	p.logger.Warn("upload failed",
		"state", from.String(),
		"bytes_written", p.written,
		"error", err,
	)

	return err
}

// Percent is round(written/declared*100) capped at 100. A declared size of
// zero counts as complete.
func Percent(written, declared int64) int {
	if declared <= 0 {
		return 100
	}
	pct := int(math.Round(float64(written) / float64(declared) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}
