package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"foldervault/internal/domain/services"
	"foldervault/internal/httputil"
)

// SessionHeader names the progress session of an upload
const SessionHeader = "socket-id"

const (
	// multipartMemory is how much of a multipart form is kept in memory;
	// the rest spills to temporary files
	multipartMemory = 32 << 20

	// multipartOverhead allows for boundaries and form fields on top of the file
	multipartOverhead = 1 << 20
)

// FileHandler handles file upload, download and deletion
type FileHandler struct {
	uploadService services.UploadService
	maxSize       int64
	logger        *slog.Logger
}

// NewFileHandler creates a new file handler. maxSize bounds the request
// body; 0 leaves it unbounded.
func NewFileHandler(uploadService services.UploadService, maxSize int64, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		uploadService: uploadService,
		maxSize:       maxSize,
		logger:        logger,
	}
}

// Upload stores the "file" part of a multipart form in the optional
// "folderId" folder, publishing progress under the socket-id session
// POST /api/file/upload
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	header := headers[0]

	body, err := header.Open()
	if err != nil {
		handleError(w, h.logger, fmt.Errorf("open multipart file: %w", err), "File")
		return
	}
	defer body.Close()

	var folderID *string
	if v := r.FormValue("folderId"); v != "" {
		folderID = &v
	}

	file, err := h.uploadService.Upload(r.Context(), &services.UploadRequest{
		SessionID:    r.Header.Get(SessionHeader),
		FolderID:     folderID,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         body,
	})
	if err != nil {
		handleError(w, h.logger, err, "Folder")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File has been uploaded successfully.", file)
}

// Download streams a stored file as an attachment
// GET /api/file/{id}
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "File")
	if !ok {
		return
	}

	file, content, err := h.uploadService.Open(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err, "File")
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("file download interrupted",
			"file_id", file.ID,
			"error", err,
		)
	}
}

// DeleteFile removes one file record and its bytes
// DELETE /api/file/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "File")
	if !ok {
		return
	}

	if err := h.uploadService.DeleteFile(r.Context(), id); err != nil {
		handleError(w, h.logger, err, "File")
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File deleted successfully.", nil)
}
