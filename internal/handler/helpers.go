package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"foldervault/internal/domain"
	"foldervault/internal/httputil"
)

// handleError converts domain errors to envelope responses. resource names
// the thing that was not found ("Folder", "File").
func handleError(w http.ResponseWriter, logger *slog.Logger, err error, resource string) {
	status := domain.StatusCode(err)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, status, resource+" not found")
	case errors.Is(err, domain.ErrUnsupportedType):
		httputil.RespondError(w, status, "Unsupported file type")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSizeMismatch):
		httputil.RespondError(w, status, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, status, "Unauthorized")
	default:
		logger.Error("request failed", "error", err)
		httputil.RespondError(w, status, "Something went wrong")
	}
}

// pathID extracts the {id} wildcard
func pathID(w http.ResponseWriter, r *http.Request, resource string) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, resource+" ID is required")
		return "", false
	}
	return id, true
}
