package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors - match with errors.Is()
var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrSizeMismatch    = errors.New("size mismatch")
	ErrStorage         = errors.New("storage failure")
	ErrMetadata        = errors.New("metadata failure")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
)

// StorageError wraps a byte-store failure so callers only ever see ErrStorage.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}

// MetadataError wraps a record-store failure. NotFound passes through untouched
// because it is part of the taxonomy in its own right.
func MetadataError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMetadata) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrMetadata, err)
}

// StatusCode maps a domain error to an HTTP status code.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrSizeMismatch),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
