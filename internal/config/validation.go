package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first, then the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if _, err := time.ParseDuration(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}

	switch cfg.Metadata.Driver {
	case "postgres":
		if cfg.Metadata.Postgres.URL == "" {
			return fmt.Errorf("metadata.postgres.url: required when metadata.driver is postgres")
		}
	case "sqlite":
		if cfg.Metadata.SQLite.Path == "" {
			return fmt.Errorf("metadata.sqlite.path: required when metadata.driver is sqlite")
		}
	}

	if cfg.Storage.Driver == "fs" && cfg.Storage.FS.Root == "" {
		return fmt.Errorf("storage.fs.root: required when storage.driver is fs")
	}

	if cfg.Upload.ChunkSize > int(cfg.Upload.MaxSize) {
		return fmt.Errorf("upload.chunk_size: must not exceed upload.max_size")
	}

	return nil
}

// formatValidationError reports the first failing field with its tag.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("validation error: %w", err)
}
