// Package sqlite is the embedded metadata store: gorm over the pure-Go
// glebarez/sqlite driver, with foreign keys enforced.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foldervault/internal/domain/repositories"
)

// Store owns the database handle shared by the repositories
type Store struct {
	db     *gorm.DB
	path   string
	logger *slog.Logger
}

// Config holds SQLite-specific configuration
type Config struct {
	Path     string
	LogLevel logger.LogLevel
}

// Open opens (creating if needed) the database at cfg.Path
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// SQLite only supports 1 writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	log.Info("sqlite metadata store opened", "path", cfg.Path)

	return &Store{db: db, path: cfg.Path, logger: log}, nil
}

// dsn enables foreign keys and a busy timeout on every connection
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate creates or updates the schema
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&folderRecord{}, &fileRecord{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	s.logger.Info("sqlite schema migrated", "path", s.path)
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Folders returns the folder repository
func (s *Store) Folders() repositories.FolderRepository {
	return &FolderRepository{store: s}
}

// Files returns the file repository
func (s *Store) Files() repositories.FileRepository {
	return &FileRepository{store: s}
}

// TransactionManager returns a manager running fn inside a gorm transaction
func (s *Store) TransactionManager() repositories.TransactionManager {
	return &transactionManager{store: s}
}

type txContextKey struct{}

// conn returns the transaction in ctx, or the shared handle
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

type transactionManager struct {
	store *Store
}

// ExecTx runs fn in a transaction; a transaction already in ctx is joined
func (tm *transactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return tm.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// isForeignKeyError matches SQLite's foreign key violation message
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
