package cli

import (
	"context"
	"fmt"
	"log/slog"

	gormlogger "gorm.io/gorm/logger"

	"foldervault/internal/config"
	"foldervault/internal/domain/repositories"
	"foldervault/internal/domain/storage"
	"foldervault/internal/handler"
	"foldervault/internal/repository/cache"
	"foldervault/internal/repository/memory"
	"foldervault/internal/repository/postgres"
	"foldervault/internal/repository/sqlite"
	"foldervault/internal/storage/fs"
	s3storage "foldervault/internal/storage/s3"
)

// metadataStore is the repository set selected by metadata.driver
type metadataStore struct {
	folders   repositories.FolderRepository
	files     repositories.FileRepository
	txManager repositories.TransactionManager
	health    handler.HealthCheck
	close     func()
}

// openMetadata connects the configured metadata store and brings its schema
// up to date. The folder repository is wrapped in the lookup cache when
// metadata.cache.size is positive.
func openMetadata(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*metadataStore, error) {
	var store *metadataStore

	switch cfg.Metadata.Driver {
	case "postgres":
		pg := cfg.Metadata.Postgres
		if err := postgres.Migrate(pg.URL, pg.TablePrefix, logger); err != nil {
			return nil, err
		}

		pool, err := postgres.CreateConnectionPool(ctx, pg.URL, logger)
		if err != nil {
			return nil, err
		}

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(pg.TablePrefix),
			Logger: logger,
		}
		store = &metadataStore{
			folders:   postgres.NewFolderRepository(repoConfig),
			files:     postgres.NewFileRepository(repoConfig),
			txManager: postgres.NewTransactionManager(pool, logger),
			health:    func(ctx context.Context) error { return pool.Ping(ctx) },
			close:     pool.Close,
		}

	case "sqlite":
		db, err := openSQLite(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}

		store = &metadataStore{
			folders:   db.Folders(),
			files:     db.Files(),
			txManager: db.TransactionManager(),
			health:    db.Health,
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("failed to close sqlite store", "error", err)
				}
			},
		}

	case "memory":
		logger.Warn("using in-memory metadata store, nothing survives a restart")
		mem := memory.New()
		store = &metadataStore{
			folders:   mem.Folders(),
			files:     mem.Files(),
			txManager: mem.TransactionManager(),
			close:     func() {},
		}

	default:
		return nil, fmt.Errorf("unknown metadata driver %q", cfg.Metadata.Driver)
	}

	if size := cfg.Metadata.Cache.Size; size > 0 {
		cached := cache.NewFolderRepository(store.folders, size, cfg.CacheTTL())
		store.folders = cached
		store.txManager = cache.NewTransactionManager(store.txManager, cached)
		logger.Info("folder cache enabled", "size", size, "ttl", cfg.CacheTTL())
	}

	logger.Info("metadata store ready", "driver", cfg.Metadata.Driver)

	return store, nil
}

func openSQLite(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlite.Store, error) {
	level := gormlogger.Silent
	if config.ParseLevel(cfg.Log.Level) == slog.LevelDebug {
		level = gormlogger.Info
	}

	return sqlite.Open(ctx, sqlite.Config{
		Path:     cfg.Metadata.SQLite.Path,
		LogLevel: level,
	}, logger)
}

// openStorage builds the configured storage backend
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "fs":
		return fs.New(cfg.Storage.FS.Root, logger)

	case "s3":
		opts, err := s3storage.DecodeOptions(cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		client, err := s3storage.NewClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s3storage.New(ctx, client, opts, logger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
