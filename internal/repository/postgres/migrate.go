package postgres

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// prefixPlaceholder is replaced by the table prefix in every migration file
const prefixPlaceholder = "{{prefix}}"

// Migrate applies all pending migrations
func Migrate(databaseURL, tablePrefix string, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL, tablePrefix)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied",
		"version", version,
		"dirty", dirty,
		"table_prefix", tablePrefix,
	)

	return nil
}

// MigrateDown rolls back every migration
func MigrateDown(databaseURL, tablePrefix string, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL, tablePrefix)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}

	logger.Info("migrations rolled back", "table_prefix", tablePrefix)
	return nil
}

func newMigrator(databaseURL, tablePrefix string) (*migrate.Migrate, error) {
	source, err := iofs.New(prefixedFS{prefix: tablePrefix}, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	migrateURL, err := migrationURL(databaseURL, NewTableNames(tablePrefix).Migrations)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL)
	if err != nil {
		return nil, fmt.Errorf("initialize migrations: %w", err)
	}
	return m, nil
}

// migrationURL rewrites a postgres:// URL to the pgx5:// scheme golang-migrate
// expects and points it at the prefixed migrations table
func migrationURL(databaseURL, migrationsTable string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql", "pgx5":
		u.Scheme = "pgx5"
	default:
		return "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("x-migrations-table", migrationsTable)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// prefixedFS serves the embedded migrations with the table prefix filled in
type prefixedFS struct {
	prefix string
}

func (p prefixedFS) Open(name string) (fs.File, error) {
	f, err := migrationsFS.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		return f, nil
	}
	defer f.Close()

	data, err := fs.ReadFile(migrationsFS, name)
	if err != nil {
		return nil, err
	}
	rendered := []byte(strings.ReplaceAll(string(data), prefixPlaceholder, p.prefix))

	return &renderedFile{
		Reader: bytes.NewReader(rendered),
		info:   renderedInfo{FileInfo: info, size: int64(len(rendered))},
	}, nil
}

type renderedFile struct {
	*bytes.Reader
	info renderedInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *renderedFile) Close() error               { return nil }

type renderedInfo struct {
	fs.FileInfo
	size int64
}

func (i renderedInfo) Size() int64 { return i.size }
