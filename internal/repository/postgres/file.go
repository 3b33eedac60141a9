package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

const fileColumns = "id, file_name, original_name, folder_id, path, mime_type, size, created_at, updated_at"

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanFile(row pgx.Row, file *models.File) error {
	return row.Scan(
		&file.ID,
		&file.FileName,
		&file.OriginalName,
		&file.FolderID,
		&file.Path,
		&file.MimeType,
		&file.Size,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
}

// Create inserts a file record. A folder deleted in the meantime surfaces as
// ErrNotFound through the foreign key.
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	if file.FolderID != nil && !validUUID(*file.FolderID) {
		return fmt.Errorf("folder %s: %w", *file.FolderID, domain.ErrNotFound)
	}

	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (file_name, original_name, folder_id, path, mime_type, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		file.FileName,
		file.OriginalName,
		file.FolderID,
		file.Path,
		file.MimeType,
		file.Size,
		file.CreatedAt,
		file.UpdatedAt,
	).Scan(&file.ID)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("folder %s: %w", *file.FolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a file record by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fileColumns, r.tables.Files)

	var file models.File
	if err := scanFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id), &file); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &file, nil
}

// Delete deletes a single file record
func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteByFolders deletes every file owned by one of folderIDs
func (r *PostgresFileRepository) DeleteByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	folderIDs = filterUUIDs(folderIDs)
	if len(folderIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE folder_id = ANY($1::uuid[])`, r.tables.Files)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, folderIDs)
	if err != nil {
		return 0, fmt.Errorf("delete files by folder: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListByFolder lists files directly inside a folder; nil lists the storage root
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, folderID *string) ([]models.File, error) {
	var query string
	var args []interface{}

	if folderID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE folder_id IS NULL
			ORDER BY created_at ASC, id ASC
		`, fileColumns, r.tables.Files)
	} else {
		if !validUUID(*folderID) {
			return []models.File{}, nil
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE folder_id = $1
			ORDER BY created_at ASC, id ASC
		`, fileColumns, r.tables.Files)
		args = append(args, *folderID)
	}

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]models.File, 0)
	for rows.Next() {
		var file models.File
		if err := scanFile(rows, &file); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// Count returns the number of file records
func (r *PostgresFileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Files)
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}
