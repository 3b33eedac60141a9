package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

const folderColumns = "id, name, description, parent_folder_id, path, created_at, updated_at"

// sortColumns whitelists ORDER BY expressions per sort field
var sortColumns = map[string]string{
	repositories.SortByName:      "lower(name)",
	repositories.SortByCreatedAt: "created_at",
	repositories.SortByUpdatedAt: "updated_at",
}

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func scanFolder(row pgx.Row, folder *models.Folder) error {
	return row.Scan(
		&folder.ID,
		&folder.Name,
		&folder.Description,
		&folder.ParentFolderID,
		&folder.Path,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
}

func collectFolders(rows pgx.Rows) ([]models.Folder, error) {
	defer rows.Close()

	folders := make([]models.Folder, 0)
	for rows.Next() {
		var folder models.Folder
		if err := scanFolder(rows, &folder); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// Create inserts a folder with an empty path; the database assigns the id
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ParentFolderID != nil && !validUUID(*folder.ParentFolderID) {
		return fmt.Errorf("parent folder %s: %w", *folder.ParentFolderID, domain.ErrNotFound)
	}

	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (name, description, parent_folder_id, path, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5)
		RETURNING id
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.Name,
		folder.Description,
		folder.ParentFolderID,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.ID)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("parent folder %s: %w", *folder.ParentFolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, folderColumns, r.tables.Folders)

	var folder models.Folder
	executor := GetExecutor(ctx, r.pool)
	if err := scanFolder(executor.QueryRow(ctx, query, id), &folder); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

// SetPath stores the materialized path; it is written once after Create
func (r *PostgresFolderRepository) SetPath(ctx context.Context, id, path string) error {
	query := fmt.Sprintf(`UPDATE %s SET path = $1 WHERE id = $2`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, path, id)
	if err != nil {
		return fmt.Errorf("set folder path: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Update writes name and description. Path and parent are never updated here.
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	if !validUUID(folder.ID) {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.Name,
		folder.Description,
		folder.UpdatedAt,
		folder.ID,
	)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a single folder
func (r *PostgresFolderRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("folder %s still has children or files: %w", id, domain.ErrValidation)
		}
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteMany deletes all listed folders in one statement. Foreign keys are
// checked at the end of the statement, so a whole subtree can go at once.
func (r *PostgresFolderRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	ids = filterUUIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1::uuid[])`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("delete folders: %w", err)
	}

	return result.RowsAffected(), nil
}

// DescendantIDs returns id followed by every folder below it, nearest first,
// using one recursive query
func (r *PostgresFolderRepository) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	if !validUUID(id) {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id, 0 AS depth
			FROM %[1]s
			WHERE id = $1

			UNION ALL

			SELECT f.id, s.depth + 1
			FROM %[1]s f
			JOIN subtree s ON f.parent_folder_id = s.id
		)
		SELECT id FROM subtree ORDER BY depth
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query descendants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var descendantID string
		if err := rows.Scan(&descendantID); err != nil {
			return nil, fmt.Errorf("scan descendant: %w", err)
		}
		ids = append(ids, descendantID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descendants: %w", err)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return ids, nil
}

// ListChildren lists immediate child folders; nil lists root folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_folder_id IS NULL
			ORDER BY created_at ASC, id ASC
		`, folderColumns, r.tables.Folders)
	} else {
		if !validUUID(*parentID) {
			return []models.Folder{}, nil
		}
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_folder_id = $1
			ORDER BY created_at ASC, id ASC
		`, folderColumns, r.tables.Folders)
		args = append(args, *parentID)
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}

	return collectFolders(rows)
}

// ListRoots returns a filtered, sorted page of root folders and the total
// number of matches
func (r *PostgresFolderRepository) ListRoots(ctx context.Context, filter *repositories.FolderFilter) ([]models.Folder, int64, error) {
	conditions := []string{"parent_folder_id IS NULL"}
	var args []interface{}

	if filter.Name != "" {
		args = append(args, escapeLike(filter.Name))
		conditions = append(conditions, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if filter.Description != "" {
		args = append(args, escapeLike(filter.Description))
		conditions = append(conditions, fmt.Sprintf("description ILIKE '%%' || $%d || '%%'", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	executor := GetExecutor(ctx, r.pool)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Folders, where)
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count root folders: %w", err)
	}

	orderBy, ok := sortColumns[filter.SortField]
	if !ok {
		orderBy = sortColumns[repositories.SortByCreatedAt]
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s %s, id %s
		LIMIT $%d OFFSET $%d
	`, folderColumns, r.tables.Folders, where, orderBy, direction, direction, len(args)-1, len(args))

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list root folders: %w", err)
	}

	folders, err := collectFolders(rows)
	if err != nil {
		return nil, 0, err
	}

	return folders, total, nil
}

// Count returns the number of folders at every depth
func (r *PostgresFolderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Folders)
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count folders: %w", err)
	}
	return count, nil
}
