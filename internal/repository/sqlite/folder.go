package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

// sortColumns whitelists ORDER BY expressions per sort field
var sortColumns = map[string]string{
	repositories.SortByName:      "name COLLATE NOCASE",
	repositories.SortByCreatedAt: "created_at",
	repositories.SortByUpdatedAt: "updated_at",
}

// FolderRepository implements repositories.FolderRepository on SQLite
type FolderRepository struct {
	store *Store
}

func toFolders(records []folderRecord) []models.Folder {
	folders := make([]models.Folder, 0, len(records))
	for i := range records {
		folders = append(folders, records[i].toModel())
	}
	return folders
}

// Create inserts a folder with an empty path and a generated id
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	rec := folderRecord{
		ID:             uuid.NewString(),
		Name:           folder.Name,
		Description:    folder.Description,
		ParentFolderID: folder.ParentFolderID,
	}

	if err := r.store.conn(ctx).Omit(clause.Associations).Create(&rec).Error; err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("parent folder %s: %w", *folder.ParentFolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	folder.ID = rec.ID
	folder.Path = rec.Path
	folder.CreatedAt = rec.CreatedAt
	folder.UpdatedAt = rec.UpdatedAt
	return nil
}

// GetByID retrieves a folder by ID
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	var rec folderRecord
	if err := r.store.conn(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	folder := rec.toModel()
	return &folder, nil
}

// SetPath stores the materialized path
func (r *FolderRepository) SetPath(ctx context.Context, id, path string) error {
	result := r.store.conn(ctx).Model(&folderRecord{}).
		Where("id = ?", id).
		UpdateColumn("path", path)
	if result.Error != nil {
		return fmt.Errorf("set folder path: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Update writes name and description. Path and parent are never updated here.
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	updatedAt := folder.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	result := r.store.conn(ctx).Model(&folderRecord{}).
		Where("id = ?", folder.ID).
		UpdateColumns(map[string]interface{}{
			"name":        folder.Name,
			"description": folder.Description,
			"updated_at":  updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update folder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	folder.UpdatedAt = updatedAt
	return nil
}

// Delete deletes a single folder
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	result := r.store.conn(ctx).Where("id = ?", id).Delete(&folderRecord{})
	if result.Error != nil {
		if isForeignKeyError(result.Error) {
			return fmt.Errorf("folder %s still has children or files: %w", id, domain.ErrValidation)
		}
		return fmt.Errorf("delete folder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteMany deletes all listed folders in one statement. SQLite checks
// NO ACTION foreign keys when the statement ends, so a subtree can go at once.
func (r *FolderRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.store.conn(ctx).Where("id IN ?", ids).Delete(&folderRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete folders: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DescendantIDs returns id followed by every folder below it, nearest first
func (r *FolderRepository) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	const query = `
		WITH RECURSIVE subtree(id, depth) AS (
			SELECT id, 0 FROM folders WHERE id = ?
			UNION ALL
			SELECT f.id, s.depth + 1
			FROM folders f
			JOIN subtree s ON f.parent_folder_id = s.id
		)
		SELECT id FROM subtree ORDER BY depth`

	var ids []string
	if err := r.store.conn(ctx).Raw(query, id).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("query descendants: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return ids, nil
}

// ListChildren lists immediate child folders; nil lists root folders
func (r *FolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	query := r.store.conn(ctx)
	if parentID == nil {
		query = query.Where("parent_folder_id IS NULL")
	} else {
		query = query.Where("parent_folder_id = ?", *parentID)
	}

	var records []folderRecord
	if err := query.Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	return toFolders(records), nil
}

// ListRoots returns a filtered, sorted page of root folders and the total
// number of matches. SQLite's LIKE is case-insensitive for ASCII.
func (r *FolderRepository) ListRoots(ctx context.Context, filter *repositories.FolderFilter) ([]models.Folder, int64, error) {
	query := r.store.conn(ctx).Model(&folderRecord{}).Where("parent_folder_id IS NULL")
	if filter.Name != "" {
		query = query.Where(`name LIKE ? ESCAPE '\'`, "%"+escapeLike(filter.Name)+"%")
	}
	if filter.Description != "" {
		query = query.Where(`description LIKE ? ESCAPE '\'`, "%"+escapeLike(filter.Description)+"%")
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
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

	var records []folderRecord
	err := query.
		Order(fmt.Sprintf("%s %s, id %s", orderBy, direction, direction)).
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list root folders: %w", err)
	}

	return toFolders(records), total, nil
}

// Count returns the number of folders at every depth
func (r *FolderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.conn(ctx).Model(&folderRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count folders: %w", err)
	}
	return count, nil
}
