package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
)

// FileRepository implements repositories.FileRepository on SQLite
type FileRepository struct {
	store *Store
}

// Create inserts a file record. A folder deleted in the meantime surfaces as
// ErrNotFound through the foreign key.
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	rec := fileRecord{
		ID:           uuid.NewString(),
		FileName:     file.FileName,
		OriginalName: file.OriginalName,
		FolderID:     file.FolderID,
		Path:         file.Path,
		MimeType:     file.MimeType,
		Size:         file.Size,
	}

	if err := r.store.conn(ctx).Omit(clause.Associations).Create(&rec).Error; err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("folder %s: %w", *file.FolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("create file: %w", err)
	}

	file.ID = rec.ID
	file.CreatedAt = rec.CreatedAt
	file.UpdatedAt = rec.UpdatedAt
	return nil
}

// GetByID retrieves a file record by ID
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	var rec fileRecord
	if err := r.store.conn(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	file := rec.toModel()
	return &file, nil
}

// Delete deletes a single file record
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	result := r.store.conn(ctx).Where("id = ?", id).Delete(&fileRecord{})
	if result.Error != nil {
		return fmt.Errorf("delete file: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteByFolders deletes every file owned by one of folderIDs
func (r *FileRepository) DeleteByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}

	result := r.store.conn(ctx).Where("folder_id IN ?", folderIDs).Delete(&fileRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete files by folder: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListByFolder lists files directly inside a folder; nil lists the storage root
func (r *FileRepository) ListByFolder(ctx context.Context, folderID *string) ([]models.File, error) {
	query := r.store.conn(ctx)
	if folderID == nil {
		query = query.Where("folder_id IS NULL")
	} else {
		query = query.Where("folder_id = ?", *folderID)
	}

	var records []fileRecord
	if err := query.Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	files := make([]models.File, 0, len(records))
	for i := range records {
		files = append(files, records[i].toModel())
	}
	return files, nil
}

// Count returns the number of file records
func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.conn(ctx).Model(&fileRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}
