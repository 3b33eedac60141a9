package repositories

import (
	"context"

	"foldervault/internal/domain/models"
)

// FileRepository defines data access operations for file records
type FileRepository interface {
	// Create inserts a file record and assigns its ID and timestamps
	Create(ctx context.Context, file *models.File) error

	// GetByID retrieves a file by ID
	GetByID(ctx context.Context, id string) (*models.File, error)

	// Delete deletes a single file record
	Delete(ctx context.Context, id string) error

	// DeleteByFolders deletes every file owned by one of folderIDs
	DeleteByFolders(ctx context.Context, folderIDs []string) (int64, error)

	// ListByFolder lists files directly inside a folder (folderID nil = storage root)
	ListByFolder(ctx context.Context, folderID *string) ([]models.File, error)

	// Count returns the number of file records in the store
	Count(ctx context.Context) (int64, error)
}
