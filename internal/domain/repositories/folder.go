package repositories

import (
	"context"

	"foldervault/internal/domain/models"
)

// Sortable folder fields for root listings.
const (
	SortByName      = "name"
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
)

// FolderFilter narrows and orders a root-folder listing.
type FolderFilter struct {
	Name        string // case-insensitive substring match, empty = any
	Description string // case-insensitive substring match, empty = any
	SortField   string // one of the SortBy* constants
	SortDesc    bool
	Offset      int
	Limit       int
}

// FolderRepository defines data access operations for folders
type FolderRepository interface {
	// Create inserts a folder and assigns its ID and timestamps
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// SetPath stores the materialized path of a freshly created folder
	SetPath(ctx context.Context, id, path string) error

	// Update persists name and description changes
	Update(ctx context.Context, folder *models.Folder) error

	// Delete deletes a single folder
	Delete(ctx context.Context, id string) error

	// DeleteMany deletes every folder in ids and returns how many were removed
	DeleteMany(ctx context.Context, ids []string) (int64, error)

	// DescendantIDs returns id plus the ids of every folder below it,
	// computed in a single traversal
	DescendantIDs(ctx context.Context, id string) ([]string, error)

	// ListChildren lists immediate child folders (parentID nil = root level)
	ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error)

	// ListRoots returns one page of root folders and the total match count
	ListRoots(ctx context.Context, filter *FolderFilter) ([]models.Folder, int64, error)

	// Count returns the number of folders in the store
	Count(ctx context.Context) (int64, error)
}
