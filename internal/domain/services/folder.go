package services

import (
	"context"

	"foldervault/internal/domain/models"
)

// FolderService manages the folder hierarchy
type FolderService interface {
	// CreateFolder creates a folder under an optional parent and its backing directory
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)

	// GetFolder retrieves a folder by ID
	GetFolder(ctx context.Context, id string) (*models.Folder, error)

	// UpdateFolder changes name and/or description; the path never changes
	UpdateFolder(ctx context.Context, id string, req *UpdateFolderRequest) (*models.Folder, error)

	// DeleteFolder removes a folder, every descendant folder, every file owned
	// by the subtree and the subtree's bytes
	DeleteFolder(ctx context.Context, id string) error

	// GetChildren lists direct child folders and files (folderID nil = root level)
	GetChildren(ctx context.Context, folderID *string) (*models.FolderContents, error)

	// ListFolders returns a filtered, sorted page of root folders
	ListFolders(ctx context.Context, req *ListFoldersRequest) (*models.FolderListing, error)
}

// CreateFolderRequest is the request to create a folder
type CreateFolderRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	ParentFolderID *string `json:"parentFolderId"`
}

// UpdateFolderRequest is the request to update a folder
type UpdateFolderRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListFoldersRequest carries the root listing query parameters
type ListFoldersRequest struct {
	Page        int
	Limit       int
	SortBy      string // "field" or "field:asc|desc"
	Name        string
	Description string
}
