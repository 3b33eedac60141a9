package models

import (
	"time"
)

// Folder is a node in the folder forest. Path is the slash-joined chain of
// ancestor ids ending with the folder's own id; it is assigned once at
// creation and never rewritten.
type Folder struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    *string   `json:"description" db:"description"`
	ParentFolderID *string   `json:"parentFolderId" db:"parent_folder_id"` // NULL = root level
	Path           string    `json:"path" db:"path"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool {
	return f.ParentFolderID == nil
}

// FolderContents holds the direct children of a folder (or of the root level).
type FolderContents struct {
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// FolderStatistics holds whole-store counters returned alongside listings.
type FolderStatistics struct {
	TotalFolders int64 `json:"totalFolders"`
	TotalFiles   int64 `json:"totalFiles"`
}

// FolderListing is a page of root folders.
type FolderListing struct {
	Folders    []Folder         `json:"folders"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int64            `json:"total"`
	Statistics FolderStatistics `json:"statistics"`
}
