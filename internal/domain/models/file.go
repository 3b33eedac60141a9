package models

import (
	"time"
)

// File is the metadata record of an uploaded object. It is only ever created
// after every byte of the object has been written and committed.
type File struct {
	ID           string    `json:"id" db:"id"`
	FileName     string    `json:"fileName" db:"file_name"`         // Stored name: <unix millis>_<original name>
	OriginalName string    `json:"originalName" db:"original_name"` // Name supplied by the uploader
	FolderID     *string   `json:"folderId" db:"folder_id"`         // NULL = storage root
	Path         string    `json:"path" db:"path"`                  // Owning folder's path at upload time
	MimeType     string    `json:"mimeType" db:"mime_type"`
	Size         int64     `json:"size" db:"size"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
