package sqlite

import (
	"time"

	"foldervault/internal/domain/models"
)

// folderRecord is the folders table
type folderRecord struct {
	ID             string        `gorm:"primaryKey;type:text"`
	Name           string        `gorm:"size:255;not null"`
	Description    *string       `gorm:"type:text"`
	ParentFolderID *string       `gorm:"type:text;index"`
	Parent         *folderRecord `gorm:"foreignKey:ParentFolderID"`
	Path           string        `gorm:"type:text;not null;default:'';index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (folderRecord) TableName() string { return "folders" }

func (r *folderRecord) toModel() models.Folder {
	return models.Folder{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		ParentFolderID: r.ParentFolderID,
		Path:           r.Path,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// fileRecord is the files table
type fileRecord struct {
	ID           string        `gorm:"primaryKey;type:text"`
	FileName     string        `gorm:"size:255;not null"`
	OriginalName string        `gorm:"type:text;not null"`
	FolderID     *string       `gorm:"type:text;index"`
	Folder       *folderRecord `gorm:"foreignKey:FolderID"`
	Path         string        `gorm:"type:text;not null;default:''"`
	MimeType     string        `gorm:"size:255;not null"`
	Size         int64         `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (fileRecord) TableName() string { return "files" }

func (r *fileRecord) toModel() models.File {
	return models.File{
		ID:           r.ID,
		FileName:     r.FileName,
		OriginalName: r.OriginalName,
		FolderID:     r.FolderID,
		Path:         r.Path,
		MimeType:     r.MimeType,
		Size:         r.Size,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
