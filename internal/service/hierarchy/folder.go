package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"foldervault/internal/config"
	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
	"foldervault/internal/domain/services"
	"foldervault/internal/domain/storage"
	"foldervault/internal/metrics"
)

// Operation labels for folder metrics
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

type folderService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	backend    storage.Backend
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

// NewFolderService creates the folder tree manager
func NewFolderService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	backend storage.Backend,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		backend:    backend,
		txManager:  txManager,
		logger:     logger,
	}
}

// CreateFolder persists the folder, assigns its path and creates its directory.
// All three happen in one transaction; if the directory cannot be created the
// record is rolled back with it.
func (s *folderService) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*models.Folder, error) {
	folder, err := s.createFolder(ctx, req)
	metrics.ObserveFolderOperation(opCreate, err)
	return folder, err
}

func (s *folderService) createFolder(ctx context.Context, req *services.CreateFolderRequest) (*models.Folder, error) {
	if req.ParentFolderID != nil && *req.ParentFolderID == "" {
		req.ParentFolderID = nil
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var folder *models.Folder
	dirCreated := false

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var parent *models.Folder
		if req.ParentFolderID != nil {
			p, err := s.folderRepo.GetByID(txCtx, *req.ParentFolderID)
			if err != nil {
				return domain.MetadataError("get parent folder", err)
			}
			parent = p
		}

		folder = &models.Folder{
			Name:           strings.TrimSpace(req.Name),
			Description:    req.Description,
			ParentFolderID: req.ParentFolderID,
		}
		if err := s.folderRepo.Create(txCtx, folder); err != nil {
			return domain.MetadataError("create folder", err)
		}

		folder.Path = ComputePath(parent, folder.ID)
		if err := s.folderRepo.SetPath(txCtx, folder.ID, folder.Path); err != nil {
			return domain.MetadataError("set folder path", err)
		}

		if err := s.backend.MkdirAll(txCtx, folder.Path); err != nil {
			return domain.StorageError("create folder directory", err)
		}
		dirCreated = true

		return nil
	})
	if err != nil {
		if dirCreated {
			// The transaction failed after the directory was made (commit error).
			if rmErr := s.backend.RemoveAll(context.WithoutCancel(ctx), folder.Path); rmErr != nil {
				s.logger.Warn("failed to remove directory of rolled back folder",
					"path", folder.Path,
					"error", rmErr,
				)
			}
		}
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"parent_folder_id", folder.ParentFolderID,
		"path", folder.Path,
	)

	return folder, nil
}

// GetFolder retrieves a folder by ID
func (s *folderService) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.MetadataError("get folder", err)
	}
	return folder, nil
}

// UpdateFolder renames a folder and/or changes its description. Path and
// parent are system-managed and never change here.
func (s *folderService) UpdateFolder(ctx context.Context, id string, req *services.UpdateFolderRequest) (*models.Folder, error) {
	folder, err := s.updateFolder(ctx, id, req)
	metrics.ObserveFolderOperation(opUpdate, err)
	return folder, err
}

func (s *folderService) updateFolder(ctx context.Context, id string, req *services.UpdateFolderRequest) (*models.Folder, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.MetadataError("get folder", err)
	}

	if req.Name != nil {
		folder.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		folder.Description = req.Description
	}
	folder.UpdatedAt = time.Now().UTC()

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, domain.MetadataError("update folder", err)
	}

	s.logger.Info("folder updated",
		"id", folder.ID,
		"name", folder.Name,
		"path", folder.Path,
	)

	return folder, nil
}

// DeleteFolder removes the folder's whole subtree. Metadata goes first, in one
// transaction, so a crash before the bytes are removed leaves at worst an
// unreferenced directory and never a record pointing at missing bytes.
func (s *folderService) DeleteFolder(ctx context.Context, id string) error {
	err := s.deleteFolder(ctx, id)
	metrics.ObserveFolderOperation(opDelete, err)
	return err
}

func (s *folderService) deleteFolder(ctx context.Context, id string) error {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return domain.MetadataError("get folder", err)
	}

	var folderIDs []string
	var filesDeleted, foldersDeleted int64

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		ids, err := s.folderRepo.DescendantIDs(txCtx, id)
		if err != nil {
			return domain.MetadataError("find descendant folders", err)
		}
		folderIDs = ids

		filesDeleted, err = s.fileRepo.DeleteByFolders(txCtx, ids)
		if err != nil {
			return domain.MetadataError("delete files", err)
		}

		foldersDeleted, err = s.folderRepo.DeleteMany(txCtx, ids)
		if err != nil {
			return domain.MetadataError("delete folders", err)
		}
		if foldersDeleted == 0 {
			// Another request removed the subtree in between
			return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if folder.Path == "" {
		s.logger.Warn("deleted folder had no path, skipping storage removal", "id", id)
	} else if err := s.backend.RemoveAll(ctx, folder.Path); err != nil {
		return domain.StorageError("remove folder directory", err)
	}

	s.logger.Info("folder deleted",
		"id", id,
		"name", folder.Name,
		"path", folder.Path,
		"folders_deleted", foldersDeleted,
		"files_deleted", filesDeleted,
		"subtree_size", len(folderIDs),
	)

	return nil
}

// GetChildren lists direct child folders and files, one level only
func (s *folderService) GetChildren(ctx context.Context, folderID *string) (*models.FolderContents, error) {
	if folderID != nil && *folderID == "" {
		folderID = nil
	}

	if folderID != nil {
		if _, err := s.folderRepo.GetByID(ctx, *folderID); err != nil {
			return nil, domain.MetadataError("get folder", err)
		}
	}

	folders, err := s.folderRepo.ListChildren(ctx, folderID)
	if err != nil {
		return nil, domain.MetadataError("list child folders", err)
	}

	files, err := s.fileRepo.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, domain.MetadataError("list files", err)
	}

	return &models.FolderContents{
		Folders: folders,
		Files:   files,
	}, nil
}

// ListFolders returns a page of root folders with store-wide statistics
func (s *folderService) ListFolders(ctx context.Context, req *services.ListFoldersRequest) (*models.FolderListing, error) {
	if req.Page <= 0 {
		req.Page = config.DefaultPage
	}
	if req.Limit <= 0 {
		req.Limit = config.DefaultLimit
	}

	field, desc := parseSortBy(req.SortBy)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Limit, validation.Max(config.MaxLimit)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validation.Validate(field,
		validation.In(repositories.SortByName, repositories.SortByCreatedAt, repositories.SortByUpdatedAt).
			Error("sortBy must be one of name, createdAt, updatedAt"),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folders, total, err := s.folderRepo.ListRoots(ctx, &repositories.FolderFilter{
		Name:        req.Name,
		Description: req.Description,
		SortField:   field,
		SortDesc:    desc,
		Offset:      (req.Page - 1) * req.Limit,
		Limit:       req.Limit,
	})
	if err != nil {
		return nil, domain.MetadataError("list folders", err)
	}

	totalFolders, err := s.folderRepo.Count(ctx)
	if err != nil {
		return nil, domain.MetadataError("count folders", err)
	}
	totalFiles, err := s.fileRepo.Count(ctx)
	if err != nil {
		return nil, domain.MetadataError("count files", err)
	}

	return &models.FolderListing{
		Folders: folders,
		Page:    req.Page,
		Limit:   req.Limit,
		Total:   total,
		Statistics: models.FolderStatistics{
			TotalFolders: totalFolders,
			TotalFiles:   totalFiles,
		},
	}, nil
}

// parseSortBy splits "field:asc|desc". Direction defaults to ascending and
// the field to createdAt.
func parseSortBy(sortBy string) (string, bool) {
	if sortBy == "" {
		return repositories.SortByCreatedAt, false
	}
	field, direction, _ := strings.Cut(sortBy, ":")
	return field, direction == "desc"
}

// validateCreateRequest validates a folder creation request
func (s *folderService) validateCreateRequest(req *services.CreateFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.By(notBlank),
			validation.Length(1, config.MaxFolderNameLength),
		),
		validation.Field(&req.Description,
			validation.Length(0, config.MaxFolderDescriptionLength),
		),
	)
}

// validateUpdateRequest validates a folder update request
func (s *folderService) validateUpdateRequest(req *services.UpdateFolderRequest) error {
	if req.Name == nil && req.Description == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.NilOrNotEmpty,
			validation.By(notBlank),
			validation.Length(1, config.MaxFolderNameLength),
		),
		validation.Field(&req.Description,
			validation.Length(0, config.MaxFolderDescriptionLength),
		),
	)
}

func notBlank(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("cannot be blank")
	}
	return nil
}
