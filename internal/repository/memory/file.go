package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
)

// FileRepository implements repositories.FileRepository over a Store
type FileRepository struct {
	store *Store
}

// Create inserts a file record; an owning folder that no longer exists is
// reported as ErrNotFound, mirroring the foreign key of the SQL stores
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if file.FolderID != nil {
		if _, ok := r.store.folders[*file.FolderID]; !ok {
			return fmt.Errorf("folder %s: %w", *file.FolderID, domain.ErrNotFound)
		}
	}

	now := r.store.now()
	file.ID = uuid.NewString()
	file.CreatedAt = now
	file.UpdatedAt = now

	stored := *file
	stored.FolderID = cloneString(file.FolderID)
	r.store.files[file.ID] = stored

	id := file.ID
	logUndo(ctx, func() { delete(r.store.files, id) })
	return nil
}

// GetByID retrieves a file by ID
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	file, ok := r.store.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return &file, nil
}

// Delete removes a single file record
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	file, ok := r.store.files[id]
	if !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.files, id)

	logUndo(ctx, func() { r.store.files[id] = file })
	return nil
}

// DeleteByFolders removes every file owned by one of folderIDs
func (r *FileRepository) DeleteByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	owners := make(map[string]struct{}, len(folderIDs))
	for _, id := range folderIDs {
		owners[id] = struct{}{}
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for id, file := range r.store.files {
		if file.FolderID == nil {
			continue
		}
		if _, ok := owners[*file.FolderID]; ok {
			delete(r.store.files, id)
			logUndo(ctx, func() { r.store.files[id] = file })
			deleted++
		}
	}
	return deleted, nil
}

// ListByFolder lists files directly inside a folder ordered by creation time
func (r *FileRepository) ListByFolder(ctx context.Context, folderID *string) ([]models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	files := make([]models.File, 0)
	for _, file := range r.store.files {
		if parentKey(file.FolderID) == parentKey(folderID) {
			files = append(files, file)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if c := files[i].CreatedAt.Compare(files[j].CreatedAt); c != 0 {
			return c < 0
		}
		return files[i].ID < files[j].ID
	})
	return files, nil
}

// Count returns the number of file records
func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.files)), nil
}
