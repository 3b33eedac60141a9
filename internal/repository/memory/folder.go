package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

// FolderRepository implements repositories.FolderRepository over a Store
type FolderRepository struct {
	store *Store
}

// Create inserts a folder; a missing parent is reported as ErrNotFound
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if folder.ParentFolderID != nil {
		if _, ok := r.store.folders[*folder.ParentFolderID]; !ok {
			return fmt.Errorf("parent folder %s: %w", *folder.ParentFolderID, domain.ErrNotFound)
		}
	}

	now := r.store.now()
	folder.ID = uuid.NewString()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	stored := *folder
	stored.Description = cloneString(folder.Description)
	stored.ParentFolderID = cloneString(folder.ParentFolderID)
	r.store.putFolder(stored)

	id := folder.ID
	logUndo(ctx, func() { r.store.dropFolder(id) })

	return nil
}

// GetByID retrieves a folder by ID
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	folder, ok := r.store.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return &folder, nil
}

// SetPath stores the materialized path of a folder
func (r *FolderRepository) SetPath(ctx context.Context, id, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	folder, ok := r.store.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	prevPath, prevUpdated := folder.Path, folder.UpdatedAt
	folder.Path = path
	folder.UpdatedAt = r.store.now()
	r.store.folders[id] = folder

	logUndo(ctx, func() {
		if f, ok := r.store.folders[id]; ok {
			f.Path, f.UpdatedAt = prevPath, prevUpdated
			r.store.folders[id] = f
		}
	})
	return nil
}

// Update persists name and description
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	prev := stored
	stored.Name = folder.Name
	stored.Description = cloneString(folder.Description)
	stored.UpdatedAt = folder.UpdatedAt
	r.store.folders[folder.ID] = stored

	logUndo(ctx, func() {
		if f, ok := r.store.folders[prev.ID]; ok {
			f.Name, f.Description, f.UpdatedAt = prev.Name, prev.Description, prev.UpdatedAt
			r.store.folders[prev.ID] = f
		}
	})
	return nil
}

// Delete removes a single folder
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	n, err := r.DeleteMany(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteMany removes every listed folder that exists
func (r *FolderRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		folder, ok := r.store.dropFolder(id)
		if !ok {
			continue
		}
		logUndo(ctx, func() { r.store.putFolder(folder) })
		deleted++
	}
	return deleted, nil
}

// DescendantIDs walks the adjacency index breadth-first starting at id
func (r *FolderRepository) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if _, ok := r.store.folders[id]; !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	ids := []string{id}
	seen := map[string]struct{}{id: {}}
	for i := 0; i < len(ids); i++ {
		for child := range r.store.children[ids[i]] {
			if _, dup := seen[child]; dup {
				continue
			}
			seen[child] = struct{}{}
			ids = append(ids, child)
		}
	}
	return ids, nil
}

// ListChildren lists immediate child folders ordered by creation time
func (r *FolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	folders := make([]models.Folder, 0, len(r.store.children[parentKey(parentID)]))
	for id := range r.store.children[parentKey(parentID)] {
		folders = append(folders, r.store.folders[id])
	}
	sortFolders(folders, repositories.SortByCreatedAt, false)
	return folders, nil
}

// ListRoots filters, sorts and pages root folders
func (r *FolderRepository) ListRoots(ctx context.Context, filter *repositories.FolderFilter) ([]models.Folder, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.store.mu.RLock()
	matched := make([]models.Folder, 0)
	for id := range r.store.children[rootKey] {
		folder := r.store.folders[id]
		if !containsFold(folder.Name, filter.Name) {
			continue
		}
		if filter.Description != "" {
			if folder.Description == nil || !containsFold(*folder.Description, filter.Description) {
				continue
			}
		}
		matched = append(matched, folder)
	}
	r.store.mu.RUnlock()

	sortFolders(matched, filter.SortField, filter.SortDesc)

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

// Count returns the number of folders
func (r *FolderRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.folders)), nil
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortFolders orders folders by field with the id as tiebreaker so pages are stable.
func sortFolders(folders []models.Folder, field string, desc bool) {
	sort.SliceStable(folders, func(i, j int) bool {
		a, b := folders[i], folders[j]
		var cmp int
		switch field {
		case repositories.SortByName:
			cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case repositories.SortByUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}
