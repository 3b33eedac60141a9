// Package cache wraps a FolderRepository with an expiring LRU of folder
// lookups. Folder reads dominate uploads and listings; writes invalidate.
//
// A write inside a transaction is invalidated twice: when it is made and
// again once the transaction ends, because other connections keep reading
// the committed row until then. Reads inside a transaction bypass the cache.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
	"foldervault/internal/metrics"
)

// FolderRepository caches GetByID results of the wrapped repository
type FolderRepository struct {
	next  repositories.FolderRepository
	cache *expirable.LRU[string, models.Folder]

	// gen counts invalidations; a load that raced one is not cached
	mu  sync.Mutex
	gen uint64
}

// NewFolderRepository wraps next with a cache of size entries. A ttl of
// zero keeps entries until they are evicted or invalidated.
func NewFolderRepository(next repositories.FolderRepository, size int, ttl time.Duration) *FolderRepository {
	return &FolderRepository{
		next:  next,
		cache: expirable.NewLRU[string, models.Folder](size, nil, ttl),
	}
}

// Len returns the number of cached folders
func (r *FolderRepository) Len() int {
	return r.cache.Len()
}

func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	return r.next.Create(ctx, folder)
}

// GetByID serves a copy from the cache, loading it on a miss
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if inTx(ctx) {
		return r.next.GetByID(ctx, id)
	}

	if folder, ok := r.cache.Get(id); ok {
		metrics.FolderCacheHitsTotal.Inc()
		return &folder, nil
	}
	metrics.FolderCacheMissesTotal.Inc()

	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	folder, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.gen == gen {
		r.cache.Add(id, *folder)
	}
	r.mu.Unlock()
	return folder, nil
}

// invalidate drops ids and fails every load that started before it
func (r *FolderRepository) invalidate(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	for _, id := range ids {
		r.cache.Remove(id)
	}
}

// written invalidates ids now and, inside a transaction, once it ends
func (r *FolderRepository) written(ctx context.Context, ids ...string) {
	r.invalidate(ids...)
	if p, ok := ctx.Value(pendingKey{}).(*pending); ok {
		p.add(ids)
	}
}

func (r *FolderRepository) SetPath(ctx context.Context, id, path string) error {
	r.written(ctx, id)
	defer r.invalidate(id)
	return r.next.SetPath(ctx, id, path)
}

func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	r.written(ctx, folder.ID)
	defer r.invalidate(folder.ID)
	return r.next.Update(ctx, folder)
}

func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	r.written(ctx, id)
	defer r.invalidate(id)
	return r.next.Delete(ctx, id)
}

func (r *FolderRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	r.written(ctx, ids...)
	defer r.invalidate(ids...)
	return r.next.DeleteMany(ctx, ids)
}

func (r *FolderRepository) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	return r.next.DescendantIDs(ctx, id)
}

func (r *FolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	return r.next.ListChildren(ctx, parentID)
}

func (r *FolderRepository) ListRoots(ctx context.Context, filter *repositories.FolderFilter) ([]models.Folder, int64, error) {
	return r.next.ListRoots(ctx, filter)
}

func (r *FolderRepository) Count(ctx context.Context) (int64, error) {
	return r.next.Count(ctx)
}
