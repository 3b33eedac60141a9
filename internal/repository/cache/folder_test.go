package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
	"foldervault/internal/repository/memory"
)

// countingRepo counts GetByID calls that reach the wrapped store
type countingRepo struct {
	repositories.FolderRepository
	gets int
}

func (c *countingRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	c.gets++
	return c.FolderRepository.GetByID(ctx, id)
}

func newCached(t *testing.T, ttl time.Duration) (*FolderRepository, *countingRepo) {
	t.Helper()
	inner := &countingRepo{FolderRepository: memory.New().Folders()}
	return NewFolderRepository(inner, 16, ttl), inner
}

func TestGetByIDServedFromCache(t *testing.T) {
	ctx := context.Background()
	repo, inner := newCached(t, 0)

	folder := &models.Folder{Name: "A"}
	require.NoError(t, repo.Create(ctx, folder))

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, folder.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Name)
	}
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, repo.Len())
}

func TestCachedFolderIsACopy(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCached(t, 0)

	folder := &models.Folder{Name: "A"}
	require.NoError(t, repo.Create(ctx, folder))

	got, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}

func TestWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	repo, inner := newCached(t, 0)

	folder := &models.Folder{Name: "A"}
	require.NoError(t, repo.Create(ctx, folder))
	_, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)

	folder.Name = "renamed"
	require.NoError(t, repo.Update(ctx, folder))

	got, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, 2, inner.gets)

	_, err = repo.DeleteMany(ctx, []string{folder.ID})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, folder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, repo.Len())
}

func TestMissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	repo, inner := newCached(t, 0)

	for i := 0; i < 2; i++ {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 2, inner.gets)
}

func TestEntriesExpire(t *testing.T) {
	ctx := context.Background()
	repo, inner := newCached(t, 20*time.Millisecond)

	folder := &models.Folder{Name: "A"}
	require.NoError(t, repo.Create(ctx, folder))
	_, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 10*time.Millisecond)

	_, err = repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
}

// laggingRepo serves a stale row, as another connection does until the
// deleting transaction commits
type laggingRepo struct {
	repositories.FolderRepository
	mu    sync.Mutex
	stale *models.Folder
}

func (l *laggingRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	l.mu.Lock()
	stale := l.stale
	l.mu.Unlock()
	if stale != nil && stale.ID == id {
		copied := *stale
		return &copied, nil
	}
	return l.FolderRepository.GetByID(ctx, id)
}

func (l *laggingRepo) setStale(folder *models.Folder) {
	l.mu.Lock()
	l.stale = folder
	l.mu.Unlock()
}

func TestDeleteInTransactionEvictedAfterCommit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	inner := &laggingRepo{FolderRepository: store.Folders()}
	repo := NewFolderRepository(inner, 16, 0)
	tm := NewTransactionManager(store.TransactionManager(), repo)

	folder := &models.Folder{Name: "A"}
	require.NoError(t, repo.Create(ctx, folder))
	_, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)

	committed := *folder
	inner.setStale(&committed)

	require.NoError(t, tm.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.DeleteMany(txCtx, []string{folder.ID}); err != nil {
			return err
		}
		// a reader outside the transaction still sees the row and caches it
		got, err := repo.GetByID(ctx, folder.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Name)
		assert.Equal(t, 1, repo.Len())
		return nil
	}))
	inner.setStale(nil)

	assert.Zero(t, repo.Len())
	_, err = repo.GetByID(ctx, folder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReadsInTransactionBypassCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewFolderRepository(store.Folders(), 16, 0)
	tm := NewTransactionManager(store.TransactionManager(), repo)

	var id string
	boom := errors.New("boom")
	err := tm.ExecTx(ctx, func(txCtx context.Context) error {
		folder := &models.Folder{Name: "uncommitted"}
		if err := repo.Create(txCtx, folder); err != nil {
			return err
		}
		id = folder.ID
		_, err := repo.GetByID(txCtx, id)
		require.NoError(t, err)
		assert.Zero(t, repo.Len())
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// blockingRepo parks the first GetByID until released
type blockingRepo struct {
	repositories.FolderRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := b.FolderRepository.GetByID(ctx, id)
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return folder, err
}

func TestLoadRacingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &blockingRepo{
		FolderRepository: memory.New().Folders(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	repo := NewFolderRepository(inner, 16, 0)

	folder := &models.Folder{Name: "before"}
	require.NoError(t, repo.Create(ctx, folder))

	loaded := make(chan *models.Folder, 1)
	go func() {
		got, err := repo.GetByID(ctx, folder.ID)
		assert.NoError(t, err)
		loaded <- got
	}()

	<-inner.entered
	renamed := *folder
	renamed.Name = "after"
	require.NoError(t, repo.Update(ctx, &renamed))
	close(inner.release)

	assert.Equal(t, "before", (<-loaded).Name)
	assert.Zero(t, repo.Len())

	got, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
}
