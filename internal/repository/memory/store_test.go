package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

func strPtr(s string) *string { return &s }

func mustCreateFolder(t *testing.T, repo repositories.FolderRepository, name string, parent *string) *models.Folder {
	t.Helper()
	folder := &models.Folder{Name: name, ParentFolderID: parent}
	require.NoError(t, repo.Create(context.Background(), folder))
	return folder
}

func TestFolderCreateAssignsIdentity(t *testing.T) {
	store := New()
	repo := store.Folders()

	folder := mustCreateFolder(t, repo, "A", nil)
	assert.NotEmpty(t, folder.ID)
	assert.False(t, folder.CreatedAt.IsZero())

	got, err := repo.GetByID(context.Background(), folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Empty(t, got.Path)
}

func TestFolderCreateMissingParent(t *testing.T) {
	repo := New().Folders()

	err := repo.Create(context.Background(), &models.Folder{Name: "orphan", ParentFolderID: strPtr("nope")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDescendantIDs(t *testing.T) {
	ctx := context.Background()
	repo := New().Folders()

	a := mustCreateFolder(t, repo, "A", nil)
	b := mustCreateFolder(t, repo, "B", &a.ID)
	c := mustCreateFolder(t, repo, "C", &b.ID)
	d := mustCreateFolder(t, repo, "D", &a.ID)
	other := mustCreateFolder(t, repo, "other", nil)

	ids, err := repo.DescendantIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, ids[0], "closure starts with the folder itself")
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID, d.ID}, ids)
	assert.NotContains(t, ids, other.ID)

	leaf, err := repo.DescendantIDs(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, leaf)

	_, err = repo.DescendantIDs(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteManyUnlinksChildren(t *testing.T) {
	ctx := context.Background()
	repo := New().Folders()

	a := mustCreateFolder(t, repo, "A", nil)
	b := mustCreateFolder(t, repo, "B", &a.ID)

	n, err := repo.DeleteMany(ctx, []string{a.ID, b.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	roots, err := repo.ListChildren(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, roots)

	assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrNotFound)
}

func TestListRoots(t *testing.T) {
	ctx := context.Background()
	store := New()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	repo := store.Folders()

	alpha := mustCreateFolder(t, repo, "Alpha", nil)
	beta := mustCreateFolder(t, repo, "beta", nil)
	gamma := mustCreateFolder(t, repo, "Gamma", nil)
	_ = mustCreateFolder(t, repo, "alpha child", &alpha.ID)

	desc := "Quarterly Reports"
	beta.Description = &desc
	require.NoError(t, repo.Update(ctx, beta))

	tests := []struct {
		name      string
		filter    repositories.FolderFilter
		wantIDs   []string
		wantTotal int64
	}{
		{
			name:      "default order is creation ascending",
			filter:    repositories.FolderFilter{Limit: 10},
			wantIDs:   []string{alpha.ID, beta.ID, gamma.ID},
			wantTotal: 3,
		},
		{
			name:      "name descending is case-insensitive",
			filter:    repositories.FolderFilter{SortField: repositories.SortByName, SortDesc: true, Limit: 10},
			wantIDs:   []string{gamma.ID, beta.ID, alpha.ID},
			wantTotal: 3,
		},
		{
			name:      "name filter ignores case",
			filter:    repositories.FolderFilter{Name: "ALP", Limit: 10},
			wantIDs:   []string{alpha.ID},
			wantTotal: 1,
		},
		{
			name:      "description filter",
			filter:    repositories.FolderFilter{Description: "quarterly", Limit: 10},
			wantIDs:   []string{beta.ID},
			wantTotal: 1,
		},
		{
			name:      "second page",
			filter:    repositories.FolderFilter{Offset: 2, Limit: 2},
			wantIDs:   []string{gamma.ID},
			wantTotal: 3,
		},
		{
			name:      "offset past the end",
			filter:    repositories.FolderFilter{Offset: 10, Limit: 2},
			wantIDs:   []string{},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folders, total, err := repo.ListRoots(ctx, &tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			ids := make([]string, 0, len(folders))
			for _, f := range folders {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilesByFolder(t *testing.T) {
	ctx := context.Background()
	store := New()
	folders := store.Folders()
	files := store.Files()

	a := mustCreateFolder(t, folders, "A", nil)
	b := mustCreateFolder(t, folders, "B", &a.ID)

	inA := &models.File{FileName: "1_a.txt", FolderID: &a.ID, Path: a.ID}
	inB := &models.File{FileName: "2_b.txt", FolderID: &b.ID, Path: a.ID + "/" + b.ID}
	atRoot := &models.File{FileName: "3_root.txt"}
	for _, f := range []*models.File{inA, inB, atRoot} {
		require.NoError(t, files.Create(ctx, f))
	}

	rootFiles, err := files.ListByFolder(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rootFiles, 1)
	assert.Equal(t, atRoot.ID, rootFiles[0].ID)

	n, err := files.DeleteByFolders(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := files.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = files.Create(ctx, &models.File{FileName: "late.txt", FolderID: strPtr("gone")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := New()
	repo := store.Folders()
	tm := store.TransactionManager()

	kept := mustCreateFolder(t, repo, "kept", nil)

	boom := errors.New("boom")
	err := tm.ExecTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, &models.Folder{Name: "discarded"}); err != nil {
			return err
		}
		if _, err := repo.DeleteMany(ctx, []string{kept.ID}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	roots, err := repo.ListChildren(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, kept.ID, roots[0].ID)

	require.NoError(t, tm.ExecTx(ctx, func(ctx context.Context) error {
		return repo.Create(ctx, &models.Folder{Name: "committed"})
	}))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTransactionRollbackKeepsOutsideWrites(t *testing.T) {
	ctx := context.Background()
	store := New()
	folders := store.Folders()
	files := store.Files()
	tm := store.TransactionManager()

	doomed := &models.File{FileName: "1_a.txt", OriginalName: "a.txt", MimeType: "text/plain"}
	require.NoError(t, files.Create(ctx, doomed))

	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("mkdir failed")
	done := make(chan error, 1)
	go func() {
		done <- tm.ExecTx(ctx, func(ctx context.Context) error {
			folder := &models.Folder{Name: "pending"}
			if err := folders.Create(ctx, folder); err != nil {
				return err
			}
			if err := folders.SetPath(ctx, folder.ID, folder.ID); err != nil {
				return err
			}
			close(started)
			<-release
			return boom
		})
	}()

	<-started
	require.NoError(t, files.Delete(ctx, doomed.ID))
	uploaded := &models.File{FileName: "2_b.txt", OriginalName: "b.txt", MimeType: "text/plain"}
	require.NoError(t, files.Create(ctx, uploaded))
	close(release)
	assert.ErrorIs(t, <-done, boom)

	_, err := files.GetByID(ctx, doomed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = files.GetByID(ctx, uploaded.ID)
	assert.NoError(t, err)

	count, err := folders.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := New()
	repo := store.Folders()
	tm := store.TransactionManager()

	boom := errors.New("boom")
	err := tm.ExecTx(ctx, func(ctx context.Context) error {
		if err := tm.ExecTx(ctx, func(ctx context.Context) error {
			return repo.Create(ctx, &models.Folder{Name: "inner"})
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
