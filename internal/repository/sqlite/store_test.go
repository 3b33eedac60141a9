package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foldervault/internal/domain"
	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

func strPtr(s string) *string { return &s }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "meta", "vault.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	return store
}

func mustCreateFolder(t *testing.T, repo repositories.FolderRepository, name string, parent *string) *models.Folder {
	t.Helper()
	folder := &models.Folder{Name: name, ParentFolderID: parent}
	require.NoError(t, repo.Create(context.Background(), folder))
	return folder
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestDSNAppendsPragmas(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn("a.db?mode=rwc"))
}

func TestFolderCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	repo := store.Folders()

	folder := mustCreateFolder(t, repo, "A", nil)
	assert.NotEmpty(t, folder.ID)
	assert.False(t, folder.CreatedAt.IsZero())

	require.NoError(t, repo.SetPath(ctx, folder.ID, folder.ID))

	got, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, folder.ID, got.Path)
	assert.Nil(t, got.ParentFolderID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.SetPath(ctx, "missing", "x"), domain.ErrNotFound)
}

func TestFolderCreateMissingParent(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Folders()

	err := repo.Create(ctx, &models.Folder{Name: "orphan", ParentFolderID: strPtr("nope")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFolderUpdate(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Folders()

	folder := mustCreateFolder(t, repo, "A", nil)
	folder.Name = "renamed"
	folder.Description = strPtr("notes")
	require.NoError(t, repo.Update(ctx, folder))

	got, err := repo.GetByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, "notes", *got.Description)

	assert.ErrorIs(t, repo.Update(ctx, &models.Folder{ID: "missing", Name: "x"}), domain.ErrNotFound)
}

func TestDescendantIDs(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Folders()

	a := mustCreateFolder(t, repo, "A", nil)
	b := mustCreateFolder(t, repo, "B", &a.ID)
	c := mustCreateFolder(t, repo, "C", &b.ID)
	d := mustCreateFolder(t, repo, "D", &a.ID)
	mustCreateFolder(t, repo, "other", nil)

	ids, err := repo.DescendantIDs(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, ids, 4)
	assert.Equal(t, a.ID, ids[0])
	assert.ElementsMatch(t, []string{b.ID, d.ID}, ids[1:3])
	assert.Equal(t, c.ID, ids[3])

	_, err = repo.DescendantIDs(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteParentWithChildrenRejected(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Folders()

	a := mustCreateFolder(t, repo, "A", nil)
	mustCreateFolder(t, repo, "B", &a.ID)

	assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrValidation)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), domain.ErrNotFound)
}

func TestSubtreeDeleteInTransaction(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	folders := store.Folders()
	files := store.Files()

	a := mustCreateFolder(t, folders, "A", nil)
	b := mustCreateFolder(t, folders, "B", &a.ID)
	keep := mustCreateFolder(t, folders, "keep", nil)

	require.NoError(t, files.Create(ctx, &models.File{
		FileName: "1_report.pdf", OriginalName: "report.pdf", FolderID: &b.ID,
		Path: a.ID + "/" + b.ID, MimeType: "application/pdf", Size: 10,
	}))
	require.NoError(t, files.Create(ctx, &models.File{
		FileName: "2_keep.txt", OriginalName: "keep.txt", FolderID: &keep.ID,
		Path: keep.ID, MimeType: "text/plain", Size: 1,
	}))

	err := store.TransactionManager().ExecTx(ctx, func(txCtx context.Context) error {
		ids, err := folders.DescendantIDs(txCtx, a.ID)
		if err != nil {
			return err
		}
		if _, err := files.DeleteByFolders(txCtx, ids); err != nil {
			return err
		}
		removed, err := folders.DeleteMany(txCtx, ids)
		if err != nil {
			return err
		}
		assert.EqualValues(t, 2, removed)
		return nil
	})
	require.NoError(t, err)

	folderCount, err := folders.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, folderCount)

	fileCount, err := files.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fileCount)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	folders := store.Folders()

	boom := errors.New("boom")
	err := store.TransactionManager().ExecTx(ctx, func(txCtx context.Context) error {
		folder := &models.Folder{Name: "temp"}
		if err := folders.Create(txCtx, folder); err != nil {
			return err
		}
		if err := folders.SetPath(txCtx, folder.ID, folder.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := folders.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListRootsFilterSortAndPage(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Folders()

	gamma := mustCreateFolder(t, repo, "gamma", nil)
	mustCreateFolder(t, repo, "Beta", nil)
	mustCreateFolder(t, repo, "alpha", nil)
	mustCreateFolder(t, repo, "100%_done", nil)
	mustCreateFolder(t, repo, "child", &gamma.ID)

	folders, total, err := repo.ListRoots(ctx, &repositories.FolderFilter{
		SortField: repositories.SortByName,
		Limit:     2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, folders, 2)
	assert.Equal(t, "100%_done", folders[0].Name)
	assert.Equal(t, "alpha", folders[1].Name)

	folders, total, err = repo.ListRoots(ctx, &repositories.FolderFilter{
		SortField: repositories.SortByName,
		SortDesc:  true,
		Offset:    1,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, folders, 3)
	assert.Equal(t, "Beta", folders[0].Name)

	folders, total, err = repo.ListRoots(ctx, &repositories.FolderFilter{Name: "BET", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, folders, 1)
	assert.Equal(t, "Beta", folders[0].Name)

	// Wildcards in the filter match literally
	folders, _, err = repo.ListRoots(ctx, &repositories.FolderFilter{Name: "%_", Limit: 10})
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "100%_done", folders[0].Name)
}

func TestListChildren(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Folders()

	a := mustCreateFolder(t, repo, "A", nil)
	b := mustCreateFolder(t, repo, "B", &a.ID)
	c := mustCreateFolder(t, repo, "C", &a.ID)

	children, err := repo.ListChildren(ctx, &a.ID)
	require.NoError(t, err)
	var ids []string
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	assert.ElementsMatch(t, []string{b.ID, c.ID}, ids)

	roots, err := repo.ListChildren(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, a.ID, roots[0].ID)
}

func TestFileCreateAfterFolderDeleted(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	folders := store.Folders()
	files := store.Files()

	a := mustCreateFolder(t, folders, "A", nil)
	require.NoError(t, folders.Delete(ctx, a.ID))

	err := files.Create(ctx, &models.File{
		FileName: "1_x.txt", OriginalName: "x.txt", FolderID: &a.ID,
		Path: a.ID, MimeType: "text/plain", Size: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()
	files := openTestStore(t).Files()

	file := &models.File{
		FileName: "1_root.txt", OriginalName: "root.txt",
		MimeType: "text/plain", Size: 4,
	}
	require.NoError(t, files.Create(ctx, file))
	assert.NotEmpty(t, file.ID)

	got, err := files.GetByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "root.txt", got.OriginalName)
	assert.Nil(t, got.FolderID)

	rootFiles, err := files.ListByFolder(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rootFiles, 1)

	require.NoError(t, files.Delete(ctx, file.ID))
	_, err = files.GetByID(ctx, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, files.Delete(ctx, file.ID), domain.ErrNotFound)
}
