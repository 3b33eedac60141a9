// Package memory is an in-process metadata store. It backs the "memory"
// metadata driver and the service tests. Descendant closures are computed by
// a breadth-first walk over a parent -> children adjacency index.
package memory

import (
	"context"
	"sync"
	"time"

	"foldervault/internal/domain/models"
	"foldervault/internal/domain/repositories"
)

// rootKey indexes folders without a parent in the adjacency map.
const rootKey = ""

// Store holds folders and files in maps guarded by one lock. txMu
// serializes transactions with each other.
type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	folders  map[string]models.Folder
	children map[string]map[string]struct{}
	files    map[string]models.File
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		folders:  make(map[string]models.Folder),
		children: make(map[string]map[string]struct{}),
		files:    make(map[string]models.File),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Folders returns the folder repository view of the store.
func (s *Store) Folders() repositories.FolderRepository {
	return &FolderRepository{store: s}
}

// Files returns the file repository view of the store.
func (s *Store) Files() repositories.FileRepository {
	return &FileRepository{store: s}
}

// TransactionManager returns a transaction manager that undoes the writes
// made through its context when the transaction function fails. Writes made
// outside the transaction in the meantime are left alone.
func (s *Store) TransactionManager() repositories.TransactionManager {
	return &TransactionManager{store: s}
}

// undoLog collects the inverse of every write made inside one ExecTx
type undoLog struct {
	ops []func()
}

type txKey struct{}

// logUndo registers op as the inverse of a write when ctx belongs to a
// transaction. Callers hold s.mu; op runs with s.mu held as well.
func logUndo(ctx context.Context, op func()) {
	if log, ok := ctx.Value(txKey{}).(*undoLog); ok {
		log.ops = append(log.ops, op)
	}
}

// putFolder stores folder and links it under its parent. Callers hold s.mu.
func (s *Store) putFolder(folder models.Folder) {
	s.folders[folder.ID] = folder
	key := parentKey(folder.ParentFolderID)
	if s.children[key] == nil {
		s.children[key] = make(map[string]struct{})
	}
	s.children[key][folder.ID] = struct{}{}
}

// dropFolder removes a folder and unlinks it from its parent. Callers hold s.mu.
func (s *Store) dropFolder(id string) (models.Folder, bool) {
	folder, ok := s.folders[id]
	if !ok {
		return models.Folder{}, false
	}
	delete(s.folders, id)
	if siblings := s.children[parentKey(folder.ParentFolderID)]; siblings != nil {
		delete(siblings, id)
		if len(siblings) == 0 {
			delete(s.children, parentKey(folder.ParentFolderID))
		}
	}
	return folder, true
}

// TransactionManager implements repositories.TransactionManager for the memory store
type TransactionManager struct {
	store *Store
}

// ExecTx runs fn and undoes its writes, newest first, if it returns an
// error. A transaction already in ctx is joined.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		tm.store.mu.Lock()
		for i := len(log.ops) - 1; i >= 0; i-- {
			log.ops[i]()
		}
		tm.store.mu.Unlock()
		return err
	}
	return nil
}

func parentKey(parentID *string) string {
	if parentID == nil {
		return rootKey
	}
	return *parentID
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
