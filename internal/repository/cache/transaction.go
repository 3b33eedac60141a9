package cache

import (
	"context"
	"sync"

	"foldervault/internal/domain/repositories"
)

type pendingKey struct{}

// pending collects the folder ids written inside one transaction
type pending struct {
	mu  sync.Mutex
	ids []string
}

func (p *pending) add(ids []string) {
	p.mu.Lock()
	p.ids = append(p.ids, ids...)
	p.mu.Unlock()
}

func (p *pending) drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.ids
	p.ids = nil
	return ids
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(pendingKey{}).(*pending)
	return ok
}

// TransactionManager wraps a transaction manager so folders written inside a
// transaction are evicted from the cache after it commits or rolls back
type TransactionManager struct {
	next    repositories.TransactionManager
	folders *FolderRepository
}

// NewTransactionManager pairs next with the cached folder repository its
// transactions write through
func NewTransactionManager(next repositories.TransactionManager, folders *FolderRepository) *TransactionManager {
	return &TransactionManager{next: next, folders: folders}
}

// ExecTx runs fn in a transaction of the wrapped manager. Nested calls join
// the outer transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if inTx(ctx) {
		return tm.next.ExecTx(ctx, fn)
	}

	p := &pending{}
	err := tm.next.ExecTx(context.WithValue(ctx, pendingKey{}, p), fn)
	if ids := p.drain(); len(ids) > 0 {
		tm.folders.invalidate(ids...)
	}
	return err
}
