package upload

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/storage"
)

// ledger records every storage key and search item id Phase A
// successfully wrote, so a failure anywhere before Phase C can undo
// them. Safe for concurrent append from parallel generated-file uploads.
type ledger struct {
	mu          sync.Mutex
	storageKeys []string
	searchIDs   []string
}

func (l *ledger) recordStorageKey(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.storageKeys = append(l.storageKeys, key)
}

func (l *ledger) recordSearchID(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.searchIDs = append(l.searchIDs, id)
}

func (l *ledger) snapshot() (storageKeys, searchIDs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.storageKeys...), append([]string(nil), l.searchIDs...)
}

// rollback deletes every recorded storage key and search entry,
// continuing past individual failures. It is always run detached in a
// goroutine by the caller; it never returns an error of its own.
func rollback(ctx context.Context, store storage.Storage, idx search.Index, logger *zap.Logger, l *ledger) {
	storageKeys, searchIDs := l.snapshot()

	for _, key := range storageKeys {
		if err := store.DeleteFile(ctx, key); err != nil {
			logger.Error("failed to roll back uploaded storage object", zap.String("key", key), zap.Error(err))
		}
	}
	for _, id := range searchIDs {
		if err := idx.DeleteData(ctx, id); err != nil {
			logger.Error("failed to roll back search index entry", zap.String("item_id", id), zap.Error(err))
		}
	}
}

// backgroundRollback spawns rollback detached from the caller's context,
// since the caller is already returning an error and must not block on
// cleanup. A fresh, un-cancelable context is used so the caller
// cancelling its own request does not abort the rollback.
func backgroundRollback(store storage.Storage, idx search.Index, logger *zap.Logger, l *ledger) {
	go rollback(context.Background(), store, idx, logger, l)
}
