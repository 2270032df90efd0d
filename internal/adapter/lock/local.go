// Package lock provides the write locks that serialize ledger mutations.
package lock

import (
	"context"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
)

// LocalLocker serializes writers inside one process.
type LocalLocker struct {
	sem chan struct{}
}

// NewLocalLocker creates an unlocked LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

// Acquire waits for the lock or for ctx to be done
func (l *LocalLocker) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, domain.NewStorageError("acquire write lock", ctx.Err())
	}
}
