// Package memory keeps the ledger in process memory. It backs local runs and
// tests and honours the same ordering and transaction rules as the SQL stores.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
)

// EntryRepository implements domain.EntryStore
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]domain.Entry

	txMu sync.Mutex
	now  func() time.Time
}

// NewEntryRepository creates an empty in-memory entry repository
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		entries: make(map[uuid.UUID]domain.Entry),
		now:     time.Now,
	}
}

// Save inserts or overwrites an entry
func (r *EntryRepository) Save(ctx context.Context, entry *domain.Entry) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, domain.NewStorageError("save entry", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, domain.NewStorageError("generate entry id", err)
		}
		entry.ID = id
		entry.CreatedAt = now
	} else {
		existing, ok := r.entries[entry.ID]
		if !ok {
			return uuid.Nil, domain.NotFound(entry.ID)
		}
		entry.CreatedAt = existing.CreatedAt
	}
	entry.UpdatedAt = now

	r.entries[entry.ID] = *entry
	return entry.ID, nil
}

// Get retrieves an entry by its ID
func (r *EntryRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("get entry", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NotFound(id)
	}
	return &e, nil
}

// Delete removes an entry by its ID
func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("delete entry", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return domain.NotFound(id)
	}
	delete(r.entries, id)
	return nil
}

// FindInRange returns entries with start <= OccurredAt < end
func (r *EntryRepository) FindInRange(ctx context.Context, start, end time.Time, order domain.SortOrder) ([]*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("find entries in range", err)
	}

	return r.collect(order, 0, func(e *domain.Entry) bool {
		return !e.OccurredAt.Before(start) && e.OccurredAt.Before(end)
	}), nil
}

// FindAll returns every entry, optionally limited
func (r *EntryRepository) FindAll(ctx context.Context, order domain.SortOrder, limit int) ([]*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("find entries", err)
	}

	return r.collect(order, limit, nil), nil
}

// SaveBatch persists the balance of existing entries
func (r *EntryRepository) SaveBatch(ctx context.Context, entries []*domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("save entry batch", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		if _, ok := r.entries[e.ID]; !ok {
			return domain.NewStorageError("save entry batch", fmt.Errorf("entry %s does not exist", e.ID))
		}
	}

	now := r.now()
	for _, e := range entries {
		stored := r.entries[e.ID]
		stored.Balance = e.Balance
		stored.UpdatedAt = now
		r.entries[e.ID] = stored
	}
	return nil
}

// List returns a page of entries ordered by OccurredAt descending
func (r *EntryRepository) List(ctx context.Context, limit, offset int) ([]*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("list entries", err)
	}

	all := r.collect(domain.SortDescending, 0, nil)
	if offset >= len(all) {
		return []*domain.Entry{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Count returns the total number of entries
func (r *EntryRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStorageError("count entries", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// WithinTx runs fn against a private copy of the ledger and publishes the copy
// only when fn succeeds. Transactions are serialized against each other.
func (r *EntryRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo domain.EntryRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[uuid.UUID]domain.Entry, len(r.entries))
	for id, e := range r.entries {
		snapshot[id] = e
	}
	r.mu.RUnlock()

	tx := &EntryRepository{entries: snapshot, now: r.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	r.entries = tx.entries
	r.mu.Unlock()
	return nil
}

func (r *EntryRepository) collect(order domain.SortOrder, limit int, keep func(*domain.Entry) bool) []*domain.Entry {
	r.mu.RLock()
	out := make([]*domain.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		e := e
		if keep == nil || keep(&e) {
			out = append(out, &e)
		}
	}
	r.mu.RUnlock()

	domain.SortChronologically(out)
	if order == domain.SortDescending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
