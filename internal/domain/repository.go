package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SortOrder selects the direction entries are returned in.
// Both directions order by OccurredAt and then by ID.
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// EntryReader defines the read side of entry persistence
type EntryReader interface {
	// FindInRange returns entries with start <= OccurredAt < end
	FindInRange(ctx context.Context, start, end time.Time, order SortOrder) ([]*Entry, error)

	// FindAll returns every entry; limit <= 0 means no limit
	FindAll(ctx context.Context, order SortOrder, limit int) ([]*Entry, error)
}

// EntryRepository defines the interface for entry persistence operations
type EntryRepository interface {
	EntryReader

	// Save inserts the entry when its ID is nil, assigning a new ID,
	// and otherwise overwrites every mutable field of the stored row.
	Save(ctx context.Context, entry *Entry) (uuid.UUID, error)

	// Get retrieves an entry by its ID
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Delete removes an entry by its ID
	Delete(ctx context.Context, id uuid.UUID) error

	// SaveBatch persists the computed balance of existing entries
	SaveBatch(ctx context.Context, entries []*Entry) error

	// List returns a page of entries ordered by OccurredAt descending
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries
	Count(ctx context.Context) (int, error)
}

// Transactor runs fn against a repository bound to a single storage transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo EntryRepository) error) error
}

// EntryStore is a repository that can also open transactions.
type EntryStore interface {
	EntryRepository
	Transactor
}

// WriteLocker serializes ledger mutations.
type WriteLocker interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context) (release func(), err error)
}
