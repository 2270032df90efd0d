package ledger

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	// RecentLimit caps ListRecent.
	RecentLimit = 50

	defaultPageLimit = 10
	maxPageLimit     = 100
)

// CreateEntryInput represents the input for recording an entry
type CreateEntryInput struct {
	Amount     decimal.Decimal
	Kind       domain.Kind
	Category   domain.Category // empty means "other"
	Note       string
	OccurredAt *time.Time // Optional: defaults to now
}

// UpdateEntryInput carries a partial update; nil fields are left untouched.
type UpdateEntryInput struct {
	Amount     *decimal.Decimal
	Kind       *domain.Kind
	Category   *domain.Category
	Note       *string
	OccurredAt *time.Time
}

func (in UpdateEntryInput) empty() bool {
	return in.Amount == nil && in.Kind == nil && in.Category == nil && in.Note == nil && in.OccurredAt == nil
}

func (in UpdateEntryInput) apply(e *domain.Entry) {
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Kind != nil {
		e.Kind = *in.Kind
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.Note != nil {
		e.Note = *in.Note
	}
	if in.OccurredAt != nil {
		e.OccurredAt = *in.OccurredAt
	}
}

// balanceAffected reports whether moving from before to after can change any running balance.
func balanceAffected(before, after *domain.Entry) bool {
	return !before.Amount.Equal(after.Amount) ||
		before.Kind != after.Kind ||
		!before.OccurredAt.Equal(after.OccurredAt)
}

// recomputeResult is the ledger state observed at the end of a mutation.
type recomputeResult struct {
	entries        []*domain.Entry // ledger order, balances recomputed
	changed        int
	currentBalance decimal.Decimal
}

func (r recomputeResult) find(id uuid.UUID) *domain.Entry {
	for _, e := range r.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// LedgerService is the single writer of the ledger. Every mutation runs under
// the write lock and inside one storage transaction that also recomputes and
// persists all running balances.
type LedgerService struct {
	Store     domain.EntryStore
	Locker    domain.WriteLocker
	Publisher domain.EventPublisher
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// NewLedgerService creates a new LedgerService instance.
// A nil publisher disables events and a nil logger discards output.
func NewLedgerService(
	store domain.EntryStore,
	locker domain.WriteLocker,
	publisher domain.EventPublisher,
	logger logrus.FieldLogger,
) *LedgerService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &LedgerService{
		Store:     store,
		Locker:    locker,
		Publisher: publisher,
		Logger:    logger.WithField("component", "ledger"),
		Now:       time.Now,
	}
}

// CreateEntry records a new entry and recomputes every running balance.
func (s *LedgerService) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	occurredAt := s.Now()
	if input.OccurredAt != nil {
		occurredAt = *input.OccurredAt
	}
	category := input.Category
	if category == "" {
		category = domain.CategoryOther
	}

	entry := &domain.Entry{
		Amount:     input.Amount,
		Kind:       input.Kind,
		Category:   category,
		Note:       input.Note,
		OccurredAt: occurredAt,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	var (
		created *domain.Entry
		result  recomputeResult
	)
	err := s.mutate(ctx, "create", func(ctx context.Context, repo domain.EntryRepository) error {
		id, err := repo.Save(ctx, entry)
		if err != nil {
			return err
		}

		result, err = s.recompute(ctx, repo)
		if err != nil {
			return err
		}

		created = result.find(id)
		if created == nil {
			return domain.NewStorageError("reload created entry", domain.NotFound(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEntryCreated, created.ID, created.OccurredAt, result)
	return created, nil
}

// UpdateEntry applies a partial update. Balances are recomputed only when the
// amount, kind or date actually changed.
func (s *LedgerService) UpdateEntry(ctx context.Context, id uuid.UUID, input UpdateEntryInput) (*domain.Entry, error) {
	if input.empty() {
		return s.GetEntry(ctx, id)
	}

	var (
		updated *domain.Entry
		result  recomputeResult
	)
	err := s.mutate(ctx, "update", func(ctx context.Context, repo domain.EntryRepository) error {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		input.apply(next)
		if err := next.Validate(); err != nil {
			return err
		}

		if _, err := repo.Save(ctx, next); err != nil {
			return err
		}

		if !balanceAffected(current, next) {
			updated = next
			result, err = latest(ctx, repo)
			return err
		}

		result, err = s.recompute(ctx, repo)
		if err != nil {
			return err
		}
		updated = result.find(id)
		if updated == nil {
			return domain.NewStorageError("reload updated entry", domain.NotFound(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventEntryUpdated, updated.ID, updated.OccurredAt, result)
	return updated, nil
}

// DeleteEntry removes an entry and recomputes the remaining ledger.
func (s *LedgerService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	var (
		deleted *domain.Entry
		result  recomputeResult
	)
	err := s.mutate(ctx, "delete", func(ctx context.Context, repo domain.EntryRepository) error {
		existing, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		deleted = existing

		if err := repo.Delete(ctx, id); err != nil {
			return err
		}

		result, err = s.recompute(ctx, repo)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.EventEntryDeleted, deleted.ID, deleted.OccurredAt, result)
	return nil
}

// RecomputeBalances rebuilds every running balance from scratch and returns
// how many entries had a stale balance. Running it twice in a row is a no-op
// the second time.
func (s *LedgerService) RecomputeBalances(ctx context.Context) (int, error) {
	var result recomputeResult
	err := s.mutate(ctx, "recompute", func(ctx context.Context, repo domain.EntryRepository) error {
		var err error
		result, err = s.recompute(ctx, repo)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, domain.EventBalancesRecomputed, uuid.Nil, time.Time{}, result)
	return result.changed, nil
}

// CurrentBalance returns the balance of the chronologically last entry, or zero
// for an empty ledger.
func (s *LedgerService) CurrentBalance(ctx context.Context) (decimal.Decimal, error) {
	result, err := latest(ctx, s.Store)
	if err != nil {
		return decimal.Zero, err
	}
	return result.currentBalance, nil
}

// GetEntry retrieves a single entry
func (s *LedgerService) GetEntry(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	return s.Store.Get(ctx, id)
}

// ListRecent returns the most recent entries by date, newest first
func (s *LedgerService) ListRecent(ctx context.Context) ([]*domain.Entry, error) {
	return s.Store.FindAll(ctx, domain.SortDescending, RecentLimit)
}

// ListPage returns one page of entries, newest first. page < 1 is treated as 1,
// limit defaults to 10 and is clamped to [1, 100].
func (s *LedgerService) ListPage(ctx context.Context, page, limit int) (*domain.EntryPage, error) {
	switch {
	case limit == 0:
		limit = defaultPageLimit
	case limit < 1:
		limit = 1
	case limit > maxPageLimit:
		limit = maxPageLimit
	}
	if page < 1 {
		page = 1
	}

	total, err := s.Store.Count(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.Store.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &domain.EntryPage{
		Items:        items,
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
		TotalRecords: total,
	}, nil
}

func (s *LedgerService) mutate(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, repo domain.EntryRepository) error,
) error {
	release, err := s.Locker.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	err = s.Store.WithinTx(ctx, fn)

	log := s.Logger.WithFields(logrus.Fields{
		"op":          op,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Debug("ledger mutation rolled back")
		return err
	}
	log.Debug("ledger mutation committed")
	return nil
}

// recompute loads the whole ledger, folds the running balance over it and
// persists every entry whose stored balance was stale.
func (s *LedgerService) recompute(ctx context.Context, repo domain.EntryRepository) (recomputeResult, error) {
	stored, err := repo.FindAll(ctx, domain.SortAscending, 0)
	if err != nil {
		return recomputeResult{}, err
	}

	entries := Recompute(stored)
	changed := Changed(stored, entries)
	if len(changed) > 0 {
		if err := repo.SaveBatch(ctx, changed); err != nil {
			return recomputeResult{}, err
		}
	}

	result := recomputeResult{entries: entries, changed: len(changed)}
	if n := len(entries); n > 0 {
		result.currentBalance = entries[n-1].Balance
	}
	return result, nil
}

func latest(ctx context.Context, repo domain.EntryReader) (recomputeResult, error) {
	last, err := repo.FindAll(ctx, domain.SortDescending, 1)
	if err != nil {
		return recomputeResult{}, err
	}
	if len(last) == 0 {
		return recomputeResult{}, nil
	}
	return recomputeResult{currentBalance: last[0].Balance}, nil
}

func (s *LedgerService) publish(ctx context.Context, eventType domain.EventType, id uuid.UUID, occurredAt time.Time, result recomputeResult) {
	event := domain.LedgerEvent{
		Type:           eventType,
		EntryID:        id,
		OccurredAt:     occurredAt,
		ChangedEntries: result.changed,
		CurrentBalance: result.currentBalance,
		EmittedAt:      s.Now(),
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.WithFields(logrus.Fields{
			"event":    eventType,
			"entry_id": id,
		}).WithError(err).Warn("failed to publish ledger event")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }
