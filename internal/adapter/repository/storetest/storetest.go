// Package storetest holds the behaviour every domain.EntryStore must share.
// Each storage adapter runs it against a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/lock"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store that lives for the duration of t.
type Factory func(t *testing.T) domain.EntryStore

// Run executes the shared store tests as subtests of t.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store domain.EntryStore)
	}{
		{"SaveAndGet", testSaveAndGet},
		{"MissingEntries", testMissingEntries},
		{"FindInRangeOrdering", testFindInRangeOrdering},
		{"FindAllLimit", testFindAllLimit},
		{"SaveBatch", testSaveBatch},
		{"ListAndCount", testListAndCount},
		{"WithinTxRollback", testWithinTxRollback},
		{"LedgerScenario", testLedgerScenario},
		{"FarDates", testFarDates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func save(t *testing.T, repo domain.EntryRepository, amount string, kind domain.Kind, at time.Time) *domain.Entry {
	t.Helper()
	e := &domain.Entry{
		Amount:     decimal.RequireFromString(amount),
		Kind:       kind,
		Category:   domain.CategoryOther,
		OccurredAt: at,
	}
	_, err := repo.Save(context.Background(), e)
	require.NoError(t, err)
	return e
}

func testSaveAndGet(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	at := time.Date(2024, 1, 5, 14, 30, 15, 0, time.UTC)

	e := &domain.Entry{
		Amount:     decimal.RequireFromString("1234.56"),
		Kind:       domain.KindExpense,
		Category:   domain.CategoryHealthcare,
		Note:       "dentist",
		OccurredAt: at,
	}
	id, err := store.Save(ctx, e)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, byte(7), id.Version())

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(e.Amount))
	assert.Equal(t, domain.KindExpense, got.Kind)
	assert.Equal(t, domain.CategoryHealthcare, got.Category)
	assert.Equal(t, "dentist", got.Note)
	assert.True(t, got.OccurredAt.Equal(at))
	assert.True(t, got.Balance.IsZero())

	got.Note = "orthodontist"
	got.Amount = decimal.NewFromInt(99)
	_, err = store.Save(ctx, got)
	require.NoError(t, err)

	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "orthodontist", again.Note)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(99)))
}

func testMissingEntries(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	missing := uuid.Must(uuid.NewV7())

	_, err := store.Get(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, missing), domain.ErrNotFound)

	e := &domain.Entry{ID: missing, Amount: decimal.NewFromInt(1), Kind: domain.KindIncome, Category: domain.CategoryOther, OccurredAt: day(2024, 1, 1)}
	_, err = store.Save(ctx, e)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testFindInRangeOrdering(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	start := day(2024, 1, 1)
	end := day(2024, 2, 1)

	save(t, store, "1", domain.KindIncome, start.Add(-time.Second))
	tieA := save(t, store, "2", domain.KindIncome, day(2024, 1, 10))
	tieB := save(t, store, "3", domain.KindIncome, day(2024, 1, 10))
	first := save(t, store, "4", domain.KindIncome, start)
	save(t, store, "5", domain.KindIncome, end)

	asc, err := store.FindInRange(ctx, start, end, domain.SortAscending)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, first.ID, asc[0].ID)
	assert.Equal(t, tieA.ID, asc[1].ID, "equal timestamps are ordered by id")
	assert.Equal(t, tieB.ID, asc[2].ID)

	desc, err := store.FindInRange(ctx, start, end, domain.SortDescending)
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, tieB.ID, desc[0].ID)
	assert.Equal(t, first.ID, desc[2].ID)

	empty, err := store.FindInRange(ctx, day(2020, 1, 1), day(2020, 2, 1), domain.SortAscending)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testFindAllLimit(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		save(t, store, "10", domain.KindIncome, day(2024, 1, i))
	}

	all, err := store.FindAll(ctx, domain.SortAscending, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	last, err := store.FindAll(ctx, domain.SortDescending, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.True(t, last[0].OccurredAt.Equal(day(2024, 1, 4)))
}

func testSaveBatch(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	a := save(t, store, "10", domain.KindIncome, day(2024, 1, 1))
	b := save(t, store, "4", domain.KindExpense, day(2024, 1, 2))

	a.Balance = decimal.NewFromInt(10)
	b.Balance = decimal.NewFromInt(6)
	require.NoError(t, store.SaveBatch(ctx, []*domain.Entry{a, b}))

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(6)))

	ghost := &domain.Entry{ID: uuid.Must(uuid.NewV7()), Balance: decimal.NewFromInt(1)}
	err = store.SaveBatch(ctx, []*domain.Entry{ghost})
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func testListAndCount(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		save(t, store, "1", domain.KindIncome, day(2024, 1, i))
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	page, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].OccurredAt.Equal(day(2024, 1, 3)))
	assert.True(t, page[1].OccurredAt.Equal(day(2024, 1, 2)))

	beyond, err := store.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func testWithinTxRollback(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repo domain.EntryRepository) error {
		save(t, repo, "1", domain.KindIncome, day(2024, 1, 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = store.WithinTx(ctx, func(ctx context.Context, repo domain.EntryRepository) error {
		save(t, repo, "1", domain.KindIncome, day(2024, 1, 1))
		return nil
	})
	require.NoError(t, err)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// testLedgerScenario drives a backdated insert and a delete through the
// ledger service and checks the persisted running balances.
func testLedgerScenario(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	svc := ledger.NewLedgerService(store, lock.NewLocalLocker(), nil, nil)

	create := func(amount int64, kind domain.Kind, at time.Time) *domain.Entry {
		e, err := svc.CreateEntry(ctx, ledger.CreateEntryInput{
			Amount:     decimal.NewFromInt(amount),
			Kind:       kind,
			OccurredAt: &at,
		})
		require.NoError(t, err)
		return e
	}

	salary := create(1000, domain.KindIncome, day(2024, 1, 5))
	create(200, domain.KindExpense, day(2024, 1, 10))
	create(500, domain.KindExpense, day(2024, 1, 1))

	assertBalances(t, store, "-500", "500", "300")

	require.NoError(t, svc.DeleteEntry(ctx, salary.ID))
	assertBalances(t, store, "-500", "-700")

	changed, err := svc.RecomputeBalances(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func testFarDates(t *testing.T, store domain.EntryStore) {
	ctx := context.Background()
	svc := ledger.NewLedgerService(store, lock.NewLocalLocker(), nil, nil)

	create := func(amount int64, kind domain.Kind, at time.Time) (*domain.Entry, error) {
		return svc.CreateEntry(ctx, ledger.CreateEntryInput{
			Amount:     decimal.NewFromInt(amount),
			Kind:       kind,
			OccurredAt: &at,
		})
	}

	dates := []time.Time{
		day(2024, 1, 1),
		day(2300, 1, 1),
		time.Date(1500, 6, 1, 8, 30, 0, 123456000, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC),
	}
	for i, at := range dates {
		kind := domain.KindIncome
		if i%2 == 1 {
			kind = domain.KindExpense
		}
		_, err := create(100*int64(i+1), kind, at)
		require.NoError(t, err)
	}

	// +300 @1500, +100 @2024, -200 @2300, -400 @9999
	assertBalances(t, store, "300", "400", "200", "-200")

	entries, err := store.FindAll(ctx, domain.SortAscending, 0)
	require.NoError(t, err)
	want := []time.Time{dates[2], dates[0], dates[1], dates[3]}
	for i, e := range entries {
		assert.True(t, want[i].Equal(e.OccurredAt), "entry %d: occurred_at %s, want %s", i, e.OccurredAt, want[i])
	}

	inRange, err := store.FindInRange(ctx, day(2300, 1, 1), day(2301, 1, 1), domain.SortAscending)
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.True(t, dates[1].Equal(inRange[0].OccurredAt))

	lastYear, err := store.FindInRange(ctx, day(9999, 1, 1), day(10000, 1, 1), domain.SortAscending)
	require.NoError(t, err)
	require.Len(t, lastYear, 1)
	assert.True(t, dates[3].Equal(lastYear[0].OccurredAt))

	_, err = create(1, domain.KindIncome, day(10000, 1, 1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func assertBalances(t *testing.T, store domain.EntryReader, want ...string) {
	t.Helper()
	entries, err := store.FindAll(context.Background(), domain.SortAscending, 0)
	require.NoError(t, err)
	require.Len(t, entries, len(want))
	for i, e := range entries {
		assert.True(t, decimal.RequireFromString(want[i]).Equal(e.Balance),
			"entry %d: balance %s, want %s", i, e.Balance, want[i])
	}
}
