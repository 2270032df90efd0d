package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
)

// SeedEntry is one element of a seed file
type SeedEntry struct {
	Amount     decimal.Decimal `json:"amount"`
	Kind       domain.Kind     `json:"kind"`
	Category   domain.Category `json:"category"`
	Note       string          `json:"note"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EntryCreator records entries through the ledger
type EntryCreator interface {
	CreateEntry(ctx context.Context, input ledger.CreateEntryInput) (*domain.Entry, error)
}

// EntryCounter reports how many entries the ledger holds
type EntryCounter interface {
	Count(ctx context.Context) (int, error)
}

// EntrySeeder imports a JSON array of entries into an empty ledger
type EntrySeeder struct {
	ledger  EntryCreator
	counter EntryCounter
}

// NewEntrySeeder creates a new EntrySeeder instance
func NewEntrySeeder(ledger EntryCreator, counter EntryCounter) *EntrySeeder {
	return &EntrySeeder{
		ledger:  ledger,
		counter: counter,
	}
}

// SeedFile imports the entries in path. See Seed.
func (s *EntrySeeder) SeedFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	return s.Seed(ctx, f)
}

// Seed imports every entry read from r and returns how many were created.
// A ledger that already holds entries is left untouched.
// Entries go through the ledger service one by one, so running balances are
// consistent after every step. The file is decoded and every entry validated
// before the first write; a storage failure after that leaves the entries
// created so far in place, and the returned count says how many.
func (s *EntrySeeder) Seed(ctx context.Context, r io.Reader) (int, error) {
	// 1. Only seed an empty ledger
	n, err := s.counter.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	// 2. Decode and validate the whole file before writing anything
	var entries []SeedEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("failed to decode seed entries: %w", err)
	}
	for i, e := range entries {
		if err := e.validate(); err != nil {
			return 0, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}

	// 3. Create each entry
	for i, e := range entries {
		occurredAt := e.OccurredAt
		_, err := s.ledger.CreateEntry(ctx, ledger.CreateEntryInput{
			Amount:     e.Amount,
			Kind:       e.Kind,
			Category:   e.Category,
			Note:       e.Note,
			OccurredAt: &occurredAt,
		})
		if err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}

	return len(entries), nil
}

func (e SeedEntry) validate() error {
	category := e.Category
	if category == "" {
		category = domain.CategoryOther
	}
	entry := domain.Entry{
		Amount:     e.Amount,
		Kind:       e.Kind,
		Category:   category,
		Note:       e.Note,
		OccurredAt: e.OccurredAt,
	}
	return entry.Validate()
}
