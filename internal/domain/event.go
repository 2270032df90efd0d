package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a committed ledger change.
type EventType string

const (
	EventEntryCreated       EventType = "entry.created"
	EventEntryUpdated       EventType = "entry.updated"
	EventEntryDeleted       EventType = "entry.deleted"
	EventBalancesRecomputed EventType = "balances.recomputed"
)

// LedgerEvent is emitted after a mutation commits.
type LedgerEvent struct {
	Type           EventType       `json:"type"`
	EntryID        uuid.UUID       `json:"entry_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	ChangedEntries int             `json:"changed_entries"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	EmittedAt      time.Time       `json:"emitted_at"`
}

// EventPublisher delivers ledger events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}
