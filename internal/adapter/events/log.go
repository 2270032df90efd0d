package events

import (
	"context"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// LogPublisher writes ledger events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger.WithField("component", "events")}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.LedgerEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event":           event.Type,
		"entry_id":        event.EntryID,
		"changed_entries": event.ChangedEntries,
		"current_balance": event.CurrentBalance.String(),
	}).Info("ledger event")
	return nil
}
