// Package events delivers committed ledger changes to the outside world.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultExchange is the topic exchange ledger events are published to.
	DefaultExchange = "ledger.events"

	publishTimeout = 5 * time.Second
)

// channel is the subset of *amqp091.Channel the publisher uses
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes ledger events to a topic exchange, routed by event type
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       channel
	conn     io.Closer
	exchange string
	logger   logrus.FieldLogger
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(url, exchange string, logger logrus.FieldLogger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newAMQPPublisher(ch, conn, exchange, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(ch channel, conn io.Closer, exchange string, logger logrus.FieldLogger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{
		ch:       ch,
		conn:     conn,
		exchange: exchange,
		logger:   logger.WithField("component", "amqp_publisher"),
	}, nil
}

// Publish sends event with the event type as routing key
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	msg, err := publishing(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,         // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event":    event.Type,
		"entry_id": event.EntryID,
		"exchange": p.exchange,
	}).Debug("published ledger event")
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func publishing(event domain.LedgerEvent) (amqp091.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.EmittedAt,
		Type:         string(event.Type),
		Body:         body,
	}, nil
}
