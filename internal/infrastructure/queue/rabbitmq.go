package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

const publishTimeout = 5 * time.Second

var errNoConnection = errors.New("rabbitmq: no connection")

// RabbitConfig captures the broker settings.
type RabbitConfig struct {
	URL   string
	Queue string
}

// DialRabbit opens an AMQP connection.
func DialRabbit(cfg RabbitConfig) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	return conn, nil
}

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// RabbitPublisher publishes auth events as JSON to a queue on the default
// exchange. It implements ports.AuthEventSink.
type RabbitPublisher struct {
	mu         sync.Mutex
	connClosed func() bool
	open       func() (amqpChannel, error)
	ch         amqpChannel
	queue      string
}

// NewRabbitPublisher opens a channel and declares the queue (non-durable).
func NewRabbitPublisher(conn *amqp.Connection, queue string) (*RabbitPublisher, error) {
	if conn == nil {
		return nil, errNoConnection
	}
	return newRabbitPublisher(conn.IsClosed, func() (amqpChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}, queue)
}

func newRabbitPublisher(connClosed func() bool, open func() (amqpChannel, error), queue string) (*RabbitPublisher, error) {
	p := &RabbitPublisher{connClosed: connClosed, open: open, queue: queue}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitPublisher) openChannel() error {
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, false, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("rabbitmq declare %s: %w", p.queue, err)
	}
	p.ch = ch
	return nil
}

// Handle publishes one event. A closed channel is reopened once.
func (p *RabbitPublisher) Handle(ctx context.Context, event domain.AuthEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if p.connClosed() {
			return errNoConnection
		}
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Type:        string(event.Type),
		Timestamp:   event.OccurredAt,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close closes the channel. The connection is owned by the caller.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}

// RabbitProbe reports the broker healthy while the connection is open.
func RabbitProbe(conn *amqp.Connection) func(ctx context.Context) error {
	return func(context.Context) error {
		if conn == nil || conn.IsClosed() {
			return errNoConnection
		}
		return nil
	}
}
