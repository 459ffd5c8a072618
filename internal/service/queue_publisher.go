// Package service provides the RabbitMQ publisher for club events. Errors
// are logged and returned so callers can treat publishing as best effort
// without interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/netplay-club/internal/metrics"
	"github.com/iliyamo/netplay-club/internal/queue"
)

// EventPublisher publishes queue.Event envelopes to the club events queue.
// Each call dials the broker; events are rare (a few per session day).
type EventPublisher struct {
	URL     string
	Log     *slog.Logger
	Metrics *metrics.Metrics
	// Dial is swapped in tests; defaults to amqp.Dial.
	Dial func(url string) (Channeler, error)
}

// Channeler is the slice of an AMQP connection the publisher needs.
type Channeler interface {
	Channel() (Publisher, error)
	Close() error
}

// Publisher is the slice of an AMQP channel the publisher needs.
type Publisher interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) Channel() (Publisher, error) { return c.Connection.Channel() }

func dialAMQP(url string) (Channeler, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

func NewEventPublisher(url string, log *slog.Logger, m *metrics.Metrics) *EventPublisher {
	return &EventPublisher{URL: url, Log: log, Metrics: m, Dial: dialAMQP}
}

// Publish sends ev as a persistent JSON message.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.Event) (err error) {
	defer func() {
		p.Metrics.EventPublished(ev.Type, err)
		if err != nil {
			p.Log.WarnContext(ctx, "rabbitmq: publish failed", slog.String("type", ev.Type), slog.Any("error", err))
		}
	}()

	conn, err := p.Dial(p.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ClubEventsQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", queue.ClubEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, queue.Event) error { return nil }
