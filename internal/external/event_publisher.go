package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Routing keys for the topic exchange.
const (
	RouteTransactionCreated = "transaction.created"
	RouteTransactionUpdated = "transaction.updated"
	RouteTransactionDeleted = "transaction.deleted"
	RouteDriftCorrected     = "ledger.drift_corrected"
)

// TransactionEvent announces a ledger mutation to downstream consumers.
type TransactionEvent struct {
	EventID       string    `json:"event_id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	Category      string    `json:"category"`
	Delta         string    `json:"delta"`
	Timestamp     time.Time `json:"timestamp"`
}

// DriftEvent announces a reconciliation correction.
type DriftEvent struct {
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	OldBalance       string    `json:"old_balance"`
	NewBalance       string    `json:"new_balance"`
	Drift            string    `json:"drift"`
	TransactionCount int       `json:"transaction_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// EventPublisher fans ledger events out over RabbitMQ. Publishing is
// best-effort: a broker outage must never fail the ledger operation that
// triggered the event.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, routingKey string, event *TransactionEvent)
	PublishDriftEvent(ctx context.Context, event *DriftEvent)
	Close() error
}

type rabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewEventPublisher(url, exchange string) (EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &rabbitPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

func (p *rabbitPublisher) publish(ctx context.Context, routingKey string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("routing_key", routingKey).
			Error("Failed to marshal event payload")
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(publishCtx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		logrus.WithError(err).WithField("routing_key", routingKey).
			Warn("Failed to publish event")
	}
}

func (p *rabbitPublisher) PublishTransactionEvent(ctx context.Context, routingKey string, event *TransactionEvent) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.publish(ctx, routingKey, event)
}

func (p *rabbitPublisher) PublishDriftEvent(ctx context.Context, event *DriftEvent) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.publish(ctx, RouteDriftCorrected, event)
}

func (p *rabbitPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

// NoopPublisher drops every event. Used when messaging is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionEvent(context.Context, string, *TransactionEvent) {}
func (NoopPublisher) PublishDriftEvent(context.Context, *DriftEvent)                     {}
func (NoopPublisher) Close() error                                                       { return nil }
