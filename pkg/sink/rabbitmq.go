package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpPublisher is the subset of *amqp.Channel used by the RabbitMQ sink.
type amqpPublisher interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

// RabbitMQ publishes one persistent JSON message per record. When the
// channel is in confirm mode, Push waits for the broker ack.
type RabbitMQ struct {
	channel    amqpPublisher
	conn       *amqp.Connection
	exchange   string
	routingKey string
	runID      string
}

// NewRabbitMQ publishes through an existing channel.
func NewRabbitMQ(channel amqpPublisher, exchange, routingKey, runID string) (*RabbitMQ, error) {
	if channel == nil {
		return nil, fmt.Errorf("amqp channel is required")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("routing key is required")
	}
	return &RabbitMQ{
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
		runID:      runID,
	}, nil
}

// OpenRabbitMQ dials url, opens a channel in confirm mode, and declares
// the exchange as a durable topic exchange when one is named. With no
// exchange the default exchange is used and the routing key names a
// durable queue, which is declared.
func OpenRabbitMQ(url, exchange, routingKey, runID string) (*RabbitMQ, error) {
	if url == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	if exchange != "" {
		err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	} else {
		_, err = ch.QueueDeclare(routingKey, true, false, false, false, nil)
	}
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare destination: %w", err)
	}

	r, err := NewRabbitMQ(ch, exchange, routingKey, runID)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

// Push publishes the record and waits for the broker confirmation.
func (r *RabbitMQ) Push(ctx context.Context, record listing.Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Type:         "aanbod.listing",
		Headers: amqp.Table{
			"run_id":     r.runID,
			"listing_id": record.ID.String(),
		},
		Body: body,
	}

	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.exchange, r.routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish listing %s: %w", record.ID, err)
	}
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for listing %s: %w", record.ID, err)
	}
	if !acked {
		return fmt.Errorf("listing %s: %w", record.ID, ErrRejected)
	}
	return nil
}

// Close closes the channel and, if the sink dialed it, the connection.
func (r *RabbitMQ) Close() error {
	err := r.channel.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
