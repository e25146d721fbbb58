// Package queue carries manual section refresh requests from the API to the
// worker process over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"photogallery/internal/domain/gallery"
	"photogallery/internal/ingest"
	"photogallery/internal/logging"
)

const (
	RefreshExchange   = "sections.exchange"
	RefreshQueue      = "sections.refresh"
	RefreshRoutingKey = "sections.refresh"
)

// RefreshMessage asks the worker to sync one section now.
type RefreshMessage struct {
	SectionID   int64 `json:"section_id"`
	RequestedBy int64 `json:"requested_by"`
	Timestamp   int64 `json:"timestamp"`
}

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Dial opens a connection and channel to the broker.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	return conn, ch, nil
}

// Declare sets up the durable exchange, queue and binding.
func Declare(ch Channel) error {
	if err := ch.ExchangeDeclare(RefreshExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare refresh exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(RefreshQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare refresh queue: %w", err)
	}
	if err := ch.QueueBind(RefreshQueue, RefreshRoutingKey, RefreshExchange, false, nil); err != nil {
		return fmt.Errorf("bind refresh queue: %w", err)
	}
	return nil
}

type Publisher struct {
	ch Channel
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishRefresh(ctx context.Context, sectionID, requestedBy int64) error {
	body, err := json.Marshal(RefreshMessage{
		SectionID:   sectionID,
		RequestedBy: requestedBy,
		Timestamp:   time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, RefreshExchange, RefreshRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// RefreshRunner performs the refresh a message asks for.
type RefreshRunner interface {
	RefreshByID(ctx context.Context, id int64) (*gallery.Section, ingest.MergeResult, error)
}

type Consumer struct {
	ch     Channel
	runner RefreshRunner
	log    logging.Logger
}

func NewConsumer(ch Channel, runner RefreshRunner, log logging.Logger) *Consumer {
	return &Consumer{ch: ch, runner: runner, log: log.With("component", "refresh-consumer")}
}

// Start registers the consumer and handles deliveries in a goroutine until
// ctx is done or the channel closes.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := c.ch.Consume(RefreshQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register refresh consumer: %w", err)
	}
	c.log.Info(ctx, "listening for refresh jobs", "queue", RefreshQueue)

	go c.loop(ctx, msgs)
	return nil
}

func (c *Consumer) loop(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.log.Info(ctx, "refresh consumer stopped")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.log.Warn(ctx, "refresh channel closed")
				return
			}
			c.Handle(ctx, msg)
		}
	}
}

// Handle processes one delivery. Malformed payloads are dropped; a refresh
// interrupted by shutdown is requeued; everything else is acknowledged since
// the outcome is already recorded on the section.
func (c *Consumer) Handle(ctx context.Context, msg amqp.Delivery) {
	var payload RefreshMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil || payload.SectionID <= 0 {
		c.log.Error(ctx, "invalid refresh message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := c.log.With("section_id", payload.SectionID)
	_, res, err := c.runner.RefreshByID(ctx, payload.SectionID)
	switch {
	case err == nil:
		log.Info(ctx, "manual refresh done", "fetched", res.Fetched, "inserted", res.Inserted)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		_ = msg.Nack(false, true)
		return
	case errors.Is(err, ingest.ErrSectionBusy):
		log.Info(ctx, "section already syncing, refresh dropped")
	default:
		log.Warn(ctx, "manual refresh failed", "error", err)
	}
	_ = msg.Ack(false)
}
