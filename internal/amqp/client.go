// Package amqp publishes and consumes transaction change events on a
// RabbitMQ direct exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
	reconnectTries = 3
)

var errClosed = errors.New("connection closed")

// Client owns one connection and channel. The exchange is direct and the
// queue is bound with its own name as routing key.
type Client struct {
	url      string
	exchange string
	queue    string

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel

	breaker *breaker
}

// NewClient dials url and declares the exchange, queue and binding.
func NewClient(url, exchange, queue string) (*Client, error) {
	c := newClient(url, exchange, queue)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(url, exchange, queue string) *Client {
	return &Client{
		url:      url,
		exchange: exchange,
		queue:    queue,
		breaker:  newBreaker(maxFailures, openTimeout),
	}
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := c.declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.mu.Unlock()
	return nil
}

func (c *Client) declare(ch *amqp091.Channel) error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false

	if err := ch.ExchangeDeclare(c.exchange, amqp091.ExchangeDirect, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, durable, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(c.queue, c.queue, c.exchange, noWait, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) channel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return nil, errClosed
	}
	return c.ch, nil
}

// reconnect redials with exponential backoff.
func (c *Client) reconnect(ctx context.Context) error {
	var err error
	for attempt := range reconnectTries {
		if err = c.connect(); err == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP", "attempt", attempt+1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return fmt.Errorf("reconnect after %d attempts: %w", reconnectTries, err)
}

// PublishTransactionEvent publishes a change event for a transaction. A
// connection failure triggers one reconnect and retry.
func (c *Client) PublishTransactionEvent(ctx context.Context, event *TransactionEvent) error {
	if !c.breaker.allow() {
		return fmt.Errorf("publish %s event for %s: %w", event.Action, event.ID, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, body)
	if isConnectionError(err) && c.reconnect(ctx) == nil {
		err = c.publish(ctx, body)
	}
	if err != nil {
		c.breaker.failure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.breaker.success()

	slog.InfoContext(ctx, "Published transaction event",
		"id", event.ID,
		"action", event.Action,
		"version", event.Version,
		"exchange", c.exchange)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// EventHandler processes one event. Returning an error requeues the delivery.
type EventHandler func(ctx context.Context, event *TransactionEvent) error

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDrop
)

// dispatch decodes body and runs handler, reporting how the delivery should
// be settled. Undecodable bodies are dropped since redelivery cannot fix them.
func dispatch(ctx context.Context, body []byte, handler EventHandler) outcome {
	event, err := TransactionEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping undecodable message", "error", err)
		return outcomeDrop
	}

	logger := slog.With("id", event.ID, "action", event.Action, "version", event.Version)
	logger.DebugContext(ctx, "Processing transaction event")
	if err := handler(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to handle message", "error", err)
		return outcomeRequeue
	}
	return outcomeAck
}

func settle(d amqp091.Delivery, o outcome) error {
	switch o {
	case outcomeDrop:
		return d.Nack(false, false)
	case outcomeRequeue:
		return d.Nack(false, true)
	}
	return d.Ack(false)
}

// ConsumeTransactionEvents consumes events with manual acks until ctx is
// cancelled or the broker closes the delivery channel.
func (c *Client) ConsumeTransactionEvents(ctx context.Context, handler EventHandler) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("message channel closed")
			}
			if err := settle(d, dispatch(ctx, d.Body, handler)); err != nil {
				slog.WarnContext(ctx, "Failed to settle delivery", "error", err)
			}
		}
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

var connectionErrorHints = []string{"connection", "eof", "broken pipe", "not open"}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range connectionErrorHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// Close closes the channel and connection. The client cannot be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		c.ch.Close()
		c.ch = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
