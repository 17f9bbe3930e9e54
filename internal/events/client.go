// Package events is the at-least-once intake of expense and settlement
// messages over AMQP.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/splitledger/internal/metrics"
)

// Handler processes one decoded envelope.
type Handler func(ctx context.Context, env *Envelope) error

const (
	// attemptsHeader counts deliveries of a message through the retry queue.
	attemptsHeader = "x-ledger-attempts"

	DefaultMaxAttempts = 12
	DefaultRetryDelay  = 5 * time.Second
)

// Client owns one connection and channel. Besides the intake queue it
// declares a retry queue, whose expired messages flow back into the intake
// queue, and a dead-letter queue for messages that ran out of attempts.
type Client struct {
	url          string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	maxAttempts  int
	retryDelay   time.Duration

	// publish sends to the exchange; replaced in tests.
	publish func(ctx context.Context, routingKey string, msg amqp091.Publishing) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetry sets how many times a message is delivered before it is
// dead-lettered and how long it waits between deliveries.
func WithRetry(maxAttempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.retryDelay = delay
	}
}

func NewClient(url, exchangeName, queueName string, opts ...ClientOption) (*Client, error) {
	client := newClient(url, exchangeName, queueName, opts...)
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func newClient(url, exchangeName, queueName string, opts ...ClientOption) *Client {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		maxAttempts:  DefaultMaxAttempts,
		retryDelay:   DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish = func(ctx context.Context, routingKey string, msg amqp091.Publishing) error {
		return c.channel.PublishWithContext(ctx, c.exchangeName, routingKey, false, false, msg)
	}
	return c
}

func (c *Client) retryQueue() string { return c.queueName + ".retry" }
func (c *Client) deadQueue() string  { return c.queueName + ".dead" }

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Rejected intake messages go to the dead-letter queue; expired retry
	// messages go back to the intake queue.
	queues := []struct {
		name string
		args amqp091.Table
	}{
		{c.queueName, amqp091.Table{
			"x-dead-letter-exchange":    c.exchangeName,
			"x-dead-letter-routing-key": c.deadQueue(),
		}},
		{c.retryQueue(), amqp091.Table{
			"x-message-ttl":             c.retryDelay.Milliseconds(),
			"x-dead-letter-exchange":    c.exchangeName,
			"x-dead-letter-routing-key": c.queueName,
		}},
		{c.deadQueue(), nil},
	}
	for _, q := range queues {
		_, err = c.channel.QueueDeclare(
			q.name, // name
			true,   // durable
			false,  // delete when unused
			false,  // exclusive
			false,  // no-wait
			q.args, // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}

		// Routing key is the queue name, as usual for a direct exchange.
		if err := c.channel.QueueBind(q.name, q.name, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q.name, err)
		}
	}

	// One unacked message at a time keeps per-group ordering close to
	// publish order.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Publish sends an envelope to the intake queue.
func (c *Client) Publish(ctx context.Context, env *Envelope) error {
	if err := env.check(); err != nil {
		return err
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.publish(ctx, c.queueName, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    env.Timestamp,
		Type:         string(env.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published ledger message",
		"type", env.Type,
		"key", env.key(),
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Consume delivers messages to handler until ctx is done or the channel
// closes. Successes and redeliveries are acked. Permanent failures are
// dead-lettered. Anything else goes through the retry queue until the
// attempt limit, then it is dead-lettered too.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.deliver(ctx, delivery, handler)
		}
	}
}

func (c *Client) deliver(ctx context.Context, delivery amqp091.Delivery, handler Handler) {
	env, err := EnvelopeFromJSON(delivery.Body)
	if err != nil {
		err = &decodeError{err: err}
	} else {
		err = handler(ctx, env)
	}

	msgType := delivery.Type
	if env != nil {
		msgType = string(env.Type)
	}

	outcome := disposition(err)
	attempts := deliveryAttempts(delivery.Headers) + 1
	if outcome == "retry" && attempts >= c.maxAttempts {
		outcome = "dead"
	}

	switch outcome {
	case "ack":
		delivery.Ack(false)
	case "drop":
		slog.WarnContext(ctx, "Dead-lettering message that cannot succeed", "type", msgType, "error", err)
		delivery.Nack(false, false)
	case "dead":
		slog.ErrorContext(ctx, "Dead-lettering message after repeated failures",
			"type", msgType, "attempts", attempts, "error", err)
		delivery.Nack(false, false)
	default:
		slog.WarnContext(ctx, "Failed to handle message, retrying later",
			"type", msgType, "attempts", attempts, "wait", c.retryDelay, "error", err)
		if perr := c.retry(ctx, delivery, attempts); perr != nil {
			slog.ErrorContext(ctx, "Failed to schedule retry, requeueing", "type", msgType, "error", perr)
			delivery.Nack(false, true)
			outcome = "requeue"
		} else {
			delivery.Ack(false)
		}
	}
	metrics.EventMessages.WithLabelValues(msgType, outcome).Inc()
}

// retry republishes delivery to the retry queue with its attempt count.
func (c *Client) retry(ctx context.Context, delivery amqp091.Delivery, attempts int) error {
	headers := amqp091.Table{}
	for k, v := range delivery.Headers {
		headers[k] = v
	}
	headers[attemptsHeader] = int32(attempts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.publish(ctx, c.retryQueue(), amqp091.Publishing{
		Headers:      headers,
		ContentType:  delivery.ContentType,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    delivery.Timestamp,
		Type:         delivery.Type,
		Body:         delivery.Body,
	})
}

// deliveryAttempts reads the attempt count a message carries, 0 if none.
func deliveryAttempts(headers amqp091.Table) int {
	switch v := headers[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func disposition(err error) string {
	switch {
	case err == nil:
		return "ack"
	case Permanent(err):
		return "drop"
	default:
		return "retry"
	}
}

// Run consumes until ctx is done, redialing with exponential backoff when
// the broker connection drops.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	for attempt := 0; ; {
		err := c.Consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting", "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		c.Close()
		if err := c.connect(); err != nil {
			slog.ErrorContext(ctx, "AMQP reconnect failed", "error", err)
			attempt++
			continue
		}
		attempt = 0
	}
}

func exponentialBackoff(attempt int) time.Duration {
	const maxWait = 30 * time.Second
	if attempt > 5 {
		return maxWait
	}
	return min(time.Second<<attempt, maxWait)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel closed", "message channel closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
