package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivered message body. A non-nil error rejects the
// delivery without requeueing it; handlers must be idempotent because the
// broker may still deliver the same message more than once.
type Handler func(ctx context.Context, body []byte) error

// Consumer handles RabbitMQ message consumption for one queue
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(rabbitURL, queueName string) (*Consumer, error) {
	conn, err := connectWithRetry(rabbitURL, 10, 5*time.Second)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %s", err)
	}

	if err := declareQueue(channel, queueName); err != nil {
		return nil, err
	}

	// Set prefetch count: one in-flight message per worker
	err = channel.Qos(1, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %s", err)
	}

	log.Printf("✓ Connected to RabbitMQ, queue: %s\n", queueName)

	return &Consumer{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
	}, nil
}

// Queue returns the queue name this consumer is bound to.
func (c *Consumer) Queue() string {
	return c.queueName
}

// Start begins consuming messages, invoking handler once per delivery, and
// blocks until the context is canceled or the delivery channel closes.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %s", err)
	}

	log.Printf("[*] Waiting for messages on %s\n", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queueName)
			}

			if err := handler(ctx, msg.Body); err != nil {
				if shouldRequeue(err) {
					log.Printf("[!] Requeueing message from %s after shutdown: %s\n", c.queueName, err)
					msg.Nack(false, true)
				} else {
					log.Printf("[✗] Error processing message from %s: %s\n", c.queueName, err)
					// Reject and don't requeue to avoid infinite loop
					msg.Nack(false, false)
				}
			} else {
				msg.Ack(false)
			}
		}
	}
}

// shouldRequeue reports whether a handler error came from worker shutdown
// rather than from processing. Such deliveries go back to the queue so the
// interrupted stage runs again after restart.
func shouldRequeue(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Close closes the consumer connection
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
