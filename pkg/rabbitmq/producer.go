package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishError wraps a failed publish. The producer does not retry
// internally; whether to retry or accept the loss is the caller's call.
type PublishError struct {
	Queue string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish to %s: %s", e.Queue, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Producer handles RabbitMQ message production
type Producer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

// NewProducer creates a new RabbitMQ producer
func NewProducer(rabbitURL, queueName string) (*Producer, error) {
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

	log.Printf("✓ Connected to RabbitMQ, queue: %s\n", queueName)

	return &Producer{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
	}, nil
}

// Publish marshals the message to JSON and sends it as a persistent delivery.
func (p *Producer) Publish(ctx context.Context, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %s", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Persistent message
		},
	)
	if err != nil {
		return &PublishError{Queue: p.queueName, Err: err}
	}

	log.Printf("  Published to queue: %s (size: %d bytes)\n", p.queueName, len(body))
	return nil
}

// Close closes the producer connection
func (p *Producer) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
