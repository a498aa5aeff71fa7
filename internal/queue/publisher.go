// Package queue publishes seat status events to RabbitMQ for deployments that
// run a broker instead of Kafka.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ms-seating/internal/logger"
)

// Publisher keeps one connection and channel open and redials on the next
// publish after a failure. The topic passed to Publish is used as a durable
// queue name on the default exchange.
type Publisher struct {
	URL     string
	Timeout time.Duration
	Logger  *logger.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewPublisher(url string, log *logger.Logger) *Publisher {
	return &Publisher{URL: url, Timeout: 5 * time.Second, Logger: log}
}

// Connect dials the broker up front so startup fails fast on a bad URL.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked()
}

func (p *Publisher) connectLocked() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.declared = map[string]bool{}
	if p.Logger != nil {
		p.Logger.Info("RABBITMQ", "Connected to broker")
	}
	return nil
}

func (p *Publisher) Publish(topic, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return err
	}

	if !p.declared[topic] {
		if _, err := p.ch.QueueDeclare(
			topic, // name
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			p.closeLocked()
			return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
		}
		p.declared[topic] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	err := p.ch.PublishWithContext(ctx,
		"",    // default exchange
		topic, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    key,
			Timestamp:    time.Now().UTC(),
			Body:         value,
		},
	)
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
