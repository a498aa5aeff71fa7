package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer  *kafka.Writer
	Timeout time.Duration
}

// NewProducer returns a producer that can write to any topic; the topic is
// chosen per message.
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		// Publish writes one message at a time; the default 1s batch wait
		// would delay every seat event by a second.
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Timeout: 5 * time.Second}
}

// Publish writes one message. Messages with the same key land on the same
// partition, so seat events of one venue event stay ordered.
func (p *Producer) Publish(topic, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
