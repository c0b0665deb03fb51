package repository

import (
	"context"
	"fmt"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/domain/repository"
)

// MessageProducer is the subset of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaChangePublisher implements ChangePublisher for Kafka. Messages are
// keyed by strategy and symbol so one ticker's history stays ordered.
type KafkaChangePublisher struct {
	producer MessageProducer
	topic    string
}

// NewKafkaChangePublisher creates Kafka change publisher.
func NewKafkaChangePublisher(producer MessageProducer, topic string) repository.ChangePublisher {
	return &KafkaChangePublisher{producer: producer, topic: topic}
}

func (p *KafkaChangePublisher) PublishChange(ctx context.Context, c *models.TickerChange) error {
	key := []byte(fmt.Sprintf("%s:%s", c.Strategy, c.Symbol))
	if err := p.producer.Publish(ctx, p.topic, key, c); err != nil {
		return fmt.Errorf("publish ticker change: %w", err)
	}
	return nil
}

func (p *KafkaChangePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopChangePublisher drops every change. Used when auditing is disabled.
type NoopChangePublisher struct{}

func (NoopChangePublisher) PublishChange(context.Context, *models.TickerChange) error { return nil }
func (NoopChangePublisher) Close() error                                              { return nil }
