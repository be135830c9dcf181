package kafka

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/segmentio/kafka-go"
)

// Publisher writes job events to a Kafka topic keyed by session
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for topic on brokers
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes one event
func (p *Publisher) Publish(ctx context.Context, event *model.JobEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal job event")
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to publish job event",
			goerr.V("topic", p.writer.Topic),
			goerr.V("type", event.Type),
		)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
