package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafkago.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces resolution events to a Kafka topic.
type KafkaPublisher struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewKafkaPublisher creates a producer for the given brokers and topic. Writes are
// asynchronous: Publish returns once the message is queued and delivery failures
// are logged by the completion callback.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	const batchTimeout = 50 * time.Millisecond

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: batchTimeout,
		Async:        true,
		Completion:   deliveryReport(logger),
	}

	return NewKafkaPublisherWithWriter(w, logger)
}

func deliveryReport(logger *slog.Logger) func(messages []kafkago.Message, err error) {
	return func(messages []kafkago.Message, err error) {
		if err == nil {
			return
		}

		ids := make([]string, 0, len(messages))
		for _, msg := range messages {
			for _, header := range msg.Headers {
				if header.Key == "event_id" {
					ids = append(ids, string(header.Value))
				}
			}
		}
		logger.Error("Failed to deliver resolution events", "count", len(messages), "ids", ids, "error", err)
	}
}

// NewKafkaPublisherWithWriter allows injecting a custom writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish serializes the event and writes it keyed by address identity, so all
// events for one address land on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event ResolutionEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish resolution event: %w", err)
	}
	p.logger.DebugContext(ctx, "Resolution event queued", "id", event.ID, "outcome", event.Outcome)

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(event ResolutionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolution event: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(event.Address.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "outcome", Value: []byte(event.Outcome)},
			{Key: "resolved_at", Value: []byte(event.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
