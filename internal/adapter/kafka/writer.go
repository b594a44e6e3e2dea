package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-safety-training/internal/notify"
)

// Writer produces notifications to a Kafka topic.
// It implements pipeline.BatchLoader and notify.Escalator.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes notifications in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, notifications []notify.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(notifications))
	for i := range notifications {
		msg, err := serializeToMessage(notifications[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Escalate publishes a single urgent notification.
func (w *Writer) Escalate(ctx context.Context, n notify.Notification) error {
	if err := w.LoadBatch(ctx, []notify.Notification{n}); err != nil {
		return fmt.Errorf("escalate %s: %w", n.ID, err)
	}
	w.logger.Info("notification escalated", "id", n.ID, "severity", n.Severity, "key", n.Key)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a notification into a Kafka message keyed by
// its dedup key, so updates to the same hazard land on one partition.
func serializeToMessage(n notify.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	key := n.Key
	if key == "" {
		key = n.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(n.Kind)},
			{Key: "severity", Value: []byte(n.Severity)},
			{Key: "created_at", Value: []byte(n.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
