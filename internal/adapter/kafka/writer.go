package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/climate-intervention-planner/internal/config"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    cfg.BatchSize,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes recommendation messages to the sink topic in a single
// WriteMessages call. Messages are keyed by recommendation ID so repeated
// observations of a site land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, msgs []domain.OutputMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafkago.Message, len(msgs))
	for i := range msgs {
		out[i] = toKafkaMessage(msgs[i])
	}
	if err := w.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(out), w.writer.Topic, err)
	}
	w.logger.Debug("recommendations published", "topic", w.writer.Topic, "count", len(out))
	return nil
}

// Close flushes pending writes and releases the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// toKafkaMessage converts an output message, ordering headers by key.
func toKafkaMessage(msg domain.OutputMessage) kafkago.Message {
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafkago.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafkago.Header{Key: k, Value: []byte(msg.Headers[k])}
	}
	return kafkago.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}
