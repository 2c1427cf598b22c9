package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/climate-intervention-planner/internal/config"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// Reader consumes observation messages from a Kafka topic as part of a consumer
// group. It implements pipeline.BatchExtractor. Offsets are committed
// explicitly through each message's Commit callback.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaSourceTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize messages, returning early with whatever
// it has once the flush interval elapses. An empty batch with a nil error means
// the interval passed with no traffic.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error) {
	batchCtx := ctx
	if r.flushInterval > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, r.flushInterval)
		defer cancel()
	}

	batch := make([]domain.RawMessage, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(batchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if batchCtx.Err() != nil {
				break
			}
			return nil, err
		}
		raw := mapMessageToRawMessage(msg)
		raw.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
		batch = append(batch, raw)
	}
	if len(batch) > 0 {
		r.logger.Debug("batch extracted", "size", len(batch))
	}
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawMessage copies a Kafka message into the domain form, without
// the commit callback.
func mapMessageToRawMessage(msg kafkago.Message) domain.RawMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
