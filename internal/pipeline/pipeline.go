// Package pipeline runs the recommendation worker loop: read a batch of
// observation messages, turn each into a recommendation, publish the batch and
// commit the consumed offsets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/observability"
)

// BatchExtractor reads up to batchSize raw observation messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer turns one raw observation message into a recommendation message.
// Implementations must be safe for concurrent use.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.OutputMessage, error)
}

// BatchLoader writes recommendation messages to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, msgs []domain.OutputMessage) error
}

// Pipeline runs the observation-to-recommendation loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	workers     int

	ready atomic.Bool
}

// New creates a Pipeline. Observations within a batch are transformed on up to
// GOMAXPROCS goroutines; output order always follows input order.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		workers:     runtime.GOMAXPROCS(0),
	}
}

// CheckReadiness returns nil once the pipeline has published at least one
// recommendation.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no recommendations published yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled. Extract and load
// failures back off exponentially before the next batch. A batch whose load
// fails is not committed, but a group reader has already moved past it: it is
// redelivered only if the worker restarts before a later batch commits a
// higher offset, so loads are at-most-once within a session.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := newBackoff()
	for ctx.Err() == nil {
		if err := p.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("batch failed, backing off", "error", err, "delay", retry.delay)
			if !retry.wait(ctx) {
				break
			}
			continue
		}
		retry.reset()
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// runOnce processes one batch. It returns an error only for extract and load
// failures. Observations that cannot be turned into recommendations are
// skipped; every offset in the batch, skipped ones included, is committed only
// after the load succeeds.
func (p *Pipeline) runOnce(ctx context.Context) error {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	results := p.transformAll(ctx, batch)

	out := make([]domain.OutputMessage, 0, len(batch))
	for i, r := range results {
		if r.err != nil {
			raw := batch[i]
			p.logger.Warn("recommendation failed, skipping observation",
				"error", r.err,
				"reason", skipReason(r.err),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		out = append(out, r.msg)
	}

	if len(out) > 0 {
		if err := p.loader.LoadBatch(ctx, out); err != nil {
			return fmt.Errorf("load %d recommendations: %w", len(out), err)
		}
		p.metrics.MessagesProduced.Add(float64(len(out)))
	}
	for _, raw := range batch {
		p.commit(ctx, raw)
	}
	if len(out) == 0 {
		return nil
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

type transformResult struct {
	msg domain.OutputMessage
	err error
}

// transformAll runs the transformer over the batch concurrently. Each result
// lands at its message's index.
func (p *Pipeline) transformAll(ctx context.Context, batch []domain.RawMessage) []transformResult {
	results := make([]transformResult, len(batch))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, raw := range batch {
		g.Go(func() error {
			msg, err := p.transformer.Transform(ctx, raw)
			results[i] = transformResult{msg: msg, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// skipReason labels why an observation produced no recommendation.
func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidObservation):
		return "invalid_observation"
	case errors.Is(err, domain.ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "malformed"
	}
}
