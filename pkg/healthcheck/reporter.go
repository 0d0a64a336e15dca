package healthcheck

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PublishFunc delivers an aggregated result somewhere external, e.g. the
// operations bus.
type PublishFunc func(ctx context.Context, result *AggregatedResult) error

// Reporter runs the engine's sweep on a schedule and hands each result to
// a publisher.
type Reporter struct {
	engine    *Engine
	publisher PublishFunc
	logger    *zap.Logger
}

// NewReporter wraps an engine with a publisher.
func NewReporter(engine *Engine, publisher PublishFunc, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{engine: engine, publisher: publisher, logger: logger}
}

// Report sweeps once and publishes the result.
func (r *Reporter) Report(ctx context.Context) error {
	result := r.engine.CheckAll(ctx)

	if r.publisher != nil {
		if err := r.publisher(ctx, result); err != nil {
			return err
		}
	}

	r.logger.Debug("Health report published",
		zap.String("status", string(result.OverallStatus)),
		zap.Int("components", len(result.Components)))
	return nil
}

// StartReporting publishes a report immediately and then on every interval
// tick until the context is cancelled. It blocks.
func (r *Reporter) StartReporting(ctx context.Context, interval time.Duration) {
	r.logger.Info("Health reporter started", zap.Duration("interval", interval))

	if err := r.Report(ctx); err != nil {
		r.logger.Error("Health report failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Health reporter stopped")
			return
		case <-ticker.C:
			if err := r.Report(ctx); err != nil {
				r.logger.Error("Health report failed", zap.Error(err))
			}
		}
	}
}
