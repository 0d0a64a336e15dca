package healthcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// checkTimeout bounds a single component check so one stuck probe cannot
// stall the whole sweep.
const checkTimeout = 10 * time.Second

// Engine fans a health sweep out over the registered checkers and caches
// the latest aggregated result for cheap reads.
type Engine struct {
	logger   *zap.Logger
	interval time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	last     *AggregatedResult
	stopCh   chan struct{}
	running  bool
}

// NewEngine creates an engine sweeping at the given interval once Start
// is called. A zero interval defaults to 30s.
func NewEngine(logger *zap.Logger, interval time.Duration) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Engine{
		logger:   logger,
		interval: interval,
		checkers: make(map[string]Checker),
		stopCh:   make(chan struct{}),
	}
}

// Register adds a checker under its own name, replacing any previous
// checker with that name.
func (e *Engine) Register(checker Checker) {
	e.mu.Lock()
	e.checkers[checker.Name()] = checker
	e.mu.Unlock()

	e.logger.Info("Health checker registered", zap.String("component", checker.Name()))
}

// Unregister removes a checker by name.
func (e *Engine) Unregister(name string) {
	e.mu.Lock()
	delete(e.checkers, name)
	e.mu.Unlock()

	e.logger.Info("Health checker removed", zap.String("component", name))
}

// CheckAll sweeps every registered checker concurrently and returns the
// aggregated result. A panicking checker is reported as unhealthy rather
// than taking the sweep down.
func (e *Engine) CheckAll(ctx context.Context) *AggregatedResult {
	e.mu.RLock()
	checkers := make([]Checker, 0, len(e.checkers))
	for _, c := range e.checkers {
		checkers = append(checkers, c)
	}
	e.mu.RUnlock()

	results := make(map[string]*Result, len(checkers))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			result := e.runOne(checkCtx, c)

			resultsMu.Lock()
			results[c.Name()] = result
			resultsMu.Unlock()
		}(checker)
	}
	wg.Wait()

	agg := &AggregatedResult{
		OverallStatus: DetermineOverallStatus(results),
		Components:    results,
		Timestamp:     time.Now(),
	}

	e.mu.Lock()
	e.last = agg
	e.mu.Unlock()

	return agg
}

func (e *Engine) runOne(ctx context.Context, c Checker) (result *Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Health checker panicked",
				zap.String("component", c.Name()),
				zap.Any("panic", r))
			result = &Result{
				ComponentName: c.Name(),
				Status:        StatusUnhealthy,
				Message:       fmt.Sprintf("checker panic: %v", r),
				Timestamp:     time.Now(),
			}
		}
		// a checker that returns nil is as broken as one that panics
		if result == nil {
			result = &Result{
				ComponentName: c.Name(),
				Status:        StatusUnhealthy,
				Message:       "checker returned no result",
				Timestamp:     time.Now(),
			}
		}
		result.Duration = time.Since(start)
	}()

	return c.Check(ctx)
}

// LastResult returns the most recent aggregated result, or nil before the
// first sweep.
func (e *Engine) LastResult() *AggregatedResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Start sweeps on the configured interval until the context is cancelled
// or Stop is called. It blocks; status transitions are logged.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	stopCh := e.stopCh
	e.mu.Unlock()

	e.logger.Info("Health engine started", zap.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	defer e.setStopped()

	prev := StatusUnknown
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Health engine stopped")
			return
		case <-stopCh:
			e.logger.Info("Health engine stopped")
			return
		case <-ticker.C:
			agg := e.CheckAll(ctx)
			if agg.OverallStatus != prev {
				e.logger.Info("Overall health changed",
					zap.String("from", string(prev)),
					zap.String("to", string(agg.OverallStatus)))
				prev = agg.OverallStatus
			}
		}
	}
}

// Stop ends a running Start loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	close(e.stopCh)
	e.stopCh = make(chan struct{})
}

func (e *Engine) setStopped() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// IsRunning reports whether the periodic sweep loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}
