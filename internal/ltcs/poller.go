package ltcs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MinPollInterval is the floor on the database poll rate. Intervals below
// it are clamped so a misconfigured deployment cannot hammer the shared
// summit database.
const MinPollInterval = 1 * time.Second

// Poller drives Monitor.Update from its own goroutine at a fixed interval.
type Poller struct {
	monitor  *Monitor
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewPoller creates a poller for the monitor. The interval is clamped to
// MinPollInterval.
func NewPoller(monitor *Monitor, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < MinPollInterval {
		logger.Warn("poll interval below minimum, clamping",
			zap.Duration("requested", interval),
			zap.Duration("minimum", MinPollInterval))
		interval = MinPollInterval
	}
	return &Poller{
		monitor:  monitor,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling. It returns immediately; the loop runs until Stop
// is called or the context is cancelled. The first poll happens right
// away so consumers never read the placeholder DOWN snapshot for a full
// interval.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	stopCh := p.stopCh
	p.mu.Unlock()

	p.logger.Info("Starting collision status poller",
		zap.Duration("interval", p.interval))

	go func() {
		p.monitor.Update(ctx, time.Now())

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Collision status poller stopped (context)")
				p.setStopped()
				return
			case <-stopCh:
				p.logger.Info("Collision status poller stopped")
				p.setStopped()
				return
			case <-ticker.C:
				p.monitor.Update(ctx, time.Now())
			}
		}
	}()
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.stopCh = make(chan struct{})
}

func (p *Poller) setStopped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// IsRunning returns true while the polling goroutine is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
