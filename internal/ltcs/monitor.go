package ltcs

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mk-obs/telops/pkg/healthcheck"
)

// predictionHorizon is how far ahead an upcoming window still counts as
// PREDICTED rather than OPEN.
const predictionHorizon = 24 * time.Hour

// Monitor polls the LTCS store and derives the live collision status.
//
// Update performs blocking I/O and must never run on an interactive
// thread; drive it from a Poller or a dedicated goroutine. One update runs
// at a time (single-writer discipline over the shared store connection).
// GetStatus returns the last published snapshot copy and never blocks on
// I/O, so it is safe from any goroutine.
type Monitor struct {
	logger         *zap.Logger
	store          Store
	laser          string
	staleThreshold time.Duration

	cycleMu sync.Mutex // one poll cycle in flight at a time
	state   Status     // working health state within a cycle
	events  []Event    // working event list, rebuilt every cycle

	mu       sync.Mutex
	snapshot Snapshot
}

// NewMonitor creates a monitor for the named laser telescope.
func NewMonitor(store Store, laser string, staleThreshold time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		logger:         logger,
		store:          store,
		laser:          laser,
		staleThreshold: staleThreshold,
		state:          StatusDown,
		snapshot: Snapshot{
			Status:    StatusDown,
			StatusStr: StatusDown.String(),
			OK:        false,
		},
	}
}

type fetchResult struct {
	health  []HealthRow
	active  []Event
	sim     []Event
	predict []Event
}

// fetch runs the health-check query and, eagerly, the three interval
// queries. Any failure aborts the cycle.
func (m *Monitor) fetch(ctx context.Context) (fetchResult, error) {
	var res fetchResult
	var err error

	if res.health, err = m.store.HealthRows(ctx); err != nil {
		return res, fmt.Errorf("system health: %w", err)
	}
	if res.active, err = m.store.ActiveCollisions(ctx, m.laser); err != nil {
		return res, fmt.Errorf("active collisions: %w", err)
	}
	if res.sim, err = m.store.SimPredictions(ctx, m.laser); err != nil {
		return res, fmt.Errorf("sim predictions: %w", err)
	}
	if res.predict, err = m.store.Predictions(ctx, m.laser); err != nil {
		return res, fmt.Errorf("predictions: %w", err)
	}
	return res, nil
}

// Update runs one poll cycle at the given wall-clock time and publishes a
// fresh snapshot. Errors never escape: a failed cycle publishes an ERROR
// snapshot and the next cycle retries from scratch.
func (m *Monitor) Update(ctx context.Context, now time.Time) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.events = nil

	res, err := m.fetch(ctx)
	if err != nil {
		m.logger.Error("error accessing LTCS database", zap.Error(err))
		m.publish(Snapshot{
			Status:    StatusError,
			StatusStr: StatusError.String(),
			OK:        false,
			Generated: now,
		})
		return
	}

	m.state = StatusDown
	m.checkHealth(now, res.health)

	if m.state == StatusUp {
		// active collisions first, then laser-on preview predictions,
		// then firm (laser ON-SKY) predictions
		m.events = append(m.events, res.active...)
		m.events = append(m.events, res.sim...)
		m.events = append(m.events, res.predict...)
		m.logger.Debug("collision events ingested",
			zap.Int("active", len(res.active)),
			zap.Int("sim_predicted", len(res.sim)),
			zap.Int("predicted", len(res.predict)))
	}

	m.checkCollisions(now)
}

// unixSeconds converts to the fractional seconds-since-epoch form the
// LTCS tables use, so staleness and countdown arithmetic share one clock.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// checkHealth inspects the system_health rows for stale components.
// Staleness is logged but does not degrade the health state; the upstream
// system has been observed to lag its heartbeats while still serving
// correct window data. See DESIGN.md.
func (m *Monitor) checkHealth(now time.Time, rows []HealthRow) {
	nowSSE := unixSeconds(now)
	stale := 0
	for _, hr := range rows {
		if nowSSE-hr.Timestamp > m.staleThreshold.Seconds() {
			stale++
			m.logger.Warn("LTCS process is stale",
				zap.String("component", hr.Component),
				zap.Time("last_update", time.Unix(int64(hr.Timestamp), 0)))
		}
	}
	if stale > 0 {
		m.logger.Error("LTCS processes are stale",
			zap.Int("stale", stale),
			zap.Int("total", len(rows)))
	}
	m.state = StatusUp
}

// checkCollisions reduces the working event list to one snapshot for the
// given time and publishes it.
func (m *Monitor) checkCollisions(now time.Time) {
	nowSSE := unixSeconds(now)
	snap := Snapshot{Generated: now}

	switch {
	case m.state == StatusDown:
		snap.Status = StatusDown
		snap.OK = false

	case len(m.events) == 0:
		snap.Status = StatusOpen
		snap.OK = true

	default:
		startMin := math.Inf(1)
		stopMax := math.Inf(-1)
		within := false
		impact := ""
		var kept []Event
		var parts []string

		for _, ev := range m.events {
			// drop fully-past windows
			if ev.StopSSE <= nowSSE {
				continue
			}
			kept = append(kept, ev)
			parts = append(parts, formatEvent(ev))

			// next window to start (or already started)
			if ev.StartSSE < startMin {
				startMin = ev.StartSSE
				impact = ev.Telescope
			}

			// inside this window right now?
			if ev.StartSSE <= nowSSE && ev.StopSSE >= nowSSE {
				within = true
				// the longest-running overlap drives the countdown
				if ev.StopSSE > stopMax {
					stopMax = ev.StopSSE
					impact = ev.Telescope
				}
			}
		}

		snap.Events = kept
		snap.EventList = strings.Join(parts, " // ")

		var remain float64
		joiner := ""
		if within {
			remain = stopMax - nowSSE
			joiner = " until "
			snap.Status = StatusCollisions
			snap.OK = false
		} else {
			remain = startMin - nowSSE
			joiner = " in "
			if remain > 0 && remain < predictionHorizon.Seconds() {
				snap.Status = StatusPredicted
				snap.OK = true
			} else {
				snap.Status = StatusOpen
				snap.OK = true
				joiner = ""
				snap.EventList = ""
			}
		}

		snap.Impact = impact
		if remain > 0 && remain < predictionHorizon.Seconds() {
			snap.RemainSec = remain
			snap.RemainStr = formatCountdown(remain)
			snap.Summary = joiner + snap.RemainStr + " with " + impact
		}
	}

	snap.StatusStr = snap.Status.String()
	m.publish(snap)

	m.logger.Debug("collision status",
		zap.String("status", snap.StatusStr),
		zap.Bool("ok", snap.OK),
		zap.String("remain", snap.RemainStr),
		zap.Int("events", len(snap.Events)))
}

// publish atomically replaces the current snapshot.
func (m *Monitor) publish(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snap
}

// GetStatus returns a copy of the last published snapshot.
func (m *Monitor) GetStatus() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot.copyOut()
}

// Pointings returns the summit telescope pointings when the underlying
// store supports them. It takes the cycle lock so it never interleaves
// with a poll on the shared connection.
func (m *Monitor) Pointings(ctx context.Context) (map[string]Pointing, error) {
	p, ok := m.store.(interface {
		Pointings(ctx context.Context) (map[string]Pointing, error)
	})
	if !ok {
		return nil, fmt.Errorf("store does not publish pointings")
	}
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return p.Pointings(ctx)
}

// Name implements healthcheck.Checker.
func (m *Monitor) Name() string { return "ltcs_monitor" }

// Check implements healthcheck.Checker from the last published snapshot.
func (m *Monitor) Check(ctx context.Context) *healthcheck.Result {
	snap := m.GetStatus()

	status := healthcheck.StatusHealthy
	message := "collision monitor is " + snap.StatusStr
	switch snap.Status {
	case StatusError:
		status = healthcheck.StatusUnhealthy
	case StatusDown:
		status = healthcheck.StatusDegraded
	}

	return &healthcheck.Result{
		ComponentName: m.Name(),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details: map[string]interface{}{
			"ltcs_status":   snap.StatusStr,
			"ok_collisions": snap.OK,
			"events":        len(snap.Events),
		},
	}
}

var _ healthcheck.Checker = (*Monitor)(nil)
