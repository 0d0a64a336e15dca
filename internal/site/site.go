// Package site holds the shared per-site context: the observer location,
// the local timezone and the live telescope status record that telemetry
// keeps current and the solvers read.
package site

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/astro"
)

// Telescope pointing states as reported by the control system.
const (
	StatePointing = "Pointing"
	StateSlewing  = "Slewing"
	StateTracking = "Tracking"
	StateGuiding  = "Guiding"
)

// Status is the live telescope status record. Angle fields are degrees.
type Status struct {
	AzDeg     float64   `json:"az_deg"`
	AzCmdDeg  float64   `json:"az_cmd_deg"`
	RotDeg    float64   `json:"rot_deg"`
	RotCmdDeg float64   `json:"rot_cmd_deg"`
	ElDeg     float64   `json:"el_deg"`
	RADeg     float64   `json:"ra_deg"`
	DecDeg    float64   `json:"dec_deg"`
	TelState  string    `json:"tel_state"`
	Updated   time.Time `json:"updated"`
}

// Subscriber is notified after each status update with a copy of the new
// record. Callbacks run on the updating goroutine and must not block.
type Subscriber func(Status)

// Site is the shared context for one observatory site.
type Site struct {
	Observer astro.Observer
	TZ       *time.Location

	logger *zap.Logger

	mu     sync.RWMutex
	status Status
	subs   []Subscriber
}

// New creates a site context. A nil tz means UTC.
func New(observer astro.Observer, tz *time.Location, logger *zap.Logger) *Site {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Site{
		Observer: observer,
		TZ:       tz,
		logger:   logger,
		status:   Status{TelState: StatePointing},
	}
}

// Status returns a copy of the current telescope status.
func (s *Site) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Update applies fn to the status record under the write lock and then
// notifies subscribers with the resulting copy.
func (s *Site) Update(fn func(*Status)) {
	s.mu.Lock()
	fn(&s.status)
	s.status.Updated = time.Now()
	snap := s.status
	subs := s.subs
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

// Subscribe registers a callback for status updates.
func (s *Site) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}
