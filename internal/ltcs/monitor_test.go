package ltcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeStore serves canned rows for monitor tests.
type fakeStore struct {
	health  []HealthRow
	active  []Event
	sim     []Event
	predict []Event
	err     error

	polls atomic.Int64
}

func (f *fakeStore) HealthRows(ctx context.Context) ([]HealthRow, error) {
	f.polls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.health == nil {
		return []HealthRow{{Component: "ltcs_main", Timestamp: float64(time.Now().Unix())}}, nil
	}
	return f.health, nil
}

func (f *fakeStore) ActiveCollisions(ctx context.Context, laser string) ([]Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.active, nil
}

func (f *fakeStore) SimPredictions(ctx context.Context, laser string) ([]Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sim, nil
}

func (f *fakeStore) Predictions(ctx context.Context, laser string) ([]Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.predict, nil
}

var _ Store = (*fakeStore)(nil)

// fixedNow returns a whole-second reference time so countdown arithmetic
// is exact in assertions.
func fixedNow() time.Time {
	return time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
}

func event(now time.Time, startOff, stopOff float64, scope string) Event {
	base := float64(now.Unix())
	return Event{
		StartSSE:  base + startOff,
		StopSSE:   base + stopOff,
		Telescope: scope,
	}
}

func TestMonitorInitialSnapshotIsDown(t *testing.T) {
	m := NewMonitor(&fakeStore{}, "Subaru", 5*time.Minute, nil)

	snap := m.GetStatus()
	assert.Equal(t, StatusDown, snap.Status)
	assert.Equal(t, "DOWN", snap.StatusStr)
	assert.False(t, snap.OK)
}

func TestMonitorNoEventsIsOpen(t *testing.T) {
	m := NewMonitor(&fakeStore{}, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), fixedNow())

	snap := m.GetStatus()
	assert.Equal(t, StatusOpen, snap.Status)
	assert.True(t, snap.OK)
	assert.Empty(t, snap.Events)
	assert.Empty(t, snap.RemainStr)
	assert.Empty(t, snap.EventList)
}

func TestMonitorActiveCollision(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		active: []Event{event(now, -100, 10, "Keck1")},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	assert.Equal(t, StatusCollisions, snap.Status)
	assert.False(t, snap.OK)
	assert.InDelta(t, 10, snap.RemainSec, 1e-6)
	assert.Equal(t, "00:00:10", snap.RemainStr)
	assert.Equal(t, "Keck1", snap.Impact)
	assert.Equal(t, " until 00:00:10 with Keck1", snap.Summary)
	assert.Len(t, snap.Events, 1)
}

func TestMonitorOverlappingCollisionsCountDownToLatestStop(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		active: []Event{
			event(now, -100, 10, "Keck1"),
			event(now, -50, 200, "Gemini"),
		},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	assert.Equal(t, StatusCollisions, snap.Status)
	assert.InDelta(t, 200, snap.RemainSec, 1e-6)
	assert.Equal(t, "Gemini", snap.Impact)
}

func TestMonitorUpcomingWithin24hIsPredicted(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		predict: []Event{event(now, 3600, 3900, "IRTF")},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	assert.Equal(t, StatusPredicted, snap.Status)
	assert.True(t, snap.OK)
	assert.InDelta(t, 3600, snap.RemainSec, 1e-6)
	assert.Equal(t, "01:00:00", snap.RemainStr)
	assert.Equal(t, " in 01:00:00 with IRTF", snap.Summary)
	assert.NotEmpty(t, snap.EventList)
}

func TestMonitorFarFutureIsOpen(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		predict: []Event{event(now, 90000, 93600, "CFHT")},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	assert.Equal(t, StatusOpen, snap.Status)
	assert.True(t, snap.OK)
	// beyond the prediction horizon the countdown and listing are blanked
	assert.Empty(t, snap.RemainStr)
	assert.Empty(t, snap.Summary)
	assert.Empty(t, snap.EventList)
	assert.Len(t, snap.Events, 1)
}

func TestMonitorDropsPastEvents(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		active:  []Event{event(now, -300, -100, "Keck2")},
		predict: []Event{event(now, 600, 900, "Keck1")},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	assert.Equal(t, StatusPredicted, snap.Status)
	assert.Len(t, snap.Events, 1)
	assert.Equal(t, "Keck1", snap.Impact)
	assert.NotContains(t, snap.EventList, " // ")
}

func TestMonitorEventListSeparators(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		predict: []Event{
			event(now, 600, 900, "Keck1"),
			event(now, 1200, 1500, "Keck2"),
			event(now, 1800, 2100, "Gemini"),
		},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	assert.Equal(t, 2, strings.Count(snap.EventList, " // "))
	for _, ev := range snap.Events {
		assert.Contains(t, snap.EventList, formatEvent(ev))
	}
}

func TestMonitorQueryErrorYieldsErrorStatus(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), fixedNow())

	snap := m.GetStatus()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "ERROR", snap.StatusStr)
	assert.False(t, snap.OK)

	// recovery on the next successful poll
	store.err = nil
	m.Update(context.Background(), fixedNow())
	assert.Equal(t, StatusOpen, m.GetStatus().Status)
}

func TestMonitorStaleHealthStaysUp(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		health: []HealthRow{
			{Component: "ltcs_main", Timestamp: float64(now.Unix()) - 3600},
		},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	// staleness is logged but does not degrade the published status
	assert.Equal(t, StatusOpen, m.GetStatus().Status)
}

func TestMonitorStalenessUsesFractionalSeconds(t *testing.T) {
	// the heartbeat is 300.9s old; whole-second truncation of the
	// reference time would read it as exactly 300s and miss it
	now := fixedNow().Add(900 * time.Millisecond)
	store := &fakeStore{
		health: []HealthRow{
			{Component: "ltcs_main", Timestamp: float64(fixedNow().Unix()) - 300},
		},
	}

	core, logs := observer.New(zap.WarnLevel)
	m := NewMonitor(store, "Subaru", 300*time.Second, zap.New(core))
	m.Update(context.Background(), now)

	assert.Equal(t, 1, logs.FilterMessage("LTCS process is stale").Len())
	assert.Equal(t, StatusOpen, m.GetStatus().Status)
}

func TestMonitorSnapshotCopyIsolation(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{
		predict: []Event{event(now, 600, 900, "Keck1")},
	}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	m.Update(context.Background(), now)

	snap := m.GetStatus()
	snap.Events[0].Telescope = "tampered"

	assert.Equal(t, "Keck1", m.GetStatus().Events[0].Telescope)
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "00:00:09", formatCountdown(9.7))
	assert.Equal(t, "01:00:00", formatCountdown(3600))
	assert.Equal(t, "27:46:39", formatCountdown(99999))
}

func TestFormatEvent(t *testing.T) {
	start := time.Date(2026, 8, 20, 10, 5, 0, 0, time.Local)
	stop := start.Add(25 * time.Minute)

	ev := Event{
		StartSSE:  float64(start.Unix()),
		StopSSE:   float64(stop.Unix()),
		Telescope: "Keck1",
	}
	want := fmt.Sprintf("%s -> %s = 25min",
		start.Format("15:04"), stop.Format("15:04"))
	assert.Equal(t, want, formatEvent(ev))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OPEN", StatusOpen.String())
	assert.Equal(t, "COLLISIONS", StatusCollisions.String())
	assert.Equal(t, "PREDICTED", StatusPredicted.String())
	assert.Equal(t, "DOWN", StatusDown.String())
	assert.Equal(t, "ERROR", StatusError.String())
	assert.Equal(t, "UP", StatusUp.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestPollerClampsInterval(t *testing.T) {
	m := NewMonitor(&fakeStore{}, "Subaru", 5*time.Minute, nil)
	p := NewPoller(m, 10*time.Millisecond, nil)
	assert.Equal(t, MinPollInterval, p.interval)
}

func TestPollerStartStop(t *testing.T) {
	store := &fakeStore{}
	m := NewMonitor(store, "Subaru", 5*time.Minute, nil)
	p := NewPoller(m, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	assert.True(t, p.IsRunning())
	// the first poll fires immediately
	assert.Eventually(t, func() bool { return store.polls.Load() >= 1 },
		time.Second, 10*time.Millisecond)

	p.Stop()
	assert.Eventually(t, func() bool { return !p.IsRunning() },
		time.Second, 10*time.Millisecond)
}
