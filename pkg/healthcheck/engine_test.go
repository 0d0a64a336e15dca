package healthcheck

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func staticChecker(name string, status Status) Checker {
	return NamedCheckerFunc(name, func(ctx context.Context) *Result {
		return &Result{
			ComponentName: name,
			Status:        status,
			Timestamp:     time.Now(),
		}
	})
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{name: "no components", statuses: nil, want: StatusUnknown},
		{name: "all healthy", statuses: []Status{StatusHealthy, StatusHealthy}, want: StatusHealthy},
		{name: "one degraded", statuses: []Status{StatusHealthy, StatusDegraded}, want: StatusDegraded},
		{name: "unknown counts as degraded", statuses: []Status{StatusHealthy, StatusUnknown}, want: StatusDegraded},
		{name: "unhealthy wins", statuses: []Status{StatusDegraded, StatusUnhealthy}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(map[string]*Result, len(tt.statuses))
			for i, s := range tt.statuses {
				results[string(rune('a'+i))] = &Result{Status: s}
			}
			assert.Equal(t, tt.want, DetermineOverallStatus(results))
		})
	}
}

func TestEngineCheckAll(t *testing.T) {
	engine := NewEngine(nil, time.Second)
	engine.Register(staticChecker("db", StatusHealthy))
	engine.Register(staticChecker("monitor", StatusDegraded))

	result := engine.CheckAll(context.Background())

	assert.Equal(t, StatusDegraded, result.OverallStatus)
	assert.Len(t, result.Components, 2)
	assert.Equal(t, StatusHealthy, result.Components["db"].Status)
	assert.False(t, result.IsHealthy())
}

func TestEngineSurvivesNilResult(t *testing.T) {
	engine := NewEngine(nil, time.Second)
	engine.Register(NamedCheckerFunc("broken", func(ctx context.Context) *Result {
		return nil
	}))
	engine.Register(staticChecker("db", StatusHealthy))

	result := engine.CheckAll(context.Background())

	assert.Equal(t, StatusUnhealthy, result.OverallStatus)
	assert.Equal(t, StatusUnhealthy, result.Components["broken"].Status)
	assert.Equal(t, "checker returned no result", result.Components["broken"].Message)
	assert.Equal(t, StatusHealthy, result.Components["db"].Status)
}

func TestEngineSurvivesPanickingChecker(t *testing.T) {
	engine := NewEngine(nil, time.Second)
	engine.Register(NamedCheckerFunc("flaky", func(ctx context.Context) *Result {
		panic("boom")
	}))

	result := engine.CheckAll(context.Background())

	assert.Equal(t, StatusUnhealthy, result.OverallStatus)
	assert.Contains(t, result.Components["flaky"].Message, "boom")
}

func TestEngineUnregister(t *testing.T) {
	engine := NewEngine(nil, time.Second)
	engine.Register(staticChecker("db", StatusUnhealthy))
	engine.Unregister("db")

	result := engine.CheckAll(context.Background())
	assert.Equal(t, StatusUnknown, result.OverallStatus)
}
