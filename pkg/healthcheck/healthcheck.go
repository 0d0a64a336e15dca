// Package healthcheck aggregates component liveness probes for the daemon:
// the collision monitor, the LTCS database, and the telemetry bridge each
// register a Checker, and the engine reduces their results to one overall
// status for /healthz and the bus.
package healthcheck

import (
	"context"
	"time"
)

// Status is a component health level.
type Status string

const (
	// StatusHealthy means the component is fully operational
	StatusHealthy Status = "healthy"
	// StatusDegraded means the component works but with reduced capability
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means the component is not operational
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown means no probe has run or its result is indeterminate
	StatusUnknown Status = "unknown"
)

// severity orders statuses for aggregation; higher is worse. Unknown sits
// at degraded level so a silent component never reads as healthy.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded, StatusUnknown:
		return 1
	case StatusUnhealthy:
		return 2
	}
	return 1
}

// Result is one component's probe outcome.
type Result struct {
	ComponentName string `json:"component"`
	Status        Status `json:"status"`
	// Message carries failure context when the status is not healthy
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	// Details holds component-specific fields for operators
	Details map[string]interface{} `json:"details,omitempty"`
}

// Checker is a probeable component.
type Checker interface {
	Check(ctx context.Context) *Result
	Name() string
}

// NamedCheckerFunc adapts a plain function to a named Checker.
func NamedCheckerFunc(name string, fn func(ctx context.Context) *Result) Checker {
	return &namedChecker{name: name, fn: fn}
}

type namedChecker struct {
	name string
	fn   func(ctx context.Context) *Result
}

func (c *namedChecker) Check(ctx context.Context) *Result { return c.fn(ctx) }
func (c *namedChecker) Name() string                      { return c.name }

// AggregatedResult is one full sweep over the registered components.
type AggregatedResult struct {
	OverallStatus Status             `json:"status"`
	Components    map[string]*Result `json:"components"`
	Timestamp     time.Time          `json:"timestamp"`
}

// IsHealthy reports whether every component came back healthy.
func (ar *AggregatedResult) IsHealthy() bool {
	return ar.OverallStatus == StatusHealthy
}

// DetermineOverallStatus reduces component results to the worst observed
// level: any unhealthy component makes the whole service unhealthy, any
// degraded or unknown one makes it degraded. No components means unknown.
func DetermineOverallStatus(results map[string]*Result) Status {
	if len(results) == 0 {
		return StatusUnknown
	}

	worst := StatusHealthy
	for _, result := range results {
		if result.Status.severity() > worst.severity() {
			switch result.Status.severity() {
			case 2:
				worst = StatusUnhealthy
			default:
				worst = StatusDegraded
			}
		}
	}
	return worst
}
