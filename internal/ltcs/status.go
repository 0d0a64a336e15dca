// Package ltcs monitors the laser traffic control system database for
// collision windows involving the local telescope and reduces them to a
// single live open/closed status with countdown semantics.
package ltcs

import (
	"fmt"
	"time"
)

// Status is the collision-window system state. The numeric codes are part
// of the external contract and must not be renumbered.
type Status int

const (
	// StatusOpen means no collision constrains observing.
	StatusOpen Status = 0
	// StatusCollisions means the current time is inside a collision window.
	StatusCollisions Status = 1
	// StatusPredicted means a collision window starts within 24 hours.
	StatusPredicted Status = 2
	// StatusDown means the upstream system is not providing data.
	StatusDown Status = 3
	// StatusError means the last poll failed (DB unreachable, query error).
	StatusError Status = 4
	// StatusUp is the transient health-check-passed state inside a poll
	// cycle; it never appears in a published snapshot.
	StatusUp Status = 5
)

var statusNames = [...]string{"OPEN", "COLLISIONS", "PREDICTED", "DOWN", "ERROR", "UP"}

// String returns the canonical status name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Event is one collision window: a half-open interval in Unix seconds
// during which observing is impacted by a conflict with another telescope.
type Event struct {
	StartSSE         float64 `json:"time_start_sse"`
	StopSSE          float64 `json:"time_stop_sse"`
	Telescope        string  `json:"telescope"`
	LaserHasPriority bool    `json:"laser_has_priority"`
}

// HealthRow is one row of the upstream system_health table.
type HealthRow struct {
	Component string
	Timestamp float64 // seconds since epoch of the component's last update
}

// Snapshot is the derived, read-only collision status record. A new
// snapshot wholly replaces the previous one on every poll cycle; consumers
// always receive a copy.
type Snapshot struct {
	Status    Status  `json:"ltcs_status"`
	StatusStr string  `json:"ltcs_status_str"`
	OK        bool    `json:"ok_collisions"`
	RemainSec float64 `json:"remain_sec"`
	RemainStr string  `json:"remain_str"` // "HH:MM:SS", blank when no countdown
	Impact    string  `json:"impact"`     // telescope driving the countdown
	Summary   string  `json:"summary"`    // e.g. " until 00:09:58 with Keck1"
	EventList string  `json:"event_list"` // " // "-joined per-event descriptions
	Events    []Event `json:"events"`

	Generated time.Time `json:"generated"`
}

// copyOut returns a deep copy safe to hand to another goroutine.
func (s Snapshot) copyOut() Snapshot {
	out := s
	out.Events = append([]Event(nil), s.Events...)
	return out
}

// formatCountdown renders a positive remaining duration as HH:MM:SS.
func formatCountdown(remainSec float64) string {
	total := int(remainSec)
	th := total / 3600
	tm := (total % 3600) / 60
	ts := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", th, tm, ts)
}

// formatEvent renders one retained event as "HH:MM -> HH:MM = Nmin".
func formatEvent(ev Event) string {
	start := time.Unix(int64(ev.StartSSE), 0)
	stop := time.Unix(int64(ev.StopSSE), 0)
	mins := int((ev.StopSSE - ev.StartSSE) / 60.0)
	return fmt.Sprintf("%s -> %s = %dmin",
		start.Format("15:04"), stop.Format("15:04"), mins)
}
