// Package mqtt defines topic conventions for the operations bus.
package mqtt

import (
	"fmt"
	"strings"
)

// Topic naming conventions.
// Format: telops/{area}/{action}[/{resource}]
const (
	// TopicPrefix is the root prefix for all operations-bus topics
	TopicPrefix = "telops"

	// Areas
	AreaTelemetry  = "telemetry"
	AreaCollisions = "collisions"
	AreaRotations  = "rotations"
	AreaHealth     = "health"

	// Actions
	ActionStatus = "status"
	ActionUpdate = "update"
	ActionEvent  = "event"
)

// Topic joins segments under the operations-bus prefix.
func Topic(parts ...string) string {
	return strings.Join(append([]string{TopicPrefix}, parts...), "/")
}

// TelemetryTopic is where the observatory control system bridge publishes
// raw telemetry samples.
func TelemetryTopic() string {
	return Topic(AreaTelemetry, ActionUpdate)
}

// CollisionStatusTopic carries the derived collision snapshot.
func CollisionStatusTopic() string {
	return Topic(AreaCollisions, ActionStatus)
}

// RotationEventTopic carries solved rotation rows.
func RotationEventTopic() string {
	return Topic(AreaRotations, ActionEvent)
}

// HealthStatusTopic carries aggregated component health.
func HealthStatusTopic() string {
	return Topic(AreaHealth, ActionStatus)
}

// ParseTopic extracts the segments after the prefix.
func ParseTopic(topic string) ([]string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[0] != TopicPrefix {
		return nil, fmt.Errorf("invalid topic format: must start with %s", TopicPrefix)
	}
	return parts[1:], nil
}

// ValidateTopic checks if a topic follows the bus conventions.
func ValidateTopic(topic string) bool {
	parts := strings.Split(topic, "/")
	return len(parts) >= 3 && parts[0] == TopicPrefix
}
