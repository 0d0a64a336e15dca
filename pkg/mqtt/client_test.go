package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name:    "valid config",
			config:  DefaultConfig("tcp://localhost:1883", "telopsd-test"),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config, logger)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
				assert.NotNil(t, client.client)
				assert.NotNil(t, client.logger)
				assert.Equal(t, tt.config, client.config)
			}
		})
	}
}

func TestClientIsConnected(t *testing.T) {
	client, err := NewClient(DefaultConfig("tcp://localhost:1883", "telopsd-test"), zap.NewNop())
	assert.NoError(t, err)
	assert.NotNil(t, client)

	// no broker has been dialed yet
	assert.False(t, client.IsConnected())
	assert.Equal(t, DefaultOpTimeout, client.config.OpTimeout)
}

func TestClientOfflineOperationsFail(t *testing.T) {
	client, err := NewClient(DefaultConfig("tcp://localhost:1883", "telopsd-test"), zap.NewNop())
	assert.NoError(t, err)

	assert.Error(t, client.Publish(CollisionStatusTopic(), 0, false, []byte("{}")))
	assert.Error(t, client.Subscribe(TelemetryTopic(), 0, func(string, []byte) error { return nil }))
	assert.Error(t, client.Unsubscribe(TelemetryTopic()))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "telops/telemetry/update", TelemetryTopic())
	assert.Equal(t, "telops/collisions/status", CollisionStatusTopic())
	assert.Equal(t, "telops/rotations/event", RotationEventTopic())

	assert.True(t, ValidateTopic(CollisionStatusTopic()))
	assert.False(t, ValidateTopic("other/collisions/status"))

	parts, err := ParseTopic(TelemetryTopic())
	assert.NoError(t, err)
	assert.Equal(t, []string{"telemetry", "update"}, parts)

	_, err = ParseTopic("bogus")
	assert.Error(t, err)
}

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage(MessageTypeTelemetry, "ocs-bridge", TelemetrySample{
		Values: map[string]interface{}{"STATS.AZ_DEG": 123.4},
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, MessageTypeTelemetry, msg.Type)

	var sample TelemetrySample
	assert.NoError(t, msg.UnmarshalPayload(&sample))
	assert.Equal(t, 123.4, sample.Values["STATS.AZ_DEG"])
}
