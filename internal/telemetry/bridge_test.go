package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mk-obs/telops/internal/astro"
	"github.com/mk-obs/telops/internal/site"
	"github.com/mk-obs/telops/pkg/mqtt"
)

func testSite() *site.Site {
	return site.New(astro.Observer{Name: "Subaru", LatDeg: 19.8285}, time.UTC, nil)
}

func TestApplyUpdatesStatus(t *testing.T) {
	st := testSite()
	b := NewBridge(nil, st, nil)

	b.Apply(mqtt.TelemetrySample{Values: map[string]interface{}{
		ChanAzDeg:    123.4,
		ChanAzCmd:    125.0,
		ChanElDeg:    60.5,
		ChanRotDeg:   -42.0,
		ChanRotCmd:   -40.0,
		ChanRADeg:    37.95,
		ChanDecDeg:   89.26,
		ChanTelDrive: "Tracking",
		"UNKNOWN.CHANNEL": 1.0,
	}})

	status := st.Status()
	assert.Equal(t, 123.4, status.AzDeg)
	assert.Equal(t, 125.0, status.AzCmdDeg)
	assert.Equal(t, 60.5, status.ElDeg)
	assert.Equal(t, -42.0, status.RotDeg)
	assert.Equal(t, -40.0, status.RotCmdDeg)
	assert.Equal(t, 37.95, status.RADeg)
	assert.Equal(t, 89.26, status.DecDeg)
	assert.Equal(t, site.StateTracking, status.TelState)
	assert.False(t, status.Updated.IsZero())
}

func TestApplyIgnoresWrongTypes(t *testing.T) {
	st := testSite()
	b := NewBridge(nil, st, nil)

	b.Apply(mqtt.TelemetrySample{Values: map[string]interface{}{
		ChanAzDeg:    "not a number",
		ChanTelDrive: 42.0,
	}})

	status := st.Status()
	assert.Equal(t, 0.0, status.AzDeg)
	assert.Equal(t, site.StatePointing, status.TelState)
}

func TestNormalizeDriveState(t *testing.T) {
	assert.Equal(t, site.StateGuiding, NormalizeDriveState("Guiding(AG1)"))
	assert.Equal(t, site.StateGuiding, NormalizeDriveState("Guiding(SV)"))
	assert.Equal(t, site.StateGuiding, NormalizeDriveState("Guiding"))
	assert.Equal(t, site.StateSlewing, NormalizeDriveState("Slewing"))
	assert.Equal(t, site.StateTracking, NormalizeDriveState("Tracking"))
	// unknown states pass through untouched
	assert.Equal(t, "Parked", NormalizeDriveState("Parked"))
}

func TestSubscriberNotified(t *testing.T) {
	st := testSite()
	b := NewBridge(nil, st, nil)

	var seen []site.Status
	st.Subscribe(func(s site.Status) { seen = append(seen, s) })

	b.Apply(mqtt.TelemetrySample{Values: map[string]interface{}{ChanAzDeg: 10.0}})
	b.Apply(mqtt.TelemetrySample{Values: map[string]interface{}{ChanAzDeg: 20.0}})

	assert.Len(t, seen, 2)
	assert.Equal(t, 10.0, seen[0].AzDeg)
	assert.Equal(t, 20.0, seen[1].AzDeg)
}

func TestOnMessageDecodesEnvelope(t *testing.T) {
	st := testSite()
	b := NewBridge(nil, st, nil)

	msg, err := mqtt.NewMessage(mqtt.MessageTypeTelemetry, "ocs-bridge",
		mqtt.TelemetrySample{Values: map[string]interface{}{ChanAzDeg: 55.0}})
	assert.NoError(t, err)

	payload, err := json.Marshal(msg)
	assert.NoError(t, err)

	assert.NoError(t, b.onMessage(mqtt.TelemetryTopic(), payload))

	select {
	case sample := <-b.samples:
		assert.Equal(t, 55.0, sample.Values[ChanAzDeg])
	default:
		t.Fatal("sample was not enqueued")
	}

	assert.Error(t, b.onMessage(mqtt.TelemetryTopic(), []byte("not json")))
}
