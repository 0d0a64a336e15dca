// Package telemetry feeds telescope status from the observatory control
// system bus into the site status record.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/site"
	"github.com/mk-obs/telops/pkg/mqtt"
)

// Channel names published by the control system. The bridge only consumes
// the channels it has a mapping for; everything else in a sample is
// ignored.
const (
	ChanAzDeg    = "STATS.AZ_DEG"
	ChanAzCmd    = "STATS.AZ_CMD"
	ChanElDeg    = "STATS.EL_DEG"
	ChanRotDeg   = "FITS.SBR.INSROT"
	ChanRotCmd   = "FITS.SBR.INSROT_CMD"
	ChanRADeg    = "FITS.SBR.RA_DEG"
	ChanDecDeg   = "FITS.SBR.DEC_DEG"
	ChanTelDrive = "STATL.TELDRIVE"
)

// sampleBuffer bounds how many undelivered samples queue up before the
// bridge starts dropping.
const sampleBuffer = 64

// Bridge subscribes to telemetry samples on the bus and applies them to
// the site status record from a dedicated consumer goroutine.
type Bridge struct {
	client *mqtt.Client
	site   *site.Site
	logger *zap.Logger

	samples chan mqtt.TelemetrySample

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewBridge creates a bridge between the bus client and the site record.
func NewBridge(client *mqtt.Client, st *site.Site, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client:  client,
		site:    st,
		logger:  logger,
		samples: make(chan mqtt.TelemetrySample, sampleBuffer),
		stopCh:  make(chan struct{}),
	}
}

// Start subscribes to the telemetry topic and launches the consumer.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	stopCh := b.stopCh
	b.mu.Unlock()

	if err := b.client.Subscribe(mqtt.TelemetryTopic(), 0, b.onMessage); err != nil {
		b.setStopped()
		return fmt.Errorf("failed to subscribe to telemetry: %w", err)
	}

	go b.consume(ctx, stopCh)
	b.logger.Info("Telemetry bridge started", zap.String("topic", mqtt.TelemetryTopic()))
	return nil
}

// Stop halts the consumer and unsubscribes.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	close(b.stopCh)
	b.stopCh = make(chan struct{})
	b.mu.Unlock()

	if err := b.client.Unsubscribe(mqtt.TelemetryTopic()); err != nil {
		b.logger.Warn("Failed to unsubscribe from telemetry", zap.Error(err))
	}
}

// IsRunning reports whether the consumer loop is active.
func (b *Bridge) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bridge) setStopped() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
}

// onMessage runs on the MQTT client's network goroutine; it only decodes
// and enqueues so the network loop never blocks on our consumer.
func (b *Bridge) onMessage(topic string, payload []byte) error {
	var msg mqtt.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}

	var sample mqtt.TelemetrySample
	if err := msg.UnmarshalPayload(&sample); err != nil {
		return fmt.Errorf("failed to decode telemetry sample: %w", err)
	}

	select {
	case b.samples <- sample:
	default:
		b.logger.Warn("Telemetry sample dropped, consumer behind")
	}
	return nil
}

func (b *Bridge) consume(ctx context.Context, stopCh chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			b.setStopped()
			return
		case <-stopCh:
			b.setStopped()
			return
		case sample := <-b.samples:
			b.Apply(sample)
		}
	}
}

// Apply folds one telemetry sample into the site status record.
func (b *Bridge) Apply(sample mqtt.TelemetrySample) {
	b.site.Update(func(st *site.Status) {
		for name, raw := range sample.Values {
			switch name {
			case ChanAzDeg:
				setFloat(&st.AzDeg, raw)
			case ChanAzCmd:
				setFloat(&st.AzCmdDeg, raw)
			case ChanElDeg:
				setFloat(&st.ElDeg, raw)
			case ChanRotDeg:
				setFloat(&st.RotDeg, raw)
			case ChanRotCmd:
				setFloat(&st.RotCmdDeg, raw)
			case ChanRADeg:
				setFloat(&st.RADeg, raw)
			case ChanDecDeg:
				setFloat(&st.DecDeg, raw)
			case ChanTelDrive:
				if s, ok := raw.(string); ok {
					st.TelState = NormalizeDriveState(s)
				}
			}
		}
	})
}

// NormalizeDriveState collapses control-system drive states to the
// canonical set. The system reports guiding with the active guider in
// parentheses, e.g. "Guiding(AG1)"; all of those count as Guiding.
func NormalizeDriveState(raw string) string {
	if strings.HasPrefix(raw, site.StateGuiding) {
		return site.StateGuiding
	}
	switch raw {
	case site.StatePointing, site.StateSlewing, site.StateTracking:
		return raw
	}
	return raw
}

func setFloat(dst *float64, raw interface{}) {
	if v, ok := raw.(float64); ok {
		*dst = v
	}
}
