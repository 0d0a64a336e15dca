// Package mqtt wraps the paho client for the observatory operations bus:
// JSON publishing, handler-based subscriptions that survive reconnects,
// and the telops topic scheme.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler receives the raw payload for a subscribed topic. Errors
// are logged; the subscription stays active.
type MessageHandler func(topic string, payload []byte) error

// Config holds bus client settings.
type Config struct {
	// BrokerURL is the broker address, e.g. "tcp://localhost:1883"
	BrokerURL string
	// ClientID identifies this daemon on the bus
	ClientID string
	// Username and Password are optional broker credentials
	Username string
	Password string
	// KeepAlive is the MQTT keepalive interval
	KeepAlive time.Duration
	// ConnectTimeout bounds the initial connect attempt
	ConnectTimeout time.Duration
	// AutoReconnect re-dials the broker after a lost connection
	AutoReconnect bool
	// MaxReconnectInterval caps the reconnect backoff
	MaxReconnectInterval time.Duration
	// OpTimeout bounds publish/subscribe acknowledgement waits;
	// zero means DefaultOpTimeout
	OpTimeout time.Duration
}

// DefaultOpTimeout is the acknowledgement wait used when Config.OpTimeout
// is zero.
const DefaultOpTimeout = 5 * time.Second

// DefaultConfig returns settings suitable for a summit-network broker.
func DefaultConfig(brokerURL, clientID string) *Config {
	return &Config{
		BrokerURL:            brokerURL,
		ClientID:             clientID,
		KeepAlive:            30 * time.Second,
		ConnectTimeout:       10 * time.Second,
		AutoReconnect:        true,
		MaxReconnectInterval: 1 * time.Minute,
	}
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a bus connection. Subscriptions registered through Subscribe
// are replayed after every reconnect, so handlers keep receiving telemetry
// across broker restarts.
type Client struct {
	client mqtt.Client
	logger *zap.Logger
	config *Config

	subMu sync.Mutex
	subs  map[string]subscription
}

// NewClient builds a client from config. It does not dial; call Connect.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultOpTimeout
	}

	c := &Client{
		logger: logger,
		config: config,
		subs:   make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID(config.ClientID).
		SetKeepAlive(config.KeepAlive).
		SetConnectTimeout(config.ConnectTimeout).
		SetAutoReconnect(config.AutoReconnect).
		SetMaxReconnectInterval(config.MaxReconnectInterval)

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error("Bus connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("Bus connected", zap.String("broker", config.BrokerURL))
		c.resubscribe()
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info("Bus reconnecting", zap.String("broker", config.BrokerURL))
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect dials the broker, waiting at most ConnectTimeout.
func (c *Client) Connect() error {
	c.logger.Info("Connecting to bus", zap.String("broker", c.config.BrokerURL))

	token := c.client.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connect timed out after %v", c.config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect flushes in-flight messages and closes the connection.
func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from bus")
	c.client.Disconnect(250)
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Publish sends a raw payload to a topic and waits for the broker ack.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected")
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.config.OpTimeout) {
		return fmt.Errorf("publish to %s timed out after %v", topic, c.config.OpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	c.logger.Debug("Published",
		zap.String("topic", topic),
		zap.Int("bytes", len(payload)))
	return nil
}

// PublishJSON marshals payload and publishes it.
func (c *Client) PublishJSON(topic string, qos byte, retained bool, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}
	return c.Publish(topic, qos, retained, data)
}

// Subscribe attaches handler to a topic filter. The subscription is
// remembered and re-established after reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected")
	}

	if err := c.subscribe(topic, qos, handler); err != nil {
		return err
	}

	c.subMu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	c.logger.Info("Subscribed", zap.String("topic", topic))
	return nil
}

func (c *Client) subscribe(topic string, qos byte, handler MessageHandler) error {
	callback := func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Error("Message handler failed",
				zap.String("topic", msg.Topic()),
				zap.Error(err))
		}
	}

	token := c.client.Subscribe(topic, qos, callback)
	if !token.WaitTimeout(c.config.OpTimeout) {
		return fmt.Errorf("subscribe to %s timed out after %v", topic, c.config.OpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}

// resubscribe replays remembered subscriptions on the connect handler's
// goroutine. Paho only restores them itself with persistent sessions.
func (c *Client) resubscribe() {
	c.subMu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.subMu.Unlock()

	for topic, sub := range subs {
		if err := c.subscribe(topic, sub.qos, sub.handler); err != nil {
			c.logger.Error("Failed to restore subscription",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}

// Unsubscribe detaches from a topic and forgets it for reconnects.
func (c *Client) Unsubscribe(topic string) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected")
	}

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(c.config.OpTimeout) {
		return fmt.Errorf("unsubscribe from %s timed out after %v", topic, c.config.OpTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe from %s: %w", topic, err)
	}

	c.subMu.Lock()
	delete(c.subs, topic)
	c.subMu.Unlock()

	c.logger.Info("Unsubscribed", zap.String("topic", topic))
	return nil
}
