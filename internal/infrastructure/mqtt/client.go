package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/pgadapt/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for publishing pgadapt results.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	connected atomic.Bool

	callbackMu   sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
}

// Connect establishes a connection to the broker.
//
// It configures a Last Will on the status topic so subscribers see the
// client go offline if it dies, then publishes a retained online status
// once connected.
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrDisabled when switched off, ErrConnectionFailed when the
//     initial connection fails within the timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	c := newClient(cfg)
	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; mark connected now so
	// IsConnected is true as soon as Connect returns.
	c.connected.Store(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{cfg: cfg, topics: Topics{Prefix: cfg.TopicPrefix}}
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// publishStatus sends the retained online/offline notice.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	id := c.cfg.Broker.ClientID
	return c.client.Publish(c.topics.Status(id), byte(c.cfg.QoS), true, statusPayload(id, status, reason))
}

func (c *Client) callbacks() (func(), func(error)) {
	c.callbackMu.RLock()
	defer c.callbackMu.RUnlock()
	return c.onConnect, c.onDisconnect
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.publishStatus("online", "")
	if onConnect, _ := c.callbacks(); onConnect != nil {
		onConnect()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	if _, onDisconnect := c.callbacks(); onDisconnect != nil {
		onDisconnect(err)
	}
}

// Close publishes a graceful offline status and disconnects. It is safe
// on a nil or never-connected client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck verifies the connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.connected.Load() && c.client.IsConnected()
}

// SetOnConnect sets a callback invoked on initial connect and every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}
