package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxPayloadSize caps message payloads at 1MB, a typical broker limit.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Retained messages are kept by the broker and delivered to new
// subscribers; use them for latest-state topics such as summaries.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validatePublish(topic, payload, qos); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	return nil
}

// PublishJSON marshals v and publishes it with the configured QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained)
}

// PublishProbeResult publishes one probe outcome to the server's probe
// topic for caseName.
func (c *Client) PublishProbeResult(server, caseName string, payload any) error {
	return c.PublishJSON(c.topics.ProbeResult(server, caseName), payload, false)
}

type catalogMessage struct {
	Server    string `json:"server"`
	Types     int    `json:"types"`
	TookMS    int64  `json:"took_ms"`
	Timestamp string `json:"timestamp"`
}

// PublishCatalogRefresh publishes a retained notice that server's type
// catalog was reloaded.
func (c *Client) PublishCatalogRefresh(server string, types int, took time.Duration) error {
	return c.PublishJSON(c.topics.CatalogRefresh(server), catalogMessage{
		Server:    server,
		Types:     types,
		TookMS:    took.Milliseconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, true)
}
