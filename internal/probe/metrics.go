package probe

import (
	"context"
	"fmt"
	"time"
)

// PointWriter is satisfied by *influxdb.Client.
type PointWriter interface {
	WriteProbeResult(server, caseName, cast string, passed bool, latency time.Duration)
}

// Metrics forwards results to a PointWriter tagged with the server key.
type Metrics struct {
	w         PointWriter
	serverKey string
}

// NewMetrics creates a Recorder writing to w.
func NewMetrics(w PointWriter, serverKey string) *Metrics {
	return &Metrics{w: w, serverKey: serverKey}
}

// Record implements Recorder. Writes are asynchronous and never fail here.
func (m *Metrics) Record(_ context.Context, r Result) error {
	m.w.WriteProbeResult(m.serverKey, r.Case, r.Cast, r.Passed, r.Latency)
	return nil
}

// ResultPublisher is satisfied by *mqtt.Client.
type ResultPublisher interface {
	PublishProbeResult(server, caseName string, payload any) error
}

// Message is the JSON payload Broadcast publishes for each result.
type Message struct {
	RunID     string `json:"run_id,omitempty"`
	Server    string `json:"server"`
	Case      string `json:"case"`
	Cast      string `json:"cast"`
	Literal   string `json:"literal"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
	LatencyUS int64  `json:"latency_us"`
}

// Broadcast publishes every result as a Message.
type Broadcast struct {
	p         ResultPublisher
	serverKey string
	runID     string
}

// NewBroadcast creates a Recorder publishing to p. runID may be empty.
func NewBroadcast(p ResultPublisher, serverKey, runID string) *Broadcast {
	return &Broadcast{p: p, serverKey: serverKey, runID: runID}
}

// Record implements Recorder.
func (b *Broadcast) Record(_ context.Context, r Result) error {
	msg := Message{
		RunID:     b.runID,
		Server:    b.serverKey,
		Case:      r.Case,
		Cast:      r.Cast,
		Literal:   r.Literal,
		Passed:    r.Passed,
		LatencyUS: r.Latency.Microseconds(),
	}
	if r.Err != nil {
		msg.Error = r.Err.Error()
	}
	if err := b.p.PublishProbeResult(b.serverKey, r.Case, msg); err != nil {
		return fmt.Errorf("publishing probe result %s: %w", r.Case, err)
	}
	return nil
}
