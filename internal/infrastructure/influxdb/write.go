package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementProbe   = "pgadapt_probe"
	measurementCatalog = "pgadapt_catalog"
)

// WriteProbeResult records one round-trip probe case. Writes are batched
// and dropped silently when the client is not connected.
func (c *Client) WriteProbeResult(server, caseName, cast string, passed bool, latency time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(probePoint(server, caseName, cast, passed, latency, time.Now()))
}

// WriteCatalogRefresh records a completed catalog refresh.
func (c *Client) WriteCatalogRefresh(server string, types int, took time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(catalogPoint(server, types, took, time.Now()))
}

func probePoint(server, caseName, cast string, passed bool, latency time.Duration, at time.Time) *write.Point {
	return write.NewPoint(measurementProbe,
		map[string]string{
			"server": server,
			"case":   caseName,
			"cast":   cast,
		},
		map[string]any{
			"passed":     passed,
			"latency_us": latency.Microseconds(),
		},
		at)
}

func catalogPoint(server string, types int, took time.Duration, at time.Time) *write.Point {
	return write.NewPoint(measurementCatalog,
		map[string]string{"server": server},
		map[string]any{
			"types":   types,
			"took_ms": took.Milliseconds(),
		},
		at)
}
