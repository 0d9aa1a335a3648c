// Package influxdb ships pgadapt metrics to InfluxDB v2.
//
// Two measurements are written:
//
//	pgadapt_probe    tags: server, case, cast   fields: passed, latency_us
//	pgadapt_catalog  tags: server               fields: types, took_ms
//
// Writes are non-blocking and batched by the official client; failures
// surface through SetOnError. Every write method is a no-op when the
// client is not connected, so callers can hold a nil *Client when the
// integration is disabled.
//
// Usage:
//
//	metrics, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    metrics = nil
//	}
//	defer metrics.Close()
package influxdb
