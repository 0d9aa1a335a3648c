package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/pgadapt/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line-protocol bodies posted to
// /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newFakeInflux(t *testing.T, healthy bool) *fakeInflux {
	t.Helper()
	f := &fakeInflux{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
			f.mu.Lock()
			f.bodies = append(f.bodies, string(body))
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeInflux) received() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.bodies, "")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "pgadapt",
		Bucket:        "probes",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// ─── Connection ─────────────────────────────────────────────────────

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, testConfig("http://127.0.0.1:1"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	f := newFakeInflux(t, false)

	_, err := Connect(context.Background(), testConfig(f.srv.URL))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_HealthAndClose(t *testing.T) {
	f := newFakeInflux(t, true)

	c, err := Connect(context.Background(), testConfig(f.srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !c.IsConnected() {
		t.Fatal("IsConnected() = false after Connect()")
	}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !errors.Is(c.HealthCheck(context.Background()), ErrNotConnected) {
		t.Error("HealthCheck() after Close() should report ErrNotConnected")
	}
	c.Flush()
}

func TestNilClient(t *testing.T) {
	var c *Client
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	c.WriteProbeResult("s", "int4", "int4", true, time.Millisecond)
}

func TestOptions_Defaults(t *testing.T) {
	tests := []struct {
		batch, flush int
		wantBatch    uint
		wantFlushMS  uint
	}{
		{0, 0, defaultBatchSize, defaultFlushInterval * 1000},
		{-3, -1, defaultBatchSize, defaultFlushInterval * 1000},
		{500, 2, 500, 2000},
	}
	for _, tt := range tests {
		opts := options(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
		if got := opts.BatchSize(); got != tt.wantBatch {
			t.Errorf("BatchSize(%d) = %d, want %d", tt.batch, got, tt.wantBatch)
		}
		if got := opts.FlushInterval(); got != tt.wantFlushMS {
			t.Errorf("FlushInterval(%d) = %d, want %d", tt.flush, got, tt.wantFlushMS)
		}
	}
}

// ─── Writes ─────────────────────────────────────────────────────────

func TestWritesReachServer(t *testing.T) {
	f := newFakeInflux(t, true)

	c, err := Connect(context.Background(), testConfig(f.srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.WriteProbeResult("db:5432/app", "float8_nan", "float8", true, 1500*time.Microsecond)
	c.WriteCatalogRefresh("db:5432/app", 612, 40*time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := f.received()
	for _, want := range []string{
		`pgadapt_probe,case=float8_nan,cast=float8,server=db:5432/app latency_us=1500i,passed=true`,
		`pgadapt_catalog,server=db:5432/app took_ms=40i,types=612i`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("server body missing %q\ngot: %s", want, got)
		}
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	f := newFakeInflux(t, true)

	c, err := Connect(context.Background(), testConfig(f.srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Close() //nolint:errcheck // testing post-close behaviour
	c.WriteProbeResult("s", "bool", "bool", false, 0)

	if got := f.received(); got != "" {
		t.Errorf("write after Close() reached server: %q", got)
	}
}

func TestProbePointLineProtocol(t *testing.T) {
	at := time.Unix(1700000000, 0)
	p := probePoint("h:5432/db", "text_quote", "text", false, 250*time.Microsecond, at)

	got := write.PointToLineProtocol(p, time.Second)
	want := "pgadapt_probe,case=text_quote,cast=text,server=h:5432/db latency_us=250i,passed=false 1700000000\n"
	if got != want {
		t.Errorf("line protocol = %q, want %q", got, want)
	}
}
