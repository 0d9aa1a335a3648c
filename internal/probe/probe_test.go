package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/pgadapt/internal/adapt"
	"github.com/nerrad567/pgadapt/internal/decode"
	"github.com/nerrad567/pgadapt/internal/infrastructure/database"
	"github.com/nerrad567/pgadapt/internal/session"
	_ "github.com/nerrad567/pgadapt/migrations"
)

// ─── Offline server ─────────────────────────────────────────────────

// echoServer stands in for PostgreSQL: it returns the value's array-element
// text, which matches the server's output form, decoded as the cast type.
type echoServer struct {
	reg     *adapt.Registry
	dec     *decode.Decoder
	queries []string
	corrupt map[string]string
}

var castOIDs = map[string]uint32{
	"bool": pgtype.BoolOID, "int2": pgtype.Int2OID, "int4": pgtype.Int4OID, "int8": pgtype.Int8OID,
	"oid": pgtype.OIDOID, "float4": pgtype.Float4OID, "float8": pgtype.Float8OID,
	"numeric": pgtype.NumericOID, "text": pgtype.TextOID, "bytea": pgtype.ByteaOID,
	"timestamptz": pgtype.TimestamptzOID, "interval": pgtype.IntervalOID, "uuid": pgtype.UUIDOID,
	"jsonb": pgtype.JSONBOID, "int4[]": pgtype.Int4ArrayOID, "int8[]": pgtype.Int8ArrayOID,
	"text[]": pgtype.TextArrayOID, "bool[]": pgtype.BoolArrayOID,
}

func newEchoServer(policy adapt.FloatPolicy) *echoServer {
	return &echoServer{reg: adapt.NewRegistry(adapt.WithFloatPolicy(policy)), dec: decode.New()}
}

func (s *echoServer) Mogrify(query string, args ...any) (string, error) {
	return s.reg.Interpolate(query, args, nil)
}

func (s *echoServer) Query(_ context.Context, query string, args ...any) (*session.ResultSet, error) {
	sql, err := s.Mogrify(query, args...)
	if err != nil {
		return nil, err
	}
	s.queries = append(s.queries, sql)

	cast := query[strings.LastIndex(query, "::")+2:]
	oid, ok := castOIDs[cast]
	if !ok {
		return nil, fmt.Errorf("type %q does not exist", cast)
	}

	// nil text is NULL; a non-nil value always yields a non-nil slice.
	var text []byte
	if args[0] != nil {
		a, err := s.reg.AdapterFor(args[0])
		if err != nil {
			return nil, err
		}
		if text, err = a.AppendElement([]byte{}, nil); err != nil {
			return nil, err
		}
	}
	if bad, ok := s.corrupt[cast]; ok {
		text = []byte(bad)
	}

	v, err := s.dec.Decode(oid, text)
	rs := &session.ResultSet{Fields: []session.Field{{Name: "?column?", OID: oid}}}
	rs.Rows = []session.Row{{Values: []any{v}, Err: err}}
	if err != nil {
		rs.Rows[0].Values = nil
	}
	return rs, nil
}

type memRecorder struct {
	results []Result
	err     error
}

func (m *memRecorder) Record(_ context.Context, r Result) error {
	m.results = append(m.results, r)
	return m.err
}

// offlineCases drops cases whose server output differs from the literal's
// element text, which the echo server cannot reproduce.
func offlineCases(policy adapt.FloatPolicy) []Case {
	var out []Case
	for _, c := range Cases(policy) {
		if c.Name == "interval_from_duration" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ─── Runner ─────────────────────────────────────────────────────────

func TestRunAllCasesPass(t *testing.T) {
	for _, policy := range []adapt.FloatPolicy{adapt.FloatReject, adapt.FloatAllow} {
		t.Run(policy.String(), func(t *testing.T) {
			srv := newEchoServer(policy)
			rec := &memRecorder{}

			cases := offlineCases(policy)
			results, err := NewRunner(srv, rec).Run(context.Background(), cases)
			require.NoError(t, err)
			require.Len(t, results, len(cases))

			for _, r := range results {
				assert.True(t, r.Passed, "%s: %v (literal %s)", r.Case, r.Err, r.Literal)
			}
			assert.Len(t, rec.results, len(cases))
			assert.Equal(t, Summary{Total: len(cases), Passed: len(cases)}, Summarise(results))
		})
	}
}

func TestCasesRespectFloatPolicy(t *testing.T) {
	names := func(cs []Case) map[string]bool {
		m := make(map[string]bool)
		for _, c := range cs {
			m[c.Name] = true
		}
		return m
	}
	assert.False(t, names(Cases(adapt.FloatReject))["float8_nan"])
	assert.True(t, names(Cases(adapt.FloatAllow))["float8_nan"])
}

func TestRunStatementShape(t *testing.T) {
	srv := newEchoServer(adapt.FloatReject)
	results, err := NewRunner(srv).Run(context.Background(), []Case{
		{Name: "int8_min", Value: int64(-9223372036854775808), Cast: "int8"},
	})
	require.NoError(t, err)
	require.True(t, results[0].Passed, "%v", results[0].Err)

	// The parentheses keep the unary minus from binding after the cast.
	assert.Equal(t, []string{"SELECT ( -9223372036854775808)::int8"}, srv.queries)
	assert.Equal(t, " -9223372036854775808", results[0].Literal)
}

func TestRunReportsFailures(t *testing.T) {
	srv := newEchoServer(adapt.FloatReject)
	srv.corrupt = map[string]string{"int4": "7"}

	cases := []Case{
		{Name: "mismatch", Value: int32(1), Cast: "int4"},
		{Name: "unadaptable", Value: struct{}{}, Cast: "text"},
		{Name: "unknown_type", Value: "x", Cast: "nosuchtype"},
		{Name: "custom_equal", Value: "ABC", Cast: "text", Equal: func(w, g any) bool {
			return strings.EqualFold(w.(string), g.(string))
		}},
	}
	rec := &memRecorder{err: errors.New("disk full")}
	results, err := NewRunner(srv, rec).Run(context.Background(), cases)
	require.NoError(t, err, "recorder errors do not abort the run")

	assert.ErrorIs(t, results[0].Err, ErrMismatch)
	assert.Equal(t, int32(7), results[0].Got)
	assert.ErrorIs(t, results[1].Err, adapt.ErrAdaptation)
	assert.Empty(t, results[1].Literal)
	assert.ErrorContains(t, results[2].Err, "does not exist")
	assert.True(t, results[3].Passed)
	assert.Equal(t, Summary{Total: 4, Passed: 1, Failed: 3}, Summarise(results))
	assert.Len(t, rec.results, 4)
}

func TestRunDecodeFailure(t *testing.T) {
	srv := newEchoServer(adapt.FloatReject)
	srv.corrupt = map[string]string{"uuid": "not-a-uuid"}

	results, err := NewRunner(srv).Run(context.Background(), []Case{{Name: "uuid", Value: "x", Cast: "uuid"}})
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, decode.ErrDecoding)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(newEchoServer(adapt.FloatReject)).Run(ctx, Cases(adapt.FloatReject))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

// ─── Equivalence ────────────────────────────────────────────────────

func TestEquivalent(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		want, got any
		equal     bool
	}{
		{"same instant other zone", at, at.In(time.FixedZone("", 3600)), true},
		{"different instant", at, at.Add(time.Microsecond), false},
		{"nan", nanF64(), nanF64(), true},
		{"json spacing", jsonRaw(`{"a":1}`), jsonRaw(`{"a": 1}`), true},
		{"json differs", jsonRaw(`{"a":1}`), jsonRaw(`{"a":2}`), false},
		{"empty bytes vs nil", []byte{}, []byte(nil), true},
		{"numeric scale matters", mustNumeric("1.50"), mustNumeric("1.5"), false},
		{"nested arrays", []any{[]any{int32(1)}}, []any{[]any{int32(1)}}, true},
		{"array length", []any{int32(1)}, []any{}, false},
		{"type mismatch", int32(1), int64(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equivalent(tt.want, tt.got))
		})
	}
}

// ─── Recorders ──────────────────────────────────────────────────────

func TestHistory(t *testing.T) {
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "cache.db"), BusyTimeout: 5})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	require.NoError(t, db.Migrate(context.Background()))

	ctx := context.Background()
	h := NewHistory(db, "db:5432/app")

	last, err := h.LastRun(ctx)
	require.NoError(t, err)
	assert.Empty(t, last)

	require.NoError(t, h.Record(ctx, Result{Case: "int4", Literal: "1", Passed: true, Latency: 1500 * time.Microsecond}))
	require.NoError(t, h.Record(ctx, Result{Case: "text", Literal: "'x'", Err: ErrMismatch}))

	last, err = h.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.RunID(), last)

	rows, err := h.Results(ctx, h.RunID())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "int4", rows[0].Case)
	assert.True(t, rows[0].Passed)
	assert.Equal(t, int64(1500), rows[0].LatencyUS)
	assert.False(t, rows[1].Passed)
	assert.Equal(t, ErrMismatch.Error(), rows[1].Detail)
}

type fakePoints struct {
	lines []string
}

func (f *fakePoints) WriteProbeResult(server, caseName, cast string, passed bool, latency time.Duration) {
	f.lines = append(f.lines, fmt.Sprintf("%s %s %s %v %v", server, caseName, cast, passed, latency))
}

func TestMetrics(t *testing.T) {
	w := &fakePoints{}
	m := NewMetrics(w, "db:5432/app")

	require.NoError(t, m.Record(context.Background(), Result{Case: "uuid", Cast: "uuid", Passed: true, Latency: time.Millisecond}))
	assert.Equal(t, []string{"db:5432/app uuid uuid true 1ms"}, w.lines)
}

type fakePublisher struct {
	topics []string
	msgs   []Message
	err    error
}

func (f *fakePublisher) PublishProbeResult(server, caseName string, payload any) error {
	f.topics = append(f.topics, server+"|"+caseName)
	f.msgs = append(f.msgs, payload.(Message))
	return f.err
}

func TestBroadcast(t *testing.T) {
	p := &fakePublisher{}
	b := NewBroadcast(p, "db:5432/app", "run-1")
	ctx := context.Background()

	require.NoError(t, b.Record(ctx, Result{Case: "int4", Cast: "int4", Literal: "1", Passed: true, Latency: 2 * time.Millisecond}))
	require.NoError(t, b.Record(ctx, Result{Case: "text", Cast: "text", Err: ErrMismatch}))

	assert.Equal(t, []string{"db:5432/app|int4", "db:5432/app|text"}, p.topics)
	assert.Equal(t, Message{RunID: "run-1", Server: "db:5432/app", Case: "int4", Cast: "int4", Literal: "1", Passed: true, LatencyUS: 2000}, p.msgs[0])
	assert.Equal(t, ErrMismatch.Error(), p.msgs[1].Error)

	p.err = errors.New("broker gone")
	err := b.Record(ctx, Result{Case: "uuid"})
	assert.ErrorContains(t, err, "publishing probe result uuid")
}

func nanF64() float64 { return math.NaN() }

func jsonRaw(s string) json.RawMessage { return json.RawMessage(s) }
