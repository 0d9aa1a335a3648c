package session

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/pgadapt/internal/adapt"
	"github.com/nerrad567/pgadapt/internal/catalog"
	"github.com/nerrad567/pgadapt/internal/decode"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeParams struct {
	status map[string]string
	tx     byte
}

func (p *fakeParams) ParameterStatus(key string) string { return p.status[key] }
func (p *fakeParams) TxStatus() byte                    { return p.tx }

type fakeExec struct {
	sent    []string
	results []*pgconn.Result
	err     error
}

func (e *fakeExec) execSimple(_ context.Context, sql string) ([]*pgconn.Result, error) {
	e.sent = append(e.sent, sql)
	return e.results, e.err
}

func utf8Params() *fakeParams {
	return &fakeParams{
		status: map[string]string{
			"client_encoding":             "UTF8",
			"standard_conforming_strings": "on",
			"server_version":              "16.2 (Debian 16.2-1.pgdg120+2)",
		},
		tx: 'I',
	}
}

func textResult(fields []pgconn.FieldDescription, rows ...[][]byte) *pgconn.Result {
	return &pgconn.Result{
		FieldDescriptions: fields,
		Rows:              rows,
		CommandTag:        pgconn.NewCommandTag("SELECT 1"),
	}
}

func field(name string, oid uint32) pgconn.FieldDescription {
	return pgconn.FieldDescription{Name: name, DataTypeOID: oid, Format: pgtype.TextFormatCode}
}

// ─── Connection context ─────────────────────────────────────────────

func TestConnContext(t *testing.T) {
	p := utf8Params()
	c := newConn(p, &fakeExec{}, adapt.NewRegistry(), nil)

	assert.Equal(t, "UTF8", c.Encoding())
	assert.Equal(t, adapt.EscapeStandard, c.EscapeMode())
	assert.False(t, c.InTransaction())
	assert.Equal(t, 160002, c.ServerVersion())

	p.status["standard_conforming_strings"] = "off"
	p.status["client_encoding"] = "LATIN1"
	p.status["server_version_num"] = "90624"
	p.tx = 'T'
	assert.Equal(t, "LATIN1", c.Encoding())
	assert.Equal(t, adapt.EscapeExtended, c.EscapeMode())
	assert.True(t, c.InTransaction())
	assert.Equal(t, 90624, c.ServerVersion())

	p.tx = 'E'
	assert.True(t, c.InTransaction(), "failed transaction block still counts")

	delete(p.status, "client_encoding")
	assert.Equal(t, "UTF8", c.Encoding())
}

func TestParseServerVersion(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"16.2", 160002},
		{"16.2 (Debian 16.2-1.pgdg120+2)", 160002},
		{"10.23", 100023},
		{"17beta1", 170000},
		{"9.6.24", 90624},
		{"8.4", 80400},
		{"", 0},
		{"unknown", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseServerVersion(tt.in))
		})
	}
}

// ─── Exec / Query ───────────────────────────────────────────────────

func TestQueryInterpolatesWithLiveContext(t *testing.T) {
	p := utf8Params()
	ex := &fakeExec{results: []*pgconn.Result{textResult(nil)}}
	c := newConn(p, ex, adapt.NewRegistry(), nil)

	_, err := c.Query(context.Background(), "SELECT $1, $2", `a\b`, []int{1, 2})
	require.NoError(t, err)

	p.status["standard_conforming_strings"] = "off"
	_, err = c.Query(context.Background(), "SELECT $1", `a\b`)
	require.NoError(t, err)

	require.Len(t, ex.sent, 2)
	assert.Equal(t, `SELECT 'a\b', '{1,2}'`, ex.sent[0])
	assert.Equal(t, `SELECT E'a\\b'`, ex.sent[1])
}

func TestMogrifyMatchesSentText(t *testing.T) {
	ex := &fakeExec{results: []*pgconn.Result{textResult(nil)}}
	c := newConn(utf8Params(), ex, adapt.NewRegistry(), nil)

	want, err := c.Mogrify("INSERT INTO t VALUES ($1)", "it's")
	require.NoError(t, err)
	_, err = c.Exec(context.Background(), "INSERT INTO t VALUES ($1)", "it's")
	require.NoError(t, err)
	assert.Equal(t, []string{want}, ex.sent)
	assert.Equal(t, "INSERT INTO t VALUES ('it''s')", want)
}

func TestQueryDecodesRows(t *testing.T) {
	res := textResult(
		[]pgconn.FieldDescription{field("id", pgtype.Int4OID), field("tags", pgtype.TextArrayOID), field("note", pgtype.TextOID)},
		[][]byte{[]byte("1"), []byte("{a,b}"), nil},
		[][]byte{[]byte("x"), []byte("{}"), []byte("bad row")},
		[][]byte{[]byte("3"), []byte(`{"c d"}`), []byte("ok")},
	)
	c := newConn(utf8Params(), &fakeExec{results: []*pgconn.Result{res}}, adapt.NewRegistry(), decode.New())

	rs, err := c.Query(context.Background(), "SELECT id, tags, note FROM t")
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Name: "id", OID: pgtype.Int4OID},
		{Name: "tags", OID: pgtype.TextArrayOID},
		{Name: "note", OID: pgtype.TextOID},
	}, rs.Fields)
	require.Len(t, rs.Rows, 3)

	assert.Equal(t, []any{int32(1), []any{"a", "b"}, nil}, rs.Rows[0].Values)

	assert.Nil(t, rs.Rows[1].Values)
	var de *decode.Error
	require.ErrorAs(t, rs.Rows[1].Err, &de)
	assert.Equal(t, 0, de.Column)
	assert.ErrorIs(t, rs.Err(), decode.ErrDecoding)

	assert.NoError(t, rs.Rows[2].Err, "a failed row must not affect its siblings")
	assert.Equal(t, []any{int32(3), []any{"c d"}, "ok"}, rs.Rows[2].Values)
}

func TestQueryTranscodesFromClientEncoding(t *testing.T) {
	p := utf8Params()
	p.status["client_encoding"] = "LATIN1"
	res := textResult(
		[]pgconn.FieldDescription{field("word", pgtype.TextOID)},
		[][]byte{{'f', 0xFC, 'r'}},
	)
	ex := &fakeExec{results: []*pgconn.Result{res}}
	c := newConn(p, ex, adapt.NewRegistry(), nil)

	rs, err := c.Query(context.Background(), "SELECT $1", "für")
	require.NoError(t, err)

	assert.Equal(t, "SELECT 'f\xfcr'", ex.sent[0], "literal sent in LATIN1")
	require.NoError(t, rs.Err())
	assert.Equal(t, []any{"für"}, rs.Rows[0].Values)
}

func TestQueryAdaptationErrorSendsNothing(t *testing.T) {
	ex := &fakeExec{}
	c := newConn(utf8Params(), ex, adapt.NewRegistry(), nil)

	_, err := c.Query(context.Background(), "SELECT $1, $2", 1, struct{}{})
	assert.ErrorIs(t, err, adapt.ErrAdaptation)
	assert.Empty(t, ex.sent)
}

func TestExecReturnsLastCommandTag(t *testing.T) {
	ex := &fakeExec{results: []*pgconn.Result{
		{CommandTag: pgconn.NewCommandTag("BEGIN")},
		{CommandTag: pgconn.NewCommandTag("INSERT 0 2")},
	}}
	c := newConn(utf8Params(), ex, adapt.NewRegistry(), nil)

	tag, err := c.Exec(context.Background(), "BEGIN; INSERT INTO t VALUES (1), (2)")
	require.NoError(t, err)
	assert.Equal(t, int64(2), tag.RowsAffected())
}

func TestServerErrorsSurface(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "t" does not exist`}
	ex := &fakeExec{results: []*pgconn.Result{{Err: pgErr}}}
	c := newConn(utf8Params(), ex, adapt.NewRegistry(), nil)

	_, err := c.Query(context.Background(), "SELECT * FROM t")
	var got *pgconn.PgError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "42P01", got.Code)

	boom := errors.New("conn reset")
	c = newConn(utf8Params(), &fakeExec{err: boom}, adapt.NewRegistry(), nil)
	_, err = c.Exec(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, boom)
}

// ─── Catalog ────────────────────────────────────────────────────────

func TestAttachCatalogWithoutServer(t *testing.T) {
	c := newConn(utf8Params(), &fakeExec{}, adapt.NewRegistry(), nil)

	_, err := c.AttachCatalog(context.Background(), catalog.New(nil, "x"), false)
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestAttachedCatalogResolvesEnums(t *testing.T) {
	const moodOID = 70001
	cat := catalog.New(nil, "x")
	cat.Set([]catalog.Type{{OID: moodOID, Name: "mood", Namespace: "public", Kind: catalog.KindEnum, Category: "E", Delimiter: ","}})

	res := textResult([]pgconn.FieldDescription{field("m", moodOID)}, [][]byte{[]byte("happy")})
	c := newConn(utf8Params(), &fakeExec{results: []*pgconn.Result{res}}, adapt.NewRegistry(), nil)
	c.Decoder().SetResolver(cat)

	rs, err := c.Query(context.Background(), "SELECT 'happy'::mood")
	require.NoError(t, err)
	assert.Equal(t, []any{"happy"}, rs.Rows[0].Values)
}
