package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/nerrad567/pgadapt/internal/adapt"
	"github.com/nerrad567/pgadapt/internal/decode"
)

// Field describes a result column.
type Field struct {
	Name   string
	OID    uint32
	Format int16
}

// Row is one decoded row. When decoding fails Values is nil and Err holds
// a *decode.Error naming the column; other rows are unaffected.
type Row struct {
	Values []any
	Err    error
}

// ResultSet is the decoded output of one statement.
type ResultSet struct {
	Fields     []Field
	Rows       []Row
	CommandTag string
}

// Err returns the first row error, if any.
func (rs *ResultSet) Err() error {
	for _, r := range rs.Rows {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Exec runs query with args adapted client-side and returns the command
// tag of the last statement.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	results, err := c.run(ctx, query, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if len(results) == 0 {
		return pgconn.CommandTag{}, nil
	}
	return results[len(results)-1].CommandTag, nil
}

// Query runs query with args adapted client-side and decodes the rows of
// the last statement.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	results, err := c.run(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &ResultSet{}, nil
	}
	return c.decodeResult(results[len(results)-1]), nil
}

func (c *Conn) run(ctx context.Context, query string, args []any) ([]*pgconn.Result, error) {
	sql, err := c.reg.Interpolate(query, args, c)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("executing", "bytes", len(sql), "args", len(args))

	results, err := c.exec.execSimple(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	for _, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("executing query: %w", r.Err)
		}
	}
	return results, nil
}

func (c *Conn) decodeResult(res *pgconn.Result) *ResultSet {
	rs := &ResultSet{
		Fields:     make([]Field, len(res.FieldDescriptions)),
		Rows:       make([]Row, len(res.Rows)),
		CommandTag: res.CommandTag.String(),
	}
	cols := make([]decode.Column, len(res.FieldDescriptions))
	for i, fd := range res.FieldDescriptions {
		rs.Fields[i] = Field{Name: fd.Name, OID: fd.DataTypeOID, Format: fd.Format}
		cols[i] = decode.Column{OID: fd.DataTypeOID, Format: fd.Format}
	}

	enc := c.Encoding()
	transcode := adapt.SupportedEncoding(enc)
	for i, raw := range res.Rows {
		if transcode {
			var err error
			raw, err = toUTF8(raw, cols, enc)
			if err != nil {
				rs.Rows[i] = Row{Err: err}
				continue
			}
		}
		values, err := c.dec.DecodeRowFormats(cols, raw)
		rs.Rows[i] = Row{Values: values, Err: err}
	}
	return rs
}

// toUTF8 converts the text-format values of a row from the client
// encoding into a new slice. Binary values are left alone.
func toUTF8(raw [][]byte, cols []decode.Column, enc string) ([][]byte, error) {
	out := make([][]byte, len(raw))
	for i, b := range raw {
		if b == nil || i >= len(cols) || cols[i].Format != pgtype.TextFormatCode {
			out[i] = b
			continue
		}
		u, err := adapt.FromClient(b, enc)
		if err != nil {
			return nil, &decode.Error{Column: i, OID: cols[i].OID, Cause: err}
		}
		out[i] = u
	}
	return out, nil
}
