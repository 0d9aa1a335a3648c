package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nerrad567/pgadapt/internal/adapt"
	"github.com/nerrad567/pgadapt/internal/decode"
)

// Logger defines the logging interface used by a Conn.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// paramSource is the part of *pgconn.PgConn the connection context reads.
type paramSource interface {
	ParameterStatus(key string) string
	TxStatus() byte
}

// execer runs a simple-protocol query string and returns every result.
type execer interface {
	execSimple(ctx context.Context, sql string) ([]*pgconn.Result, error)
}

type pgconnExecer struct {
	pc *pgconn.PgConn
}

func (e pgconnExecer) execSimple(ctx context.Context, sql string) ([]*pgconn.Result, error) {
	return e.pc.Exec(ctx, sql).ReadAll()
}

// Conn is a PostgreSQL connection that adapts arguments client-side and
// decodes rows with a decode.Decoder. It implements adapt.Context from the
// server's live parameter statuses, so literals always match the current
// client_encoding and standard_conforming_strings.
//
// A Conn is not safe for concurrent use, like the *pgx.Conn it wraps.
type Conn struct {
	conn   *pgx.Conn
	params paramSource
	exec   execer
	reg    *adapt.Registry
	dec    *decode.Decoder
	logger Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection's logger.
func WithLogger(l Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// Connect dials connString and wraps the connection. A nil registry means
// adapt.Default; a nil decoder means a fresh decode.New().
func Connect(ctx context.Context, connString string, reg *adapt.Registry, dec *decode.Decoder, opts ...Option) (*Conn, error) {
	pc, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	c := newConn(pc.PgConn(), pgconnExecer{pc: pc.PgConn()}, reg, dec, opts...)
	c.conn = pc

	if !adapt.SupportedEncoding(c.Encoding()) {
		c.logger.Warn("client encoding has no codec; only ASCII text can be sent or received",
			"client_encoding", c.Encoding())
	}
	c.logger.Info("connected",
		"server_version", c.params.ParameterStatus("server_version"),
		"client_encoding", c.Encoding(),
		"escape", c.EscapeMode().String())
	return c, nil
}

func newConn(params paramSource, exec execer, reg *adapt.Registry, dec *decode.Decoder, opts ...Option) *Conn {
	if reg == nil {
		reg = adapt.Default
	}
	if dec == nil {
		dec = decode.New()
	}
	c := &Conn{
		params: params,
		exec:   exec,
		reg:    reg,
		dec:    dec,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encoding returns the server-reported client_encoding.
func (c *Conn) Encoding() string {
	if enc := c.params.ParameterStatus("client_encoding"); enc != "" {
		return enc
	}
	return "UTF8"
}

// EscapeMode is extended when standard_conforming_strings is off.
func (c *Conn) EscapeMode() adapt.EscapeMode {
	if strings.EqualFold(c.params.ParameterStatus("standard_conforming_strings"), "off") {
		return adapt.EscapeExtended
	}
	return adapt.EscapeStandard
}

// InTransaction reports whether the connection is inside a transaction
// block, including a failed one.
func (c *Conn) InTransaction() bool {
	tx := c.params.TxStatus()
	return tx == 'T' || tx == 'E'
}

// ServerVersion returns the server version in server_version_num form,
// e.g. 160002, or 0 when unknown.
func (c *Conn) ServerVersion() int {
	if v, err := strconv.Atoi(c.params.ParameterStatus("server_version_num")); err == nil {
		return v
	}
	return ParseServerVersion(c.params.ParameterStatus("server_version"))
}

// ParseServerVersion converts a server_version string such as "16.2",
// "9.6.24" or "17beta1 (Debian 17~beta1-1)" to the numeric form.
func ParseServerVersion(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")

	nums := make([]int, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		nums = append(nums, n)
	}

	switch {
	case len(nums) == 0:
		return 0
	case nums[0] >= 10:
		minor := 0
		if len(nums) > 1 {
			minor = nums[1]
		}
		return nums[0]*10000 + minor
	default:
		for len(nums) < 3 {
			nums = append(nums, 0)
		}
		return nums[0]*10000 + nums[1]*100 + nums[2]
	}
}

// Registry returns the adapter registry used for arguments.
func (c *Conn) Registry() *adapt.Registry { return c.reg }

// Decoder returns the decoder used for result rows.
func (c *Conn) Decoder() *decode.Decoder { return c.dec }

// Pgx exposes the underlying connection, or nil for a test connection.
func (c *Conn) Pgx() *pgx.Conn { return c.conn }

// Mogrify returns query with its $n placeholders replaced by literals,
// exactly as Exec or Query would send it.
func (c *Conn) Mogrify(query string, args ...any) (string, error) {
	return c.reg.Interpolate(query, args, c)
}

// Close terminates the connection.
func (c *Conn) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(ctx); err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}
