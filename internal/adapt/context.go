package adapt

// EscapeMode selects how string literals are escaped.
type EscapeMode int

const (
	// EscapeStandard is standard_conforming_strings = on: only the single
	// quote is special inside '...'.
	EscapeStandard EscapeMode = iota

	// EscapeExtended is standard_conforming_strings = off: backslash is an
	// escape character too, and literals containing one are written as E'...'.
	EscapeExtended
)

// String returns the mode name.
func (m EscapeMode) String() string {
	if m == EscapeExtended {
		return "extended"
	}
	return "standard"
}

// Context is the connection state adapters consult while encoding.
//
// Adapters only read from it. A live implementation reflects the server's
// parameter statuses; see the session package.
type Context interface {
	// Encoding is the PostgreSQL client_encoding name, e.g. "UTF8" or "LATIN1".
	Encoding() string

	// EscapeMode reports whether backslashes are special in string literals.
	EscapeMode() EscapeMode

	// InTransaction reports whether a transaction block is open.
	InTransaction() bool

	// ServerVersion is the server_version_num value, e.g. 160002.
	// Zero means unknown and is treated as a modern server.
	ServerVersion() int
}

// StaticContext is a fixed Context value.
type StaticContext struct {
	ClientEncoding string
	Escape         EscapeMode
	InTx           bool
	Version        int
}

func (c StaticContext) Encoding() string {
	if c.ClientEncoding == "" {
		return "UTF8"
	}
	return c.ClientEncoding
}

func (c StaticContext) EscapeMode() EscapeMode { return c.Escape }
func (c StaticContext) InTransaction() bool    { return c.InTx }
func (c StaticContext) ServerVersion() int     { return c.Version }

// DefaultContext is used whenever a nil Context is passed: UTF8 with
// standard-conforming strings. Output produced with it can differ from a
// connection-bound literal in escaping and byte encoding, never in shape.
var DefaultContext Context = StaticContext{ClientEncoding: "UTF8", Escape: EscapeStandard}

func orDefault(cc Context) Context {
	if cc == nil {
		return DefaultContext
	}
	return cc
}
