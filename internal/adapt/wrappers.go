package adapt

import (
	"encoding/json"
	"strings"

	"github.com/lib/pq"
)

// Identifier is a possibly schema-qualified SQL identifier. Each part is
// double-quoted; parts are joined with ".".
type Identifier []string

// Ident builds an Identifier from its parts.
func Ident(parts ...string) Identifier { return Identifier(parts) }

func (id Identifier) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	if len(id) == 0 {
		return buf, valueError(id, "empty identifier")
	}
	for i, part := range id {
		if part == "" {
			return buf, atIndex(valueError(part, "empty identifier part"), i, part)
		}
		if err := checkText(id, part, cc); err != nil {
			return buf, atIndex(err, i, part)
		}
		if i > 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, pq.QuoteIdentifier(part)...)
	}
	return buf, nil
}

func (id Identifier) AppendElement(buf []byte, _ Context) ([]byte, error) {
	return buf, valueError(id, "identifiers cannot appear inside an array")
}

// String returns the dotted, unquoted form.
func (id Identifier) String() string { return strings.Join(id, ".") }

// Raw is SQL text inserted verbatim. It is never quoted or escaped, so it
// must not carry untrusted input.
type Raw string

func (r Raw) AppendLiteral(buf []byte, _ Context) ([]byte, error) {
	return append(buf, r...), nil
}

func (r Raw) AppendElement(buf []byte, _ Context) ([]byte, error) {
	return buf, valueError(r, "raw SQL cannot appear inside an array")
}

// JSON marshals V with encoding/json and writes it as a jsonb literal.
type JSON struct {
	V any
}

func (j JSON) text(cc Context) (string, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return "", &Error{Kind: ErrValue, Type: typeName(j.V), Detail: "marshal json", Cause: err}
	}
	s := string(b)
	if err := checkText(j, s, cc); err != nil {
		return "", err
	}
	return s, nil
}

func (j JSON) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	s, err := j.text(cc)
	if err != nil {
		return buf, err
	}
	return appendCast(appendQuoted(buf, s, cc), "jsonb"), nil
}

func (j JSON) AppendElement(buf []byte, cc Context) ([]byte, error) {
	s, err := j.text(cc)
	if err != nil {
		return buf, err
	}
	return append(buf, s...), nil
}

// rawJSON is the adapter for json.RawMessage.
type rawJSON []byte

func (r rawJSON) text(cc Context) (string, error) {
	if !json.Valid(r) {
		return "", valueError(json.RawMessage(r), "invalid JSON")
	}
	s := string(r)
	if err := checkText(json.RawMessage(r), s, cc); err != nil {
		return "", err
	}
	return s, nil
}

func (r rawJSON) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	s, err := r.text(cc)
	if err != nil {
		return buf, err
	}
	return appendCast(appendQuoted(buf, s, cc), "json"), nil
}

func (r rawJSON) AppendElement(buf []byte, cc Context) ([]byte, error) {
	s, err := r.text(cc)
	if err != nil {
		return buf, err
	}
	return append(buf, s...), nil
}

// Text is a quoted literal with an optional cast, for custom adapters:
//
//	adapt.RegisterType(reg, func(ip netip.Addr) (adapt.Adapter, error) {
//	    return adapt.Text{S: ip.String(), Cast: "inet"}, nil
//	})
type Text struct {
	S    string
	Cast string
}

func (t Text) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	if err := checkText(t, t.S, cc); err != nil {
		return buf, err
	}
	return appendCast(appendQuoted(buf, t.S, cc), t.Cast), nil
}

func (t Text) AppendElement(buf []byte, cc Context) ([]byte, error) {
	if err := checkText(t, t.S, cc); err != nil {
		return buf, err
	}
	return append(buf, t.S...), nil
}

// Tuple renders as a parenthesised, comma-separated list, e.g. for IN (...).
type Tuple []any

type tupleAdapter struct {
	reg   *Registry
	items Tuple
}

func (t tupleAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	return t.appendNested(buf, orDefault(cc), 0, false)
}

func (t tupleAdapter) AppendElement(buf []byte, cc Context) ([]byte, error) {
	return t.appendNested(buf, orDefault(cc), 0, true)
}

func (t tupleAdapter) appendNested(buf []byte, cc Context, depth int, element bool) ([]byte, error) {
	if element {
		return buf, valueError(t.items, "tuples cannot appear inside an array")
	}
	if len(t.items) == 0 {
		return buf, valueError(t.items, "empty tuple")
	}
	depth++
	if limit := t.reg.MaxDepth(); depth > limit {
		return buf, newError(ErrRecursion, t.items, "exceeded max depth")
	}

	out := append(buf, '(')
	for i, item := range t.items {
		if i > 0 {
			out = append(out, ',', ' ')
		}
		var err error
		out, err = t.reg.appendValue(out, item, cc, depth, false)
		if err != nil {
			return buf, atIndex(err, i, item)
		}
	}
	return append(out, ')'), nil
}
