package decode

import (
	"bytes"
	"errors"
	"fmt"
)

// maxArrayDepth is well above the server's own dimension limit.
const maxArrayDepth = 32

// arrayParser reads the text form of an array: {a,"b c",NULL,{d}}.
type arrayParser struct {
	src   []byte
	pos   int
	delim byte
	leaf  Func
}

// parseArray returns nested []any, one level per dimension. Unquoted NULL
// is nil; every other element goes through leaf. A leading dimension
// decoration such as "[0:1]=" is skipped.
func parseArray(src []byte, delim byte, leaf Func) (any, error) {
	p := &arrayParser{src: src, delim: delim, leaf: leaf}
	p.skipSpace()
	if p.peek() == '[' {
		eq := bytes.IndexByte(src, '=')
		if eq < 0 {
			return nil, errors.New("array: dimension decoration without '='")
		}
		p.pos = eq + 1
		p.skipSpace()
	}
	if p.peek() != '{' {
		return nil, fmt.Errorf("array: expected '{' at offset %d", p.pos)
	}
	out, err := p.level(1)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("array: trailing data at offset %d", p.pos)
	}
	return out, nil
}

func (p *arrayParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *arrayParser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func (p *arrayParser) level(depth int) ([]any, error) {
	if depth > maxArrayDepth {
		return nil, errors.New("array: too many dimensions")
	}
	p.pos++ // '{'
	out := []any{}

	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return out, nil
	}

	for {
		p.skipSpace()
		var (
			v   any
			err error
		)
		switch p.peek() {
		case '{':
			v, err = p.level(depth + 1)
		case '"':
			var s []byte
			if s, err = p.quoted(); err == nil {
				v, err = p.leaf(s)
			}
		case 0:
			return nil, errors.New("array: unexpected end of input")
		default:
			var s []byte
			if s, err = p.unquoted(); err == nil {
				if bytes.EqualFold(s, []byte("NULL")) {
					v = nil
				} else {
					v, err = p.leaf(s)
				}
			}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		switch c := p.peek(); c {
		case p.delim:
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, fmt.Errorf("array: unexpected %q at offset %d", c, p.pos)
		}
	}
}

func (p *arrayParser) quoted() ([]byte, error) {
	p.pos++ // '"'
	var out []byte
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return nil, errors.New("array: dangling backslash")
			}
			out = append(out, p.src[p.pos])
		case '"':
			p.pos++
			if out == nil {
				out = []byte{}
			}
			return out, nil
		default:
			out = append(out, c)
		}
		p.pos++
	}
	return nil, errors.New("array: unterminated quoted element")
}

func (p *arrayParser) unquoted() ([]byte, error) {
	var out []byte
	trail := 0 // length of out without trailing unescaped whitespace
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == p.delim || c == '}':
			if trail == 0 {
				return nil, fmt.Errorf("array: empty element at offset %d", p.pos)
			}
			return out[:trail], nil
		case c == '{' || c == '"':
			return nil, fmt.Errorf("array: unexpected %q at offset %d", c, p.pos)
		case c == '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return nil, errors.New("array: dangling backslash")
			}
			out = append(out, p.src[p.pos])
			trail = len(out)
		default:
			out = append(out, c)
			if !isSpace(c) {
				trail = len(out)
			}
		}
		p.pos++
	}
	return nil, errors.New("array: unexpected end of input")
}
