package adapt

import (
	"fmt"
	"strings"
)

// Interpolate replaces the $1..$n placeholders in query with adapted
// literals and returns the command in cc's client encoding.
//
// Placeholders inside string literals, quoted identifiers, dollar-quoted
// bodies and comments are left alone. All arguments are adapted first, in
// order, whether or not the query references them.
func (r *Registry) Interpolate(query string, args []any, cc Context) (string, error) {
	cc = orDefault(cc)

	literals := make([][]byte, len(args))
	for i, arg := range args {
		lit, err := r.appendValue(nil, arg, cc, 0, false)
		if err != nil {
			return "", atIndex(err, i, arg)
		}
		literals[i] = lit
	}

	out := make([]byte, 0, len(query)+16*len(args))
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'':
			end := skipString(query, i, cc.EscapeMode() == EscapeExtended || precededByE(query, i))
			out = append(out, query[i:end]...)
			i = end
		case c == '"':
			end := skipQuotedIdent(query, i)
			out = append(out, query[i:end]...)
			i = end
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			out = append(out, query[i:i+end]...)
			i += end
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			end := skipBlockComment(query, i)
			out = append(out, query[i:end]...)
			i = end
		case c == '$' && !(i > 0 && isIdentChar(query[i-1])):
			n, end, ok := placeholder(query, i)
			if ok {
				if n < 1 || n > len(args) {
					return "", &Error{Kind: ErrValue, Detail: fmt.Sprintf("placeholder $%d has no argument (%d given)", n, len(args))}
				}
				out = append(out, literals[n-1]...)
				i = end
				continue
			}
			if end, ok := skipDollarQuote(query, i); ok {
				out = append(out, query[i:end]...)
				i = end
				continue
			}
			out = append(out, c)
			i++
		default:
			out = append(out, c)
			i++
		}
	}

	enc, err := ToClient(out, cc.Encoding())
	if err != nil {
		return "", &Error{Kind: ErrEncoding, Detail: "query text", Cause: err}
	}
	return string(enc), nil
}

// Interpolate uses the Default registry.
func Interpolate(query string, args []any, cc Context) (string, error) {
	return Default.Interpolate(query, args, cc)
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// precededByE reports whether the quote at i opens an E'...' literal.
func precededByE(q string, i int) bool {
	if i == 0 || (q[i-1] != 'E' && q[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentChar(q[i-2])
}

// skipString returns the index just past the string literal opening at i.
// An unterminated literal runs to the end of the query.
func skipString(q string, i int, backslashEscapes bool) int {
	for j := i + 1; j < len(q); j++ {
		switch q[j] {
		case '\\':
			if backslashEscapes {
				j++
			}
		case '\'':
			if j+1 < len(q) && q[j+1] == '\'' {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(q)
}

func skipQuotedIdent(q string, i int) int {
	for j := i + 1; j < len(q); j++ {
		if q[j] == '"' {
			if j+1 < len(q) && q[j+1] == '"' {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(q)
}

// skipBlockComment handles nested /* */ comments.
func skipBlockComment(q string, i int) int {
	depth := 0
	for j := i; j+1 < len(q); j++ {
		switch {
		case q[j] == '/' && q[j+1] == '*':
			depth++
			j++
		case q[j] == '*' && q[j+1] == '/':
			depth--
			j++
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(q)
}

func placeholder(q string, i int) (n, end int, ok bool) {
	j := i + 1
	for j < len(q) && q[j] >= '0' && q[j] <= '9' {
		if n > len(q) {
			// Absurdly large index; keep scanning but stop growing.
			j++
			continue
		}
		n = n*10 + int(q[j]-'0')
		j++
	}
	return n, j, j > i+1
}

// skipDollarQuote recognises $tag$...$tag$ starting at i.
func skipDollarQuote(q string, i int) (int, bool) {
	j := i + 1
	for j < len(q) && q[j] != '$' {
		c := q[j]
		if !(c == '_' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (j > i+1 && c >= '0' && c <= '9')) {
			return 0, false
		}
		j++
	}
	if j >= len(q) {
		return 0, false
	}
	tag := q[i : j+1]
	body := j + 1
	k := strings.Index(q[body:], tag)
	if k < 0 {
		return len(q), true
	}
	return body + k + len(tag), true
}
