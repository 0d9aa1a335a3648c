package adapt

import (
	"bytes"
	"strings"
)

// appendQuoted appends s as a single-quoted string literal. In extended
// mode a literal containing a backslash gets the E prefix and every
// backslash is doubled.
func appendQuoted(buf []byte, s string, cc Context) []byte {
	extended := orDefault(cc).EscapeMode() == EscapeExtended && strings.IndexByte(s, '\\') >= 0
	if extended {
		buf = append(buf, 'E')
	}
	buf = append(buf, '\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			buf = append(buf, '\'', '\'')
		case c == '\\' && extended:
			buf = append(buf, '\\', '\\')
		default:
			buf = append(buf, c)
		}
	}
	return append(buf, '\'')
}

func appendCast(buf []byte, cast string) []byte {
	if cast == "" {
		return buf
	}
	buf = append(buf, ':', ':')
	return append(buf, cast...)
}

// appendNumber writes an unquoted number, with a leading space when
// negative so that "x-$1" cannot turn into a "--" comment.
func appendNumber(buf []byte, s string) []byte {
	if strings.HasPrefix(s, "-") {
		buf = append(buf, ' ')
	}
	return append(buf, s...)
}

// appendArrayElement writes one element's text into an array body,
// double-quoting it when the array grammar requires.
func appendArrayElement(buf []byte, text []byte, delim byte) []byte {
	if !needsArrayQuote(text, delim) {
		return append(buf, text...)
	}
	buf = append(buf, '"')
	for _, c := range text {
		if c == '"' || c == '\\' {
			buf = append(buf, '\\')
		}
		buf = append(buf, c)
	}
	return append(buf, '"')
}

func needsArrayQuote(text []byte, delim byte) bool {
	if len(text) == 0 || bytes.EqualFold(text, []byte("NULL")) {
		return true
	}
	for _, c := range text {
		switch c {
		case '{', '}', '"', '\\', delim, ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		}
	}
	return false
}
