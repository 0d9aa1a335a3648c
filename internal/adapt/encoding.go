package adapt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// clientEncodings maps normalised PostgreSQL encoding names to their
// x/text codec. A nil codec means the bytes pass through unchanged.
// korean.EUCKR is CP949, a superset of EUC_KR that covers UHC. EUC_CN is
// written through GBK, which shares its two-byte range.
var clientEncodings = map[string]encoding.Encoding{
	"UTF8":     nil,
	"UNICODE":  nil,
	"SQLASCII": nil,

	"LATIN1":  charmap.ISO8859_1,
	"LATIN2":  charmap.ISO8859_2,
	"LATIN3":  charmap.ISO8859_3,
	"LATIN4":  charmap.ISO8859_4,
	"LATIN5":  charmap.ISO8859_9,
	"LATIN6":  charmap.ISO8859_10,
	"LATIN7":  charmap.ISO8859_13,
	"LATIN8":  charmap.ISO8859_14,
	"LATIN9":  charmap.ISO8859_15,
	"LATIN10": charmap.ISO8859_16,

	"ISO88591": charmap.ISO8859_1,
	"ISO88595": charmap.ISO8859_5,
	"ISO88596": charmap.ISO8859_6,
	"ISO88597": charmap.ISO8859_7,
	"ISO88598": charmap.ISO8859_8,

	"WIN866":  charmap.CodePage866,
	"ALT":     charmap.CodePage866,
	"WIN874":  charmap.Windows874,
	"WIN1250": charmap.Windows1250,
	"WIN1251": charmap.Windows1251,
	"WIN":     charmap.Windows1251,
	"WIN1252": charmap.Windows1252,
	"WIN1253": charmap.Windows1253,
	"WIN1254": charmap.Windows1254,
	"WIN1255": charmap.Windows1255,
	"WIN1256": charmap.Windows1256,
	"WIN1257": charmap.Windows1257,
	"WIN1258": charmap.Windows1258,

	"KOI8":  charmap.KOI8R,
	"KOI8R": charmap.KOI8R,
	"KOI8U": charmap.KOI8U,

	"EUCJP":    japanese.EUCJP,
	"SJIS":     japanese.ShiftJIS,
	"SHIFTJIS": japanese.ShiftJIS,
	"EUCKR":    korean.EUCKR,
	"UHC":      korean.EUCKR,
	"EUCCN":    simplifiedchinese.GBK,
	"GBK":      simplifiedchinese.GBK,
	"GB18030":  simplifiedchinese.GB18030,
	"BIG5":     traditionalchinese.Big5,
}

func normaliseEncoding(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(name)))
}

// lookupEncoding returns the codec for a client_encoding name. An empty
// name is treated as UTF8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, ok := clientEncodings[normaliseEncoding(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported client encoding %q", ErrEncoding, name)
	}
	return enc, nil
}

// SupportedEncoding reports whether name is a client encoding this package
// can transcode to.
func SupportedEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// ToClient converts UTF-8 text to the named client encoding. Every
// PostgreSQL client encoding is an ASCII superset, so ASCII input passes
// through even when the encoding has no codec.
func ToClient(b []byte, encodingName string) ([]byte, error) {
	if isASCII(b) {
		return b, nil
	}
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return b, nil
	}
	out, err := enc.NewEncoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: not representable in %s: %v", ErrEncoding, encodingName, err)
	}
	return out, nil
}

// FromClient converts text received in the named client encoding to UTF-8.
func FromClient(b []byte, encodingName string) ([]byte, error) {
	if isASCII(b) {
		return b, nil
	}
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return b, nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s input: %v", ErrEncoding, encodingName, err)
	}
	return out, nil
}

// checkText validates that s is UTF-8 without NUL bytes and that every rune
// can be written in the context's client encoding.
func checkText(v any, s string, cc Context) error {
	cc = orDefault(cc)
	if strings.IndexByte(s, 0) >= 0 {
		return valueError(v, "text cannot contain NUL bytes")
	}
	if !utf8.ValidString(s) {
		return encodingError(v, "invalid UTF-8")
	}
	if isASCII([]byte(s)) {
		return nil
	}
	enc, err := lookupEncoding(cc.Encoding())
	if err != nil {
		return &Error{Kind: ErrEncoding, Type: typeName(v), Detail: fmt.Sprintf("unsupported client encoding %q", cc.Encoding())}
	}
	if enc == nil {
		return nil
	}
	if _, err := enc.NewEncoder().String(s); err != nil {
		return &Error{Kind: ErrEncoding, Type: typeName(v), Detail: "not representable in " + cc.Encoding(), Cause: err}
	}
	return nil
}
