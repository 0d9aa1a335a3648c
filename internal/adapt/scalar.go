package adapt

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// FloatPolicy decides what happens to NaN and infinite floats and numerics.
type FloatPolicy int

const (
	// FloatReject fails NaN and ±Inf with ErrValue.
	FloatReject FloatPolicy = iota

	// FloatAllow writes them as 'NaN', 'Infinity' and '-Infinity' with a cast.
	FloatAllow
)

// ParseFloatPolicy parses "reject" or "allow".
func ParseFloatPolicy(s string) (FloatPolicy, error) {
	switch s {
	case "", "reject":
		return FloatReject, nil
	case "allow":
		return FloatAllow, nil
	}
	return FloatReject, fmt.Errorf("adapt: unknown float policy %q", s)
}

func (p FloatPolicy) String() string {
	if p == FloatAllow {
		return "allow"
	}
	return "reject"
}

// Null is the adapter for nil values.
var Null Adapter = null{}

type null struct{}

func (null) AppendLiteral(buf []byte, _ Context) ([]byte, error) { return append(buf, "NULL"...), nil }
func (null) AppendElement(buf []byte, _ Context) ([]byte, error) { return append(buf, "NULL"...), nil }

func nullConstructor(any) (Adapter, error) { return Null, nil }

type boolAdapter bool

func (b boolAdapter) AppendLiteral(buf []byte, _ Context) ([]byte, error) {
	if b {
		return append(buf, "true"...), nil
	}
	return append(buf, "false"...), nil
}

func (b boolAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	if b {
		return append(buf, 't'), nil
	}
	return append(buf, 'f'), nil
}

type intAdapter int64

func (i intAdapter) AppendLiteral(buf []byte, _ Context) ([]byte, error) {
	if i < 0 {
		buf = append(buf, ' ')
	}
	return strconv.AppendInt(buf, int64(i), 10), nil
}

func (i intAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	return strconv.AppendInt(buf, int64(i), 10), nil
}

type uintAdapter uint64

func (u uintAdapter) AppendLiteral(buf []byte, _ Context) ([]byte, error) {
	return strconv.AppendUint(buf, uint64(u), 10), nil
}

func (u uintAdapter) AppendElement(buf []byte, cc Context) ([]byte, error) {
	return u.AppendLiteral(buf, cc)
}

type floatAdapter struct {
	f      float64
	bits   int
	policy FloatPolicy
	src    any
}

func (a floatAdapter) special() (string, bool) {
	switch {
	case math.IsNaN(a.f):
		return "NaN", true
	case math.IsInf(a.f, 1):
		return "Infinity", true
	case math.IsInf(a.f, -1):
		return "-Infinity", true
	}
	return "", false
}

func (a floatAdapter) cast() string {
	if a.bits == 32 {
		return "float4"
	}
	return "float8"
}

func (a floatAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	if s, ok := a.special(); ok {
		if a.policy != FloatAllow {
			return buf, valueError(a.src, "%s is not allowed", s)
		}
		return appendCast(appendQuoted(buf, s, cc), a.cast()), nil
	}
	return appendNumber(buf, strconv.FormatFloat(a.f, 'g', -1, a.bits)), nil
}

func (a floatAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	if s, ok := a.special(); ok {
		if a.policy != FloatAllow {
			return buf, valueError(a.src, "%s is not allowed", s)
		}
		return append(buf, s...), nil
	}
	return strconv.AppendFloat(buf, a.f, 'g', -1, a.bits), nil
}

type stringAdapter struct {
	s   string
	src any
}

func (a stringAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	if err := checkText(a.src, a.s, cc); err != nil {
		return buf, err
	}
	return appendQuoted(buf, a.s, cc), nil
}

func (a stringAdapter) AppendElement(buf []byte, cc Context) ([]byte, error) {
	if err := checkText(a.src, a.s, cc); err != nil {
		return buf, err
	}
	return append(buf, a.s...), nil
}

// byteaAdapter writes hex format for servers from 9.0 on (and unknown
// versions), escape format for older ones.
type byteaAdapter []byte

func (b byteaAdapter) text(cc Context) string {
	if v := orDefault(cc).ServerVersion(); v == 0 || v >= 90000 {
		out := make([]byte, 2+hex.EncodedLen(len(b)))
		out[0], out[1] = '\\', 'x'
		hex.Encode(out[2:], b)
		return string(out)
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch {
		case c == '\\':
			out = append(out, '\\', '\\')
		case c < 0x20 || c > 0x7e || c == '\'':
			out = append(out, '\\', '0'+(c>>6), '0'+((c>>3)&7), '0'+(c&7))
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

func (b byteaAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	return appendCast(appendQuoted(buf, b.text(cc), cc), "bytea"), nil
}

func (b byteaAdapter) AppendElement(buf []byte, cc Context) ([]byte, error) {
	return append(buf, b.text(cc)...), nil
}

// timestampLayout keeps a numeric offset (never "Z") so the text parses
// both on the server and with lib/pq.
const timestampLayout = "2006-01-02 15:04:05.999999-07:00"

type timeAdapter time.Time

func (a timeAdapter) text() (string, error) {
	t := time.Time(a)
	if t.Year() < 1 {
		return "", valueError(t, "year %d is before 1 AD", t.Year())
	}
	if _, off := t.Zone(); off%60 != 0 {
		t = t.UTC()
	}
	return t.Format(timestampLayout), nil
}

func (a timeAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	s, err := a.text()
	if err != nil {
		return buf, err
	}
	return appendCast(appendQuoted(buf, s, cc), "timestamptz"), nil
}

func (a timeAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	s, err := a.text()
	if err != nil {
		return buf, err
	}
	return append(buf, s...), nil
}

type durationAdapter time.Duration

func (d durationAdapter) text() string {
	return strconv.FormatInt(time.Duration(d).Microseconds(), 10) + " microseconds"
}

func (d durationAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	return appendCast(appendQuoted(buf, d.text(), cc), "interval"), nil
}

func (d durationAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	return append(buf, d.text()...), nil
}

type uuidAdapter uuid.UUID

func (u uuidAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	return appendCast(appendQuoted(buf, uuid.UUID(u).String(), cc), "uuid"), nil
}

func (u uuidAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	return append(buf, uuid.UUID(u).String()...), nil
}

// numericAdapter writes finite values as bare digits and the special
// values as quoted text, subject to the registry's FloatPolicy.
type numericAdapter struct {
	n      pgtype.Numeric
	policy FloatPolicy
}

func (a numericAdapter) text() (string, bool, error) {
	v, err := a.n.Value()
	if err != nil {
		return "", false, &Error{Kind: ErrValue, Type: typeName(a.n), Cause: err}
	}
	s, _ := v.(string)
	special := a.n.NaN || a.n.InfinityModifier != pgtype.Finite
	if special && a.policy != FloatAllow {
		return "", true, valueError(a.n, "%s is not allowed", s)
	}
	return s, special, nil
}

func (a numericAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	s, special, err := a.text()
	if err != nil {
		return buf, err
	}
	if special {
		return appendCast(appendQuoted(buf, s, cc), "numeric"), nil
	}
	return appendNumber(buf, s), nil
}

func (a numericAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	s, _, err := a.text()
	if err != nil {
		return buf, err
	}
	return append(buf, s...), nil
}

type intervalAdapter pgtype.Interval

func (a intervalAdapter) text() (string, error) {
	v, err := pgtype.Interval(a).Value()
	if err != nil {
		return "", &Error{Kind: ErrValue, Type: "pgtype.Interval", Cause: err}
	}
	s, _ := v.(string)
	return s, nil
}

func (a intervalAdapter) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	s, err := a.text()
	if err != nil {
		return buf, err
	}
	return appendCast(appendQuoted(buf, s, cc), "interval"), nil
}

func (a intervalAdapter) AppendElement(buf []byte, _ Context) ([]byte, error) {
	s, err := a.text()
	if err != nil {
		return buf, err
	}
	return append(buf, s...), nil
}

// jsonNumber writes a json.Number unquoted after checking it is numeric.
type jsonNumber json.Number

func (n jsonNumber) check() error {
	if _, err := strconv.ParseFloat(string(n), 64); err != nil && !errors.Is(err, strconv.ErrRange) {
		return valueError(json.Number(n), "%q is not a number", string(n))
	}
	return nil
}

func (n jsonNumber) AppendLiteral(buf []byte, _ Context) ([]byte, error) {
	if err := n.check(); err != nil {
		return buf, err
	}
	return appendNumber(buf, string(n)), nil
}

func (n jsonNumber) AppendElement(buf []byte, _ Context) ([]byte, error) {
	if err := n.check(); err != nil {
		return buf, err
	}
	return append(buf, n...), nil
}
