package probe

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/nerrad567/pgadapt/internal/adapt"
)

// Case is one value sent through adapt → server → decode.
type Case struct {
	Name string

	// Value is passed as the single query argument.
	Value any

	// Cast is the SQL type the literal is cast to, e.g. "int8" or "text[]".
	Cast string

	// Want is the expected decoded value. When nil it is derived from Value,
	// with typed slices becoming nested []any.
	Want any

	// Equal compares want and got. When nil, Equivalent is used.
	Equal func(want, got any) bool
}

func (c Case) want() any {
	if c.Want != nil {
		return c.Want
	}
	return Normalise(c.Value)
}

func (c Case) equal(want, got any) bool {
	if c.Equal != nil {
		return c.Equal(want, got)
	}
	return Equivalent(want, got)
}

var (
	byteSliceType = reflect.TypeFor[[]byte]()
	rawJSONType   = reflect.TypeFor[json.RawMessage]()
)

// Normalise converts typed slices to the nested []any shape the decoder
// returns for arrays. Byte slices and JSON are left as they are.
func Normalise(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type() == byteSliceType || rv.Type() == rawJSONType {
		return v
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = Normalise(rv.Index(i).Interface())
	}
	return out
}

// Equivalent compares decoded values: instants by time.Equal, NaN equal to
// NaN, numerics by digits and scale, JSON by structure, everything else
// deeply.
func Equivalent(want, got any) bool {
	switch w := want.(type) {
	case time.Time:
		g, ok := got.(time.Time)
		return ok && w.Equal(g)
	case float64:
		g, ok := got.(float64)
		return ok && (w == g || (math.IsNaN(w) && math.IsNaN(g)))
	case float32:
		g, ok := got.(float32)
		return ok && (w == g || (math.IsNaN(float64(w)) && math.IsNaN(float64(g))))
	case pgtype.Numeric:
		g, ok := got.(pgtype.Numeric)
		return ok && numericEqual(w, g)
	case []byte:
		g, ok := got.([]byte)
		return ok && bytes.Equal(w, g)
	case json.RawMessage:
		g, ok := got.(json.RawMessage)
		return ok && jsonEqual(w, g)
	case []any:
		g, ok := got.([]any)
		if !ok || len(w) != len(g) {
			return false
		}
		for i := range w {
			if !Equivalent(w[i], g[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(want, got)
}

func numericEqual(a, b pgtype.Numeric) bool {
	if !a.Valid || !b.Valid || a.NaN || b.NaN || a.InfinityModifier != pgtype.Finite || b.InfinityModifier != pgtype.Finite {
		return a.Valid == b.Valid && a.NaN == b.NaN && a.InfinityModifier == b.InfinityModifier
	}
	return a.Int.Cmp(b.Int) == 0 && a.Exp == b.Exp
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func mustNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

// Cases returns the built-in probe table. Non-finite floats and numerics
// are only included when policy allows them.
func Cases(policy adapt.FloatPolicy) []Case {
	cases := []Case{
		{Name: "bool_true", Value: true, Cast: "bool"},
		{Name: "bool_false", Value: false, Cast: "bool"},
		{Name: "int2_min", Value: int16(math.MinInt16), Cast: "int2"},
		{Name: "int4_max", Value: int32(math.MaxInt32), Cast: "int4"},
		{Name: "int8_min", Value: int64(math.MinInt64), Cast: "int8"},
		{Name: "int8_from_int", Value: -42, Cast: "int8", Want: int64(-42)},
		{Name: "oid", Value: uint32(4294967295), Cast: "oid"},
		{Name: "float4", Value: float32(3.25), Cast: "float4"},
		{Name: "float8_fraction", Value: 0.1, Cast: "float8"},
		{Name: "float8_large", Value: 1e300, Cast: "float8"},
		{Name: "numeric", Value: mustNumeric("-123.4500"), Cast: "numeric"},
		{Name: "text_quotes", Value: `it's "quoted"`, Cast: "text"},
		{Name: "text_backslash", Value: `C:\path\n`, Cast: "text"},
		{Name: "text_unicode", Value: "ünïcødé ✓ 漢字", Cast: "text"},
		{Name: "text_empty", Value: "", Cast: "text"},
		{Name: "bytea", Value: []byte{0x00, '\\', '\'', 0xff}, Cast: "bytea"},
		{Name: "bytea_empty", Value: []byte{}, Cast: "bytea"},
		{
			Name:  "timestamptz",
			Value: time.Date(2024, 2, 29, 23, 59, 59, 123456000, time.FixedZone("", 5*3600+30*60)),
			Cast:  "timestamptz",
		},
		{
			Name:  "interval",
			Value: pgtype.Interval{Months: 14, Days: -3, Microseconds: 3_600_000_001, Valid: true},
			Cast:  "interval",
		},
		{
			Name:  "interval_from_duration",
			Value: 90 * time.Minute,
			Cast:  "interval",
			Want:  pgtype.Interval{Microseconds: (90 * time.Minute).Microseconds(), Valid: true},
		},
		{Name: "uuid", Value: uuid.MustParse("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"), Cast: "uuid"},
		{Name: "jsonb", Value: json.RawMessage(`{"k":[1,"two",null],"e":{}}`), Cast: "jsonb"},
		{Name: "int4_array", Value: []int32{1, -2, 3}, Cast: "int4[]"},
		{Name: "int8_array_2d", Value: [][]int64{{1, 2}, {3, 4}}, Cast: "int8[]"},
		{Name: "text_array_specials", Value: []string{"a b", "", "NULL", `q"\`, "{}", "x,y"}, Cast: "text[]"},
		{Name: "array_with_null", Value: []any{int32(1), nil, int32(3)}, Cast: "int4[]"},
		{Name: "bool_array", Value: []bool{true, false}, Cast: "bool[]"},
		{Name: "empty_array", Value: []int32{}, Cast: "int4[]"},
		{Name: "null", Value: nil, Cast: "text"},
	}

	if policy == adapt.FloatAllow {
		cases = append(cases,
			Case{Name: "float8_nan", Value: math.NaN(), Cast: "float8"},
			Case{Name: "float8_inf", Value: math.Inf(1), Cast: "float8"},
			Case{Name: "float8_neg_inf", Value: math.Inf(-1), Cast: "float8"},
			Case{Name: "numeric_nan", Value: pgtype.Numeric{NaN: true, Valid: true}, Cast: "numeric"},
		)
	}
	return cases
}
