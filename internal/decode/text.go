package decode

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"
)

// builtinArrays maps array OIDs to their element OIDs.
var builtinArrays = map[uint32]uint32{
	pgtype.BoolArrayOID:        pgtype.BoolOID,
	pgtype.ByteaArrayOID:       pgtype.ByteaOID,
	pgtype.QCharArrayOID:       pgtype.QCharOID,
	pgtype.NameArrayOID:        pgtype.NameOID,
	pgtype.Int2ArrayOID:        pgtype.Int2OID,
	pgtype.Int4ArrayOID:        pgtype.Int4OID,
	pgtype.Int8ArrayOID:        pgtype.Int8OID,
	pgtype.TextArrayOID:        pgtype.TextOID,
	pgtype.BPCharArrayOID:      pgtype.BPCharOID,
	pgtype.VarcharArrayOID:     pgtype.VarcharOID,
	pgtype.OIDArrayOID:         pgtype.OIDOID,
	pgtype.Float4ArrayOID:      pgtype.Float4OID,
	pgtype.Float8ArrayOID:      pgtype.Float8OID,
	pgtype.NumericArrayOID:     pgtype.NumericOID,
	pgtype.DateArrayOID:        pgtype.DateOID,
	pgtype.TimeArrayOID:        pgtype.TimeOID,
	pgtype.TimestampArrayOID:   pgtype.TimestampOID,
	pgtype.TimestamptzArrayOID: pgtype.TimestamptzOID,
	pgtype.IntervalArrayOID:    pgtype.IntervalOID,
	pgtype.UUIDArrayOID:        pgtype.UUIDOID,
	pgtype.JSONArrayOID:        pgtype.JSONOID,
	pgtype.JSONBArrayOID:       pgtype.JSONBOID,
}

func (d *Decoder) installBuiltins() {
	d.text[pgtype.BoolOID] = decodeBool
	d.text[pgtype.Int2OID] = decodeInt(16)
	d.text[pgtype.Int4OID] = decodeInt(32)
	d.text[pgtype.Int8OID] = decodeInt(64)
	d.text[pgtype.OIDOID] = decodeOID
	d.text[pgtype.Float4OID] = decodeFloat(32)
	d.text[pgtype.Float8OID] = decodeFloat(64)
	d.text[pgtype.NumericOID] = decodeNumeric
	for _, oid := range []uint32{pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID, pgtype.QCharOID, pgtype.UnknownOID, pgtype.TimeOID} {
		d.text[oid] = decodeString
	}
	d.text[pgtype.ByteaOID] = decodeBytea
	d.text[pgtype.DateOID] = decodeDate
	d.text[pgtype.TimestampOID] = decodeTimestamp
	d.text[pgtype.TimestamptzOID] = decodeTimestamptz
	d.text[pgtype.IntervalOID] = decodeInterval
	d.text[pgtype.UUIDOID] = decodeUUID
	d.text[pgtype.JSONOID] = decodeJSON
	d.text[pgtype.JSONBOID] = decodeJSON

	for arr, elem := range builtinArrays {
		d.arrays[arr] = arrayType{elem: elem, delim: ','}
	}
}

func decodeBool(src []byte) (any, error) {
	switch string(src) {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	}
	return nil, fmt.Errorf("invalid bool %q", src)
}

func decodeInt(bits int) Func {
	return func(src []byte) (any, error) {
		n, err := strconv.ParseInt(string(src), 10, bits)
		if err != nil {
			return nil, err
		}
		switch bits {
		case 16:
			return int16(n), nil
		case 32:
			return int32(n), nil
		}
		return n, nil
	}
}

func decodeOID(src []byte) (any, error) {
	n, err := strconv.ParseUint(string(src), 10, 32)
	if err != nil {
		return nil, err
	}
	return uint32(n), nil
}

// decodeFloat accepts NaN, Infinity and -Infinity as the server writes them.
func decodeFloat(bits int) Func {
	return func(src []byte) (any, error) {
		f, err := strconv.ParseFloat(string(src), bits)
		if err != nil {
			return nil, err
		}
		if bits == 32 {
			return float32(f), nil
		}
		return f, nil
	}
}

func decodeNumeric(src []byte) (any, error) {
	var n pgtype.Numeric
	if err := n.Scan(string(src)); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeString(src []byte) (any, error) {
	return string(src), nil
}

// decodeBytea handles both bytea_output formats.
func decodeBytea(src []byte) (any, error) {
	if len(src) >= 2 && src[0] == '\\' && src[1] == 'x' {
		out := make([]byte, hex.DecodedLen(len(src)-2))
		if _, err := hex.Decode(out, src[2:]); err != nil {
			return nil, fmt.Errorf("bytea hex: %w", err)
		}
		return out, nil
	}

	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		if src[i] != '\\' {
			out = append(out, src[i])
			continue
		}
		switch {
		case i+1 < len(src) && src[i+1] == '\\':
			out = append(out, '\\')
			i++
		case i+3 < len(src) && isOctal(src[i+1]) && isOctal(src[i+2]) && isOctal(src[i+3]):
			v := (src[i+1]-'0')<<6 | (src[i+2]-'0')<<3 | (src[i+3] - '0')
			out = append(out, v)
			i += 3
		default:
			return nil, errors.New("bytea escape: invalid backslash sequence")
		}
	}
	return out, nil
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func infinity(src []byte) (pgtype.InfinityModifier, bool) {
	switch string(src) {
	case "infinity":
		return pgtype.Infinity, true
	case "-infinity":
		return pgtype.NegativeInfinity, true
	}
	return pgtype.Finite, false
}

func parseTime(src []byte) (time.Time, error) {
	return pq.ParseTimestamp(nil, string(src))
}

func decodeDate(src []byte) (any, error) {
	if inf, ok := infinity(src); ok {
		return pgtype.Date{InfinityModifier: inf, Valid: true}, nil
	}
	return parseTime(src)
}

func decodeTimestamp(src []byte) (any, error) {
	if inf, ok := infinity(src); ok {
		return pgtype.Timestamp{InfinityModifier: inf, Valid: true}, nil
	}
	return parseTime(src)
}

func decodeTimestamptz(src []byte) (any, error) {
	if inf, ok := infinity(src); ok {
		return pgtype.Timestamptz{InfinityModifier: inf, Valid: true}, nil
	}
	return parseTime(src)
}

func decodeInterval(src []byte) (any, error) {
	var iv pgtype.Interval
	if err := iv.Scan(string(src)); err != nil {
		return nil, err
	}
	return iv, nil
}

func decodeUUID(src []byte) (any, error) {
	return uuid.ParseBytes(src)
}

func decodeJSON(src []byte) (any, error) {
	if !json.Valid(src) {
		return nil, errors.New("invalid json")
	}
	return json.RawMessage(clone(src)), nil
}
