// Package decode turns PostgreSQL column bytes back into Go values.
//
// Each column is decoded by its type OID. Text-format values use the
// decoder's OID table; binary-format values are handed to pgtype. OIDs with
// no entry are described by an optional TypeResolver (usually the catalog
// package), which knows which OIDs are arrays, enums or domains.
//
// # Built-in text decoders
//
//	bool                      bool
//	int2 / int4 / int8        int16 / int32 / int64
//	oid                       uint32
//	float4 / float8           float32 / float64 (NaN and ±Infinity included)
//	numeric                   pgtype.Numeric
//	text, varchar, bpchar,
//	name, "char", unknown     string
//	bytea                     []byte (hex and escape formats)
//	date, timestamp,
//	timestamptz               time.Time, or pgtype.Date/Timestamp/Timestamptz for ±infinity
//	time                      string
//	interval                  pgtype.Interval
//	uuid                      uuid.UUID
//	json, jsonb               json.RawMessage
//	arrays of the above       nested []any
//
// A nil value is SQL NULL and decodes to nil for every type. A row that
// fails to decode is discarded as a whole and the *Error names the column.
package decode
