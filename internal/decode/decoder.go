package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Func decodes one text-format value. It is never called with nil.
type Func func(src []byte) (any, error)

// TypeKind classifies a type the decoder has no direct entry for.
type TypeKind int

const (
	// KindText values are returned as their text.
	KindText TypeKind = iota
	// KindArray values are parsed as arrays of ElemOID.
	KindArray
	// KindEnum values are returned as their label.
	KindEnum
	// KindDomain values are decoded as BaseOID.
	KindDomain
)

// TypeInfo describes an OID to the decoder.
type TypeInfo struct {
	Kind      TypeKind
	ElemOID   uint32
	BaseOID   uint32
	Delimiter byte
}

// TypeResolver describes OIDs that have no built-in decoder, typically
// from the server's pg_type catalog.
type TypeResolver interface {
	ResolveType(oid uint32) (TypeInfo, bool)
}

// Column is a result column's type and wire format.
type Column struct {
	OID    uint32
	Format int16
}

// maxDomainChain bounds domain-over-domain resolution.
const maxDomainChain = 16

type arrayType struct {
	elem  uint32
	delim byte
}

// Decoder turns column bytes into Go values keyed by type OID.
//
// Text-format values go through the OID's Func; binary-format values go
// through a pgtype.Map. Registration and decoding may run concurrently.
type Decoder struct {
	mu       sync.RWMutex
	text     map[uint32]Func
	arrays   map[uint32]arrayType
	resolver TypeResolver

	binMu sync.Mutex
	types *pgtype.Map
}

// New creates a decoder with the built-in text decoders and array types.
func New() *Decoder {
	d := &Decoder{
		text:   make(map[uint32]Func),
		arrays: make(map[uint32]arrayType),
		types:  pgtype.NewMap(),
	}
	d.installBuiltins()
	return d
}

// RegisterText sets the text decoder for oid, replacing any earlier one.
func (d *Decoder) RegisterText(oid uint32, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text[oid] = fn
}

// RegisterArray declares arrayOID as an array of elemOID.
// A zero delim means ','.
func (d *Decoder) RegisterArray(arrayOID, elemOID uint32, delim byte) {
	if delim == 0 {
		delim = ','
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.arrays[arrayOID] = arrayType{elem: elemOID, delim: delim}
}

// SetResolver sets the fallback for OIDs without a decoder.
func (d *Decoder) SetResolver(r TypeResolver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolver = r
}

// Decode decodes a text-format value. A nil src is SQL NULL and decodes
// to nil whatever the type.
func (d *Decoder) Decode(oid uint32, src []byte) (any, error) {
	return d.DecodeFormat(oid, pgtype.TextFormatCode, src)
}

// DecodeFormat decodes a value in the given wire format.
func (d *Decoder) DecodeFormat(oid uint32, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	var (
		v   any
		err error
	)
	if format == pgtype.BinaryFormatCode {
		v, err = d.decodeBinary(oid, src)
	} else {
		v, err = d.decodeText(oid, src, 0)
	}
	if err != nil {
		var derr *Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, &Error{Column: -1, OID: oid, Cause: err}
	}
	return v, nil
}

// DecodeRow decodes one text-format row. On failure the row is discarded
// and the error names the column.
func (d *Decoder) DecodeRow(oids []uint32, raw [][]byte) ([]any, error) {
	cols := make([]Column, len(oids))
	for i, oid := range oids {
		cols[i] = Column{OID: oid, Format: pgtype.TextFormatCode}
	}
	return d.DecodeRowFormats(cols, raw)
}

// DecodeRowFormats decodes one row whose columns may mix text and binary.
func (d *Decoder) DecodeRowFormats(cols []Column, raw [][]byte) ([]any, error) {
	if len(cols) != len(raw) {
		return nil, &Error{Column: -1, Cause: fmt.Errorf("row has %d values for %d columns", len(raw), len(cols))}
	}
	row := make([]any, len(raw))
	for i, src := range raw {
		v, err := d.DecodeFormat(cols[i].OID, cols[i].Format, src)
		if err != nil {
			var derr *Error
			errors.As(err, &derr)
			return nil, &Error{Column: i, OID: cols[i].OID, Cause: derr.Cause}
		}
		row[i] = v
	}
	return row, nil
}

func (d *Decoder) decodeText(oid uint32, src []byte, depth int) (any, error) {
	d.mu.RLock()
	fn, hasFn := d.text[oid]
	arr, hasArr := d.arrays[oid]
	resolver := d.resolver
	d.mu.RUnlock()

	switch {
	case hasFn:
		return fn(src)
	case hasArr:
		return d.decodeArray(src, arr.elem, arr.delim)
	}

	if resolver != nil {
		if info, ok := resolver.ResolveType(oid); ok {
			switch info.Kind {
			case KindArray:
				delim := info.Delimiter
				if delim == 0 {
					delim = ','
				}
				return d.decodeArray(src, info.ElemOID, delim)
			case KindDomain:
				if depth >= maxDomainChain {
					return nil, fmt.Errorf("domain chain deeper than %d at oid %d", maxDomainChain, oid)
				}
				return d.decodeText(info.BaseOID, src, depth+1)
			}
		}
	}
	return string(src), nil
}

func (d *Decoder) decodeArray(src []byte, elem uint32, delim byte) (any, error) {
	return parseArray(src, delim, func(b []byte) (any, error) {
		return d.decodeText(elem, b, 0)
	})
}

// decodeBinary uses pgtype for the wire format, then normalises the few
// types whose pgtype representation differs from the text path.
func (d *Decoder) decodeBinary(oid uint32, src []byte) (any, error) {
	switch oid {
	case pgtype.JSONOID:
		return json.RawMessage(clone(src)), nil
	case pgtype.JSONBOID:
		if len(src) == 0 || src[0] != 1 {
			return nil, errors.New("unsupported jsonb binary version")
		}
		return json.RawMessage(clone(src[1:])), nil
	}

	d.binMu.Lock()
	defer d.binMu.Unlock()

	t, ok := d.types.TypeForOID(oid)
	if !ok {
		return nil, fmt.Errorf("no binary decoder for oid %d", oid)
	}
	v, err := t.Codec.DecodeValue(d.types, oid, pgtype.BinaryFormatCode, src)
	if err != nil {
		return nil, err
	}
	if b, ok := v.([16]byte); ok && oid == pgtype.UUIDOID {
		return uuid.UUID(b), nil
	}
	return v, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
