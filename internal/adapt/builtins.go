package adapt

import (
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// installBuiltins registers the adapters every registry starts with.
// It runs before the registry is shared, so it writes the tables directly.
func (r *Registry) installBuiltins() {
	r.ifaces = append(r.ifaces,
		ifaceEntry{iface: reflect.TypeFor[Adapter](), ctor: func(v any) (Adapter, error) { return v.(Adapter), nil }},
		ifaceEntry{iface: reflect.TypeFor[driver.Valuer](), ctor: valuerConstructor(r)},
	)

	r.exact[reflect.TypeFor[[]byte]()] = func(v any) (Adapter, error) { return byteaAdapter(v.([]byte)), nil }
	r.exact[reflect.TypeFor[json.RawMessage]()] = func(v any) (Adapter, error) { return rawJSON(v.(json.RawMessage)), nil }
	r.exact[reflect.TypeFor[json.Number]()] = func(v any) (Adapter, error) { return jsonNumber(v.(json.Number)), nil }
	r.exact[reflect.TypeFor[time.Time]()] = func(v any) (Adapter, error) { return timeAdapter(v.(time.Time)), nil }
	r.exact[reflect.TypeFor[time.Duration]()] = func(v any) (Adapter, error) { return durationAdapter(v.(time.Duration)), nil }
	r.exact[reflect.TypeFor[uuid.UUID]()] = func(v any) (Adapter, error) { return uuidAdapter(v.(uuid.UUID)), nil }
	r.exact[reflect.TypeFor[pgtype.Numeric]()] = func(v any) (Adapter, error) {
		n := v.(pgtype.Numeric)
		if !n.Valid {
			return Null, nil
		}
		return numericAdapter{n: n, policy: r.FloatPolicy()}, nil
	}
	r.exact[reflect.TypeFor[pgtype.Interval]()] = func(v any) (Adapter, error) {
		iv := v.(pgtype.Interval)
		if !iv.Valid {
			return Null, nil
		}
		return intervalAdapter(iv), nil
	}
	r.exact[reflect.TypeFor[Tuple]()] = func(v any) (Adapter, error) { return tupleAdapter{reg: r, items: v.(Tuple)}, nil }
	r.exact[reflect.TypeFor[Array]()] = arrayConstructor(r)

	r.kinds[reflect.Bool] = func(v any) (Adapter, error) {
		return boolAdapter(reflect.ValueOf(v).Bool()), nil
	}
	signed := func(v any) (Adapter, error) { return intAdapter(reflect.ValueOf(v).Int()), nil }
	for _, k := range []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64} {
		r.kinds[k] = signed
	}
	unsigned := func(v any) (Adapter, error) { return uintAdapter(reflect.ValueOf(v).Uint()), nil }
	for _, k := range []reflect.Kind{reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64} {
		r.kinds[k] = unsigned
	}
	r.kinds[reflect.Float32] = func(v any) (Adapter, error) {
		return floatAdapter{f: reflect.ValueOf(v).Float(), bits: 32, policy: r.FloatPolicy(), src: v}, nil
	}
	r.kinds[reflect.Float64] = func(v any) (Adapter, error) {
		return floatAdapter{f: reflect.ValueOf(v).Float(), bits: 64, policy: r.FloatPolicy(), src: v}, nil
	}
	r.kinds[reflect.String] = func(v any) (Adapter, error) {
		return stringAdapter{s: reflect.ValueOf(v).String(), src: v}, nil
	}
	r.kinds[reflect.Slice] = sequenceConstructor(r)
	r.kinds[reflect.Array] = sequenceConstructor(r)
	r.kinds[reflect.Pointer] = pointerConstructor(r)
}
