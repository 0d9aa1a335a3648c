// Package adapt converts Go values into PostgreSQL SQL literals.
//
// A value is looked up in a Registry by its runtime type, the resulting
// Adapter writes it as text, and the finished fragment is converted to the
// connection's client encoding. Slices and arrays become array literals
// through the Sequence adapter, which adapts every element on its own.
//
// # Architecture
//
//	   value ──▶ Registry.resolve ──▶ Adapter ──▶ UTF-8 text ──▶ ToClient ──▶ wire fragment
//	                │                   │
//	                │ exact type        ├─ scalars   (bool, ints, floats, text, bytea, time, uuid, numeric, json)
//	                │ interfaces        ├─ Sequence  ('{...}', recursive)
//	                │ reflect.Kind      ├─ Tuple     ('(a, b)')
//	                │ catch-all         └─ Identifier, Raw, Text, JSON
//	                ▼
//	          Context (encoding, escape mode, transaction, server version)
//
// # Lookup order
//
//  1. exact reflect.Type entry
//  2. interface entries in registration order (Adapter, driver.Valuer, then user entries)
//  3. reflect.Kind entry (named types such as `type Celsius float64`, any slice)
//  4. catch-all set with SetDefault
//
// Nil values and nil pointers are NULL. Pointers and Valuer results are
// resolved again, and each such step counts toward MaxDepth.
//
// # Context
//
// Adapters read the Context passed to the call and never keep it. A nil
// Context means DefaultContext (UTF8, standard_conforming_strings on); a
// literal built that way has the same shape as a connection-bound one but
// may be escaped or encoded differently.
//
// # Usage
//
//	lit, err := adapt.Adapt([]int{1, 2, 3}, nil)     // '{1,2,3}'
//	lit, err = adapt.Adapt("it's", conn)             // 'it''s'
//
//	sql, err := adapt.Interpolate("SELECT * FROM t WHERE id = ANY($1)", []any{ids}, conn)
//
//	adapt.RegisterType(adapt.Default, func(p Point) (adapt.Adapter, error) {
//	    return adapt.Text{S: fmt.Sprintf("(%g,%g)", p.X, p.Y), Cast: "point"}, nil
//	})
package adapt
