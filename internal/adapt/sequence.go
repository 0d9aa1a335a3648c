package adapt

import (
	"fmt"
	"reflect"
)

// Array wraps a slice or array to control how it is written: the element
// delimiter (',' unless set) and an optional cast such as "int8[]", which
// gives an empty array a type the server can infer.
type Array struct {
	Items any
	Delim byte
	Cast  string
}

// Sequence adapts an ordered collection as a PostgreSQL array literal.
//
// It is built per call by the registry and holds no connection state: the
// Context is passed to AppendLiteral and only read during that call.
type Sequence struct {
	reg   *Registry
	items reflect.Value
	delim byte
	cast  string
}

// Len returns the number of top-level elements.
func (s *Sequence) Len() int { return s.items.Len() }

func (s *Sequence) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	return s.appendNested(buf, orDefault(cc), 0, false)
}

func (s *Sequence) AppendElement(buf []byte, cc Context) ([]byte, error) {
	return s.appendNested(buf, orDefault(cc), 0, true)
}

func (s *Sequence) appendNested(buf []byte, cc Context, depth int, element bool) ([]byte, error) {
	depth++
	if limit := s.reg.MaxDepth(); depth > limit {
		return buf, newError(ErrRecursion, s.items.Interface(), fmt.Sprintf("exceeded max depth %d", limit))
	}
	if element {
		out, err := s.appendBody(buf, cc, depth)
		if err != nil {
			return buf, err
		}
		return out, nil
	}

	body, err := s.appendBody(nil, cc, depth)
	if err != nil {
		return buf, err
	}
	return appendCast(appendQuoted(buf, string(body), cc), s.cast), nil
}

// appendBody writes {e1,e2,...}. Every element is resolved on its own, so
// mixed element types are fine; the first failure aborts the whole array.
// A NULL beside sub-arrays is rejected: PostgreSQL has no NULL sub-array.
func (s *Sequence) appendBody(buf []byte, cc Context, depth int) ([]byte, error) {
	firstNull, nested := -1, false
	buf = append(buf, '{')
	for i, n := 0, s.items.Len(); i < n; i++ {
		if i > 0 {
			buf = append(buf, s.delim)
		}
		item := s.items.Index(i).Interface()

		child, d, err := s.reg.resolve(item, depth)
		if err != nil {
			return nil, atIndex(err, i, item)
		}

		switch c := child.(type) {
		case null:
			if firstNull < 0 {
				firstNull = i
			}
			buf = append(buf, "NULL"...)
		case *Sequence:
			nested = true
			c.delim = s.delim
			buf, err = c.appendNested(buf, cc, d, true)
			if err != nil {
				return nil, atIndex(err, i, item)
			}
		default:
			text, err := appendAdapter(nil, child, cc, d, true)
			if err != nil {
				return nil, atIndex(err, i, item)
			}
			buf = appendArrayElement(buf, text, s.delim)
		}
	}
	if nested && firstNull >= 0 {
		item := s.items.Index(firstNull).Interface()
		return nil, atIndex(valueError(item, "NULL in place of a sub-array"), firstNull, item)
	}
	return append(buf, '}'), nil
}

func sequenceConstructor(r *Registry) Constructor {
	return func(v any) (Adapter, error) {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return byteaAdapter(rv.Bytes()), nil
		}
		return &Sequence{reg: r, items: rv, delim: ','}, nil
	}
}

func arrayConstructor(r *Registry) Constructor {
	return func(v any) (Adapter, error) {
		a := v.(Array)
		if isNil(a.Items) {
			return Null, nil
		}
		rv := reflect.ValueOf(a.Items)
		if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
			return nil, valueError(a.Items, "Array.Items must be a slice or array")
		}
		delim := a.Delim
		if delim == 0 {
			delim = ','
		}
		return &Sequence{reg: r, items: rv, delim: delim, cast: a.Cast}, nil
	}
}
