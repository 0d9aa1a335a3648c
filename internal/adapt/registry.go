package adapt

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
)

// DefaultMaxDepth bounds nesting of sequences, tuples and Valuer indirections.
const DefaultMaxDepth = 64

// Adapter turns one value into SQL text.
//
// AppendLiteral appends a standalone literal, quoted and escaped for cc.
// AppendElement appends the value's external text form as it appears inside
// an array literal, before array quoting is applied.
//
// Both append UTF-8; Registry.Adapt converts the finished fragment to the
// client encoding.
type Adapter interface {
	AppendLiteral(buf []byte, cc Context) ([]byte, error)
	AppendElement(buf []byte, cc Context) ([]byte, error)
}

// Constructor builds an Adapter for a value.
type Constructor func(v any) (Adapter, error)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type ifaceEntry struct {
	iface reflect.Type
	ctor  Constructor
}

// Registry maps Go types to adapter constructors.
//
// Lookup order is exact type, then interface entries in registration order,
// then the type's reflect.Kind, then the catch-all. Registration and lookup
// may run concurrently.
type Registry struct {
	mu       sync.RWMutex
	exact    map[reflect.Type]Constructor
	ifaces   []ifaceEntry
	kinds    map[reflect.Kind]Constructor
	fallback Constructor

	floatPolicy FloatPolicy
	maxDepth    int
	logger      Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFloatPolicy sets how NaN and infinities are handled.
func WithFloatPolicy(p FloatPolicy) Option {
	return func(r *Registry) { r.floatPolicy = p }
}

// WithMaxDepth sets the nesting bound. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a registry holding the built-in adapters.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		exact:    make(map[reflect.Type]Constructor),
		kinds:    make(map[reflect.Kind]Constructor),
		maxDepth: DefaultMaxDepth,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.installBuiltins()
	return r
}

// Configure applies options to an existing registry.
func (r *Registry) Configure(opts ...Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range opts {
		opt(r)
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.Configure(WithLogger(logger))
}

// MaxDepth returns the configured nesting bound.
func (r *Registry) MaxDepth() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxDepth
}

// FloatPolicy returns the configured NaN/Inf policy.
func (r *Registry) FloatPolicy() FloatPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.floatPolicy
}

// Register sets the constructor for exactly type t. A later call for the
// same type replaces the earlier one; adapters already built are unaffected.
func (r *Registry) Register(t reflect.Type, c Constructor) {
	r.mu.Lock()
	r.exact[t] = c
	logger := r.logger
	r.mu.Unlock()
	logger.Debug("adapter registered", "type", t.String())
}

// RegisterInterface appends an interface entry to the fallback chain.
// Registering the same interface again replaces its constructor in place.
func (r *Registry) RegisterInterface(iface reflect.Type, c Constructor) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return fmt.Errorf("adapt: %v is not an interface type", iface)
	}

	r.mu.Lock()
	replaced := false
	for i := range r.ifaces {
		if r.ifaces[i].iface == iface {
			r.ifaces[i].ctor = c
			replaced = true
			break
		}
	}
	if !replaced {
		r.ifaces = append(r.ifaces, ifaceEntry{iface: iface, ctor: c})
	}
	logger := r.logger
	r.mu.Unlock()

	logger.Debug("interface adapter registered", "interface", iface.String(), "replaced", replaced)
	return nil
}

// RegisterKind sets the constructor used for any type of kind k that has
// no exact or interface entry.
func (r *Registry) RegisterKind(k reflect.Kind, c Constructor) {
	r.mu.Lock()
	r.kinds[k] = c
	logger := r.logger
	r.mu.Unlock()
	logger.Debug("kind adapter registered", "kind", k.String())
}

// SetDefault sets the catch-all constructor. Passing nil removes it.
func (r *Registry) SetDefault(c Constructor) {
	r.mu.Lock()
	r.fallback = c
	r.mu.Unlock()
}

// RegisterType registers fn for values of type T. Interface types join the
// fallback chain; concrete types get an exact entry.
func RegisterType[T any](r *Registry, fn func(T) (Adapter, error)) {
	t := reflect.TypeFor[T]()
	c := func(v any) (Adapter, error) { return fn(v.(T)) }
	if t.Kind() == reflect.Interface {
		// Only fails for non-interface types.
		_ = r.RegisterInterface(t, c)
		return
	}
	r.Register(t, c)
}

// Lookup resolves the constructor for type t.
func (r *Registry) Lookup(t reflect.Type) (Constructor, error) {
	if t == nil {
		return nullConstructor, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.exact[t]; ok {
		return c, nil
	}
	for _, e := range r.ifaces {
		if t.Implements(e.iface) {
			return e.ctor, nil
		}
	}
	if c, ok := r.kinds[t.Kind()]; ok {
		return c, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, &Error{Kind: ErrAdaptation, Type: t.String()}
}

// Adapt converts v into a SQL literal in cc's client encoding.
// A nil cc means DefaultContext.
func (r *Registry) Adapt(v any, cc Context) ([]byte, error) {
	cc = orDefault(cc)
	buf, err := r.appendValue(nil, v, cc, 0, false)
	if err != nil {
		return nil, err
	}
	out, err := ToClient(buf, cc.Encoding())
	if err != nil {
		return nil, &Error{Kind: ErrEncoding, Type: typeName(v), Cause: err}
	}
	return out, nil
}

// AdapterFor returns the adapter for v, following pointers and Valuers.
func (r *Registry) AdapterFor(v any) (Adapter, error) {
	a, _, err := r.resolve(v, 0)
	return a, err
}

// resolve finds the adapter for v. Indirections (pointers, Valuers) are
// followed here and each one counts against the depth bound.
func (r *Registry) resolve(v any, depth int) (Adapter, int, error) {
	limit := r.MaxDepth()
	for {
		if depth > limit {
			return nil, depth, newError(ErrRecursion, v, fmt.Sprintf("exceeded max depth %d", limit))
		}
		if isNil(v) {
			return Null, depth, nil
		}

		t := reflect.TypeOf(v)
		if t.Kind() == reflect.Pointer && r.prefersElem(t) {
			v = reflect.ValueOf(v).Elem().Interface()
			depth++
			continue
		}

		c, err := r.Lookup(t)
		if err != nil {
			return nil, depth, err
		}
		a, err := c(v)
		if err != nil {
			return nil, depth, err
		}

		ind, ok := a.(indirect)
		if !ok {
			return a, depth, nil
		}
		v = ind.v
		depth++
	}
}

// prefersElem reports whether pointer type t should be dereferenced before
// lookup because only its element type has an exact entry. This keeps
// *uuid.UUID on the uuid adapter instead of the driver.Valuer fallback.
func (r *Registry) prefersElem(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.exact[t]; ok {
		return false
	}
	_, ok := r.exact[t.Elem()]
	return ok
}

// appendValue resolves v and appends its literal or element form.
func (r *Registry) appendValue(buf []byte, v any, cc Context, depth int, element bool) ([]byte, error) {
	a, depth, err := r.resolve(v, depth)
	if err != nil {
		return buf, err
	}
	return appendAdapter(buf, a, cc, depth, element)
}

func appendAdapter(buf []byte, a Adapter, cc Context, depth int, element bool) ([]byte, error) {
	if c, ok := a.(composite); ok {
		return c.appendNested(buf, cc, depth, element)
	}
	if element {
		return a.AppendElement(buf, cc)
	}
	return a.AppendLiteral(buf, cc)
}

// composite adapters encode children through the registry and take part in
// depth accounting.
type composite interface {
	appendNested(buf []byte, cc Context, depth int, element bool) ([]byte, error)
}

// indirect marks a value that must be resolved again, e.g. the result of
// driver.Valuer.Value or a dereferenced pointer.
type indirect struct {
	reg *Registry
	v   any
}

func (i indirect) AppendLiteral(buf []byte, cc Context) ([]byte, error) {
	return i.reg.appendValue(buf, i.v, orDefault(cc), 1, false)
}

func (i indirect) AppendElement(buf []byte, cc Context) ([]byte, error) {
	return i.reg.appendValue(buf, i.v, orDefault(cc), 1, true)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func valuerConstructor(r *Registry) Constructor {
	return func(v any) (Adapter, error) {
		val, err := v.(driver.Valuer).Value()
		if err != nil {
			return nil, &Error{Kind: ErrValue, Type: typeName(v), Detail: "Value() failed", Cause: err}
		}
		return indirect{reg: r, v: val}, nil
	}
}

func pointerConstructor(r *Registry) Constructor {
	return func(v any) (Adapter, error) {
		return indirect{reg: r, v: reflect.ValueOf(v).Elem().Interface()}, nil
	}
}

// Default is the process-wide registry used by the package-level functions.
var Default = NewRegistry()

// Adapt converts v using the Default registry.
func Adapt(v any, cc Context) ([]byte, error) {
	return Default.Adapt(v, cc)
}

// Register adds an exact-type entry to the Default registry.
func Register(t reflect.Type, c Constructor) {
	Default.Register(t, c)
}

// RegisterInterface adds an interface entry to the Default registry.
func RegisterInterface(iface reflect.Type, c Constructor) error {
	return Default.RegisterInterface(iface, c)
}
