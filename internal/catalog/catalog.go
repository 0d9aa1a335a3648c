package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/pgadapt/internal/decode"
)

// Logger defines the logging interface used by the Catalog.
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

// Catalog is an in-memory view of one server's pg_type, optionally
// persisted in a Store. It implements decode.TypeResolver.
//
// All public methods are thread-safe.
type Catalog struct {
	mu        sync.RWMutex
	byOID     map[uint32]Type
	byName    map[string]uint32
	store     *Store
	serverKey string
	logger    Logger
}

// New creates an empty catalog for serverKey. store may be nil, in which
// case Refresh does not persist and Warm is unavailable.
func New(store *Store, serverKey string) *Catalog {
	return &Catalog{
		byOID:     make(map[uint32]Type),
		byName:    make(map[string]uint32),
		store:     store,
		serverKey: serverKey,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the catalog.
func (c *Catalog) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

func (c *Catalog) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// ServerKey identifies the server this catalog describes.
func (c *Catalog) ServerKey() string {
	return c.serverKey
}

// Refresh reads pg_type from the server, persists it when a store is set
// and replaces the in-memory view.
func (c *Catalog) Refresh(ctx context.Context, q Querier) error {
	types, err := Load(ctx, q)
	if err != nil {
		return err
	}
	if c.store != nil {
		if err := c.store.Replace(ctx, c.serverKey, types); err != nil {
			return fmt.Errorf("persisting catalog: %w", err)
		}
	}
	c.Set(types)
	c.log().Info("type catalog refreshed", "server", c.serverKey, "types", len(types))
	return nil
}

// Warm fills the in-memory view from the store. It returns ErrEmpty when
// nothing has been stored for this server yet.
func (c *Catalog) Warm(ctx context.Context) error {
	if c.store == nil {
		return ErrNoStore
	}
	types, err := c.store.List(ctx, c.serverKey)
	if err != nil {
		return fmt.Errorf("loading cached catalog: %w", err)
	}
	if len(types) == 0 {
		return ErrEmpty
	}
	c.Set(types)
	c.log().Debug("type catalog warmed from cache", "server", c.serverKey, "types", len(types))
	return nil
}

// Set replaces the in-memory view.
func (c *Catalog) Set(types []Type) {
	byOID := make(map[uint32]Type, len(types))
	byName := make(map[string]uint32, len(types))
	for _, t := range types {
		byOID[t.OID] = t
		byName[t.Namespace+"."+t.Name] = t.OID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byOID = byOID
	c.byName = byName
}

// Len returns the number of known types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byOID)
}

// Lookup returns the type with the given OID.
func (c *Catalog) Lookup(oid uint32) (Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byOID[oid]
	return t, ok
}

// ByName returns the type namespace.name, e.g. "public.mood".
func (c *Catalog) ByName(namespace, name string) (Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.byName[namespace+"."+name]
	if !ok {
		return Type{}, false
	}
	return c.byOID[oid], true
}

// ResolveType describes oid to the decoder. Array delimiters come from the
// element type, as on the server.
func (c *Catalog) ResolveType(oid uint32) (decode.TypeInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byOID[oid]
	if !ok {
		return decode.TypeInfo{}, false
	}

	switch {
	case t.IsArray():
		delim := byte(',')
		if elem, ok := c.byOID[t.ElemOID]; ok && elem.Delimiter != "" {
			delim = elem.Delimiter[0]
		}
		return decode.TypeInfo{Kind: decode.KindArray, ElemOID: t.ElemOID, Delimiter: delim}, true
	case t.Kind == KindEnum:
		return decode.TypeInfo{Kind: decode.KindEnum}, true
	case t.Kind == KindDomain:
		return decode.TypeInfo{Kind: decode.KindDomain, BaseOID: t.BaseOID}, true
	}
	return decode.TypeInfo{Kind: decode.KindText}, true
}
