package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/pgadapt/internal/infrastructure/database"
)

// Store persists catalog snapshots in the local cache database. The
// pg_type_cache table comes from the embedded migrations.
type Store struct {
	db *database.DB
}

// NewStore wraps an opened and migrated cache database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// cachedType is a Type as stored, keyed by server.
type cachedType struct {
	ServerKey   string `db:"server_key"`
	RefreshedAt string `db:"refreshed_at"`
	Type
}

const insertCachedType = `
INSERT INTO pg_type_cache
    (server_key, oid, name, namespace, kind, category, elem_oid, array_oid, base_oid, delimiter, refreshed_at)
VALUES
    (:server_key, :oid, :name, :namespace, :kind, :category, :elem_oid, :array_oid, :base_oid, :delimiter, :refreshed_at)`

// Replace swaps the stored snapshot for serverKey with types.
func (s *Store) Replace(ctx context.Context, serverKey string, types []Type) error {
	now := time.Now().UTC().Format(time.RFC3339)

	return s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pg_type_cache WHERE server_key = ?", serverKey); err != nil {
			return fmt.Errorf("clearing cached types: %w", err)
		}

		stmt, err := tx.PrepareNamedContext(ctx, insertCachedType)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range types {
			row := cachedType{ServerKey: serverKey, RefreshedAt: now, Type: t}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return fmt.Errorf("caching type %d (%s): %w", t.OID, t.Name, err)
			}
		}
		return nil
	})
}

// List returns the stored snapshot for serverKey ordered by OID.
func (s *Store) List(ctx context.Context, serverKey string) ([]Type, error) {
	var types []Type
	err := s.db.SelectContext(ctx, &types, `
		SELECT oid, name, namespace, kind, category, elem_oid, array_oid, base_oid, delimiter
		  FROM pg_type_cache
		 WHERE server_key = ?
		 ORDER BY oid`, serverKey)
	if err != nil {
		return nil, fmt.Errorf("listing cached types: %w", err)
	}
	return types, nil
}

// RefreshedAt reports when serverKey was last refreshed. ok is false when
// nothing is stored.
func (s *Store) RefreshedAt(ctx context.Context, serverKey string) (at time.Time, ok bool, err error) {
	var raw *string
	err = s.db.GetContext(ctx, &raw,
		"SELECT MAX(refreshed_at) FROM pg_type_cache WHERE server_key = ?", serverKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading refresh time: %w", err)
	}
	if raw == nil {
		return time.Time{}, false, nil
	}
	at, err = time.Parse(time.RFC3339, *raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing refresh time %q: %w", *raw, err)
	}
	return at, true, nil
}

// Servers lists every server key with a stored snapshot.
func (s *Store) Servers(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys,
		"SELECT DISTINCT server_key FROM pg_type_cache ORDER BY server_key"); err != nil {
		return nil, fmt.Errorf("listing cached servers: %w", err)
	}
	return keys, nil
}
