package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pg_type.typtype values.
const (
	KindBase       = "b"
	KindComposite  = "c"
	KindDomain     = "d"
	KindEnum       = "e"
	KindPseudo     = "p"
	KindRange      = "r"
	KindMultirange = "m"
)

// CategoryArray is pg_type.typcategory for array types.
const CategoryArray = "A"

// Type is the subset of a pg_type row the decoder needs.
type Type struct {
	OID       uint32 `db:"oid"`
	Name      string `db:"name"`
	Namespace string `db:"namespace"`
	Kind      string `db:"kind"`
	Category  string `db:"category"`
	ElemOID   uint32 `db:"elem_oid"`
	ArrayOID  uint32 `db:"array_oid"`
	BaseOID   uint32 `db:"base_oid"`
	Delimiter string `db:"delimiter"`
}

// IsArray reports whether t is a true array type. Types such as point
// also set typelem but are not in the array category.
func (t Type) IsArray() bool {
	return t.Category == CategoryArray && t.ElemOID != 0
}

// Querier is the part of *pgx.Conn used to read the catalog.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const loadQuery = `
SELECT t.oid,
       t.typname::text      AS name,
       n.nspname::text      AS namespace,
       t.typtype::text      AS kind,
       t.typcategory::text  AS category,
       t.typelem            AS elem_oid,
       t.typarray           AS array_oid,
       t.typbasetype        AS base_oid,
       t.typdelim::text     AS delimiter
  FROM pg_catalog.pg_type t
  JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
 WHERE t.typisdefined
 ORDER BY t.oid`

// Load reads every defined type from the server.
func Load(ctx context.Context, q Querier) ([]Type, error) {
	rows, err := q.Query(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("querying pg_type: %w", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowToStructByName[Type])
	if err != nil {
		return nil, fmt.Errorf("scanning pg_type: %w", err)
	}
	return types, nil
}
