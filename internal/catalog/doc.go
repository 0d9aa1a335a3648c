// Package catalog keeps a per-server copy of pg_type so that the row
// decoder can handle OIDs it has no built-in entry for.
//
// Architecture:
//
//	┌────────────┐  Load (pgx)   ┌───────────┐  Replace/List (sqlx)  ┌──────────────┐
//	│ PostgreSQL ├──────────────►│  Catalog  │◄─────────────────────►│ SQLite cache │
//	└────────────┘               └─────┬─────┘                       └──────────────┘
//	                                   │ ResolveType
//	                                   ▼
//	                            decode.Decoder
//
// A catalog is refreshed from the server on connect and persisted; on the
// next start Warm restores it from the cache so that enums, domains and
// user-defined array types decode before the first refresh completes.
//
// ResolveType maps pg_type rows as follows:
//   - typcategory 'A' with typelem set: array of typelem, using the element
//     type's typdelim
//   - typtype 'e': enum, returned as its label
//   - typtype 'd': domain, decoded as typbasetype
//   - anything else: text
package catalog
