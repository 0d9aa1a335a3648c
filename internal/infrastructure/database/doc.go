// Package database provides the local SQLite cache used by pgadapt.
//
// The cache holds per-server snapshots of pg_type (so the decoder can
// resolve enum, domain and custom array OIDs without a round trip on every
// start) and the history of adapter probe runs.
//
// Connections go through go-sqlite3 and are wrapped in sqlx for struct
// scanning and named statements. The pool is pinned to a single connection
// because SQLite has a single writer.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Cache.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the migrations package as
// YYYYMMDD_HHMMSS_name.up.sql / .down.sql pairs and applied one transaction
// per file.
package database
