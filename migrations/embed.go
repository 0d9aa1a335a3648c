// Package migrations embeds the cache schema into the binary and hands it
// to the database package on import.
package migrations

import (
	"embed"

	"github.com/nerrad567/pgadapt/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
