// Package config loads and validates pgadapt configuration.
//
// Loading order:
//  1. Built-in defaults
//  2. YAML file (optional; an empty path skips it)
//  3. PGADAPT_SECTION_KEY environment variables, plus PGPASSWORD
//
// Passwords and tokens are best supplied through the environment rather
// than the file.
//
// Usage:
//
//	cfg, err := config.Load(*configPath)
//	if err != nil {
//	    return err
//	}
//	conn, err := session.Connect(ctx, cfg.Postgres.URL(), reg, dec)
package config
