// pgadapt - PostgreSQL literal adaptation toolkit
//
// Commands:
//
//	pgadapt quote [-float allow] [-extended] [-encoding LATIN1] [json...]
//	pgadapt check [-config path]
//	pgadapt catalog [-config path] refresh|list|status
//
// quote works offline: each JSON argument (or each JSON value on stdin) is
// adapted and printed as the SQL literal that would be sent.
// check round-trips the built-in probe table through a live server.
// catalog manages the local pg_type cache used to decode enums, domains and
// user-defined arrays.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/pgadapt/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// errUsage is returned for unknown commands and bad flags; usage has
// already been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run dispatches to a subcommand, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: command line without the program name
//   - stdin, stdout, stderr: standard streams
//
// Returns:
//   - error: nil on success, errUsage after printing usage, or the
//     command's failure
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}

	switch args[0] {
	case "quote":
		return runQuote(args[1:], stdin, stdout, stderr)
	case "check":
		return runCheck(ctx, args[1:], stdout, stderr)
	case "catalog":
		return runCatalog(ctx, args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "pgadapt %s (%s)\n", version, commit)
		return nil
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	usage(stderr)
	return errUsage
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: pgadapt <command> [flags]

Commands:
  quote     adapt JSON values to SQL literals (offline)
  check     round-trip the probe table through a live server
  catalog   refresh, list or show the status of the type cache
  version   print the version

Run "pgadapt <command> -h" for command flags.
`)
}

// configPath returns the flag value, then PGADAPT_CONFIG. Empty means
// built-in defaults plus environment overrides.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("PGADAPT_CONFIG")
}
