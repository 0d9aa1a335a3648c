package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nerrad567/pgadapt/internal/adapt"
	"github.com/nerrad567/pgadapt/internal/catalog"
	"github.com/nerrad567/pgadapt/internal/decode"
	"github.com/nerrad567/pgadapt/internal/infrastructure/config"
	"github.com/nerrad567/pgadapt/internal/infrastructure/database"
	"github.com/nerrad567/pgadapt/internal/infrastructure/influxdb"
	"github.com/nerrad567/pgadapt/internal/infrastructure/logging"
	"github.com/nerrad567/pgadapt/internal/infrastructure/mqtt"
	"github.com/nerrad567/pgadapt/internal/probe"
	"github.com/nerrad567/pgadapt/internal/session"
)

// errProbeFailures is returned by check when any case failed.
var errProbeFailures = errors.New("probe cases failed")

// setup loads configuration and builds the logger.
func setup(path string, stderr io.Writer) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath(path))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.NewWriter(stderr, cfg.Logging, version)
	return cfg, log, nil
}

// openCache opens and migrates the local SQLite cache.
func openCache(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Catalog.Path,
		WALMode:     cfg.Catalog.WALMode,
		BusyTimeout: cfg.Catalog.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// newRegistry builds the adapter registry from the adapt section.
func newRegistry(cfg config.AdaptConfig, log *logging.Logger) (*adapt.Registry, error) {
	policy, err := adapt.ParseFloatPolicy(cfg.FloatSpecial)
	if err != nil {
		return nil, err
	}
	return adapt.NewRegistry(
		adapt.WithFloatPolicy(policy),
		adapt.WithMaxDepth(cfg.MaxDepth),
		adapt.WithLogger(log),
	), nil
}

// connect dials the configured server with a fresh registry and decoder.
func connect(ctx context.Context, cfg *config.Config, log *logging.Logger) (*session.Conn, error) {
	reg, err := newRegistry(cfg.Adapt, log)
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := dialContext(ctx, cfg.Postgres)
	defer cancel()
	return session.Connect(dialCtx, cfg.Postgres.URL(), reg, decode.New(), session.WithLogger(log))
}

// dialContext bounds the connect by connect_timeout. Zero means no limit,
// as in libpq.
func dialContext(ctx context.Context, pg config.PostgresConfig) (context.Context, context.CancelFunc) {
	if d := pg.Timeout(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// runCheck round-trips the probe table through the configured server.
func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgFlag := fs.String("config", "", "config file (default $PGADAPT_CONFIG)")
	verbose := fs.Bool("v", false, "list passing cases too")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, log, err := setup(*cfgFlag, stderr)
	if err != nil {
		return err
	}
	serverKey := cfg.Postgres.ServerKey()
	log = log.With("server", serverKey)

	db, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing cache", "error", closeErr)
		}
	}()

	conn, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(context.Background()); closeErr != nil {
			log.Error("error closing connection", "error", closeErr)
		}
	}()

	cat := catalog.New(catalog.NewStore(db), serverKey)
	cat.SetLogger(log)
	if _, err := conn.AttachCatalog(ctx, cat, cfg.Catalog.RefreshOnStart); err != nil {
		return fmt.Errorf("loading type catalog: %w", err)
	}

	history := probe.NewHistory(db, serverKey)
	recorders := []probe.Recorder{history}

	influx, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Debug("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorders = append(recorders, probe.NewMetrics(influx, serverKey))
	}

	broker, err := mqtt.Connect(cfg.MQTT)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Debug("MQTT disabled")
	case err != nil:
		return fmt.Errorf("connecting to MQTT: %w", err)
	default:
		defer func() {
			if closeErr := broker.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		broker.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		recorders = append(recorders, probe.NewBroadcast(broker, serverKey, history.RunID()))
	}

	runner := probe.NewRunner(conn, recorders...)
	runner.SetLogger(log)
	results, err := runner.Run(ctx, probe.Cases(conn.Registry().FloatPolicy()))
	printResults(stdout, results, *verbose)
	if err != nil {
		return err
	}

	s := probe.Summarise(results)
	fmt.Fprintf(stdout, "\n%d cases, %d passed, %d failed (run %s)\n", s.Total, s.Passed, s.Failed, history.RunID())
	if s.Failed > 0 {
		return errProbeFailures
	}
	return nil
}

func printResults(w io.Writer, results []probe.Result, verbose bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tCAST\tRESULT\tLITERAL")
	for _, r := range results {
		if r.Passed && !verbose {
			continue
		}
		status := "ok"
		if !r.Passed {
			status = fmt.Sprintf("FAIL: %v", r.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Case, r.Cast, status, r.Literal)
	}
	tw.Flush() //nolint:errcheck // best-effort output
}
