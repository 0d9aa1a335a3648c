package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/pgadapt/internal/catalog"
	"github.com/nerrad567/pgadapt/internal/infrastructure/influxdb"
	"github.com/nerrad567/pgadapt/internal/infrastructure/mqtt"
)

// runCatalog manages the cached pg_type snapshot.
//
//	refresh  reload pg_type from the configured server into the cache
//	list     print cached types for the configured server
//	status   print every cached server with its type count and age
func runCatalog(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgFlag := fs.String("config", "", "config file (default $PGADAPT_CONFIG)")
	kind := fs.String("kind", "", "list: only types of this kind (b, c, d, e, r, m, p)")
	namespace := fs.String("namespace", "", "list: only types in this schema")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: pgadapt catalog [flags] refresh|list|status")
		return errUsage
	}

	cfg, log, err := setup(*cfgFlag, stderr)
	if err != nil {
		return err
	}
	serverKey := cfg.Postgres.ServerKey()

	db, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing cache", "error", closeErr)
		}
	}()
	store := catalog.NewStore(db)

	switch fs.Arg(0) {
	case "refresh":
		conn, err := connect(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close(context.Background()) //nolint:errcheck // read-only session

		cat := catalog.New(store, serverKey)
		cat.SetLogger(log)
		took, err := conn.AttachCatalog(ctx, cat, true)
		if err != nil {
			return fmt.Errorf("refreshing type catalog: %w", err)
		}
		fmt.Fprintf(stdout, "%s: %d types in %s\n", serverKey, cat.Len(), took.Round(time.Millisecond))

		influx, err := influxdb.Connect(ctx, cfg.InfluxDB)
		switch {
		case errors.Is(err, influxdb.ErrDisabled):
		case err != nil:
			log.Warn("catalog refresh not written to InfluxDB", "error", err)
		default:
			influx.WriteCatalogRefresh(serverKey, cat.Len(), took)
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}

		broker, err := mqtt.Connect(cfg.MQTT)
		switch {
		case errors.Is(err, mqtt.ErrDisabled):
		case err != nil:
			log.Warn("catalog refresh not published", "error", err)
		default:
			if pubErr := broker.PublishCatalogRefresh(serverKey, cat.Len(), took); pubErr != nil {
				log.Warn("catalog refresh not published", "error", pubErr)
			}
			broker.Close() //nolint:errcheck // Close never fails
		}
		return nil

	case "list":
		types, err := store.List(ctx, serverKey)
		if err != nil {
			return err
		}
		if len(types) == 0 {
			return fmt.Errorf("%w for %s; run \"pgadapt catalog refresh\"", catalog.ErrEmpty, serverKey)
		}
		printTypes(stdout, types, *kind, *namespace)
		return nil

	case "status":
		servers, err := store.Servers(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERVER\tTYPES\tREFRESHED")
		for _, key := range servers {
			types, err := store.List(ctx, key)
			if err != nil {
				return err
			}
			at, _, err := store.RefreshedAt(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", key, len(types), at.Format(time.RFC3339))
		}
		return tw.Flush()
	}

	fmt.Fprintf(stderr, "unknown catalog action %q\n", fs.Arg(0))
	return errUsage
}

func printTypes(w io.Writer, types []catalog.Type, kind, namespace string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OID\tNAME\tKIND\tELEMENT")
	for _, t := range types {
		if kind != "" && t.Kind != kind {
			continue
		}
		if namespace != "" && !strings.EqualFold(t.Namespace, namespace) {
			continue
		}
		elem := "-"
		if t.IsArray() {
			elem = fmt.Sprint(t.ElemOID)
		}
		fmt.Fprintf(tw, "%d\t%s.%s\t%s\t%s\n", t.OID, t.Namespace, t.Name, t.Kind, elem)
	}
	tw.Flush() //nolint:errcheck // best-effort output
}
