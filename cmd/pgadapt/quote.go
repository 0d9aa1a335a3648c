package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/nerrad567/pgadapt/internal/adapt"
)

// runQuote adapts JSON values with a static context and prints one literal
// per line.
func runQuote(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	floatMode := fs.String("float", "reject", "NaN/Infinity handling: reject or allow")
	maxDepth := fs.Int("max-depth", 64, "maximum nesting depth")
	extended := fs.Bool("extended", false, "escape as if standard_conforming_strings = off")
	encoding := fs.String("encoding", "UTF8", "client encoding")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	policy, err := adapt.ParseFloatPolicy(*floatMode)
	if err != nil {
		return err
	}
	reg := adapt.NewRegistry(adapt.WithFloatPolicy(policy), adapt.WithMaxDepth(*maxDepth))
	cc := adapt.StaticContext{ClientEncoding: *encoding}
	if *extended {
		cc.Escape = adapt.EscapeExtended
	}

	var src io.Reader = stdin
	if fs.NArg() > 0 {
		src = strings.NewReader(strings.Join(fs.Args(), "\n"))
	}

	dec := json.NewDecoder(src)
	dec.UseNumber()
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading JSON: %w", err)
		}
		v, err := fromJSON(raw)
		if err != nil {
			return err
		}
		lit, err := reg.Adapt(v, cc)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", lit)
	}
}

// fromJSON maps a JSON value onto the Go types the registry adapts:
// integers to int64, other numbers to numeric, arrays to []any and objects
// to json.
func fromJSON(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return json.RawMessage(trimmed), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing JSON value: %w", err)
	}
	return convertJSON(v)
}

func convertJSON(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		var n pgtype.Numeric
		if err := n.Scan(x.String()); err != nil {
			return nil, fmt.Errorf("parsing number %s: %w", x, err)
		}
		return n, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			c, err := convertJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	}
	return v, nil
}
