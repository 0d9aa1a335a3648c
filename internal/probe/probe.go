package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/pgadapt/internal/session"
)

// Querier runs a query with client-side adapted arguments. *session.Conn
// implements it.
type Querier interface {
	Mogrify(query string, args ...any) (string, error)
	Query(ctx context.Context, query string, args ...any) (*session.ResultSet, error)
}

// Recorder receives every result as it is produced.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

// Logger defines the logging interface used by Run.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ErrMismatch is the Result.Err of a case whose decoded value differs
// from the expected one.
var ErrMismatch = errors.New("probe: decoded value differs")

// Result is the outcome of one Case.
type Result struct {
	Case    string
	Cast    string
	Literal string
	Want    any
	Got     any
	Passed  bool
	Err     error
	Latency time.Duration
}

// Summary counts results.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// Summarise counts passed and failed results.
func Summarise(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// Runner executes probe cases against a server.
type Runner struct {
	q         Querier
	recorders []Recorder
	logger    Logger
}

// NewRunner creates a runner over q. Recorders are called in order for
// every result; a recorder error is logged and does not stop the run.
func NewRunner(q Querier, recorders ...Recorder) *Runner {
	return &Runner{q: q, recorders: recorders, logger: noopLogger{}}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(l Logger) {
	r.logger = l
}

// Run executes each case as SELECT (<literal>)::<cast>. It stops early
// only when ctx is done, returning the results so far and ctx.Err().
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.runCase(ctx, c)
		results = append(results, res)

		if res.Passed {
			r.logger.Debug("probe passed", "case", c.Name, "literal", res.Literal, "latency", res.Latency)
		} else {
			r.logger.Warn("probe failed", "case", c.Name, "literal", res.Literal, "error", res.Err)
		}
		for _, rec := range r.recorders {
			if err := rec.Record(ctx, res); err != nil {
				r.logger.Error("recording probe result failed", "case", c.Name, "error", err)
			}
		}
	}

	s := Summarise(results)
	r.logger.Info("probe run complete", "total", s.Total, "passed", s.Passed, "failed", s.Failed)
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) Result {
	res := Result{Case: c.Name, Cast: c.Cast, Want: c.want()}

	lit, err := r.q.Mogrify("$1", c.Value)
	if err != nil {
		res.Err = err
		return res
	}
	res.Literal = lit

	start := time.Now()
	rs, err := r.q.Query(ctx, "SELECT ($1)::"+c.Cast, c.Value)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	if err := rs.Err(); err != nil {
		res.Err = err
		return res
	}
	if len(rs.Rows) != 1 || len(rs.Rows[0].Values) != 1 {
		res.Err = fmt.Errorf("probe: expected one value, got %d rows", len(rs.Rows))
		return res
	}

	res.Got = rs.Rows[0].Values[0]
	if !c.equal(res.Want, res.Got) {
		res.Err = fmt.Errorf("%w: want %#v, got %#v", ErrMismatch, res.Want, res.Got)
		return res
	}
	res.Passed = true
	return res
}
