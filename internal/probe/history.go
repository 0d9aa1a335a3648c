package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pgadapt/internal/infrastructure/database"
)

// History stores results in the cache database's probe_results table.
// Each History is one run, identified by a random run ID.
type History struct {
	db        *database.DB
	serverKey string
	runID     string
}

// StoredResult is a row of probe_results.
type StoredResult struct {
	ServerKey string `db:"server_key"`
	RunID     string `db:"run_id"`
	Case      string `db:"case_name"`
	Literal   string `db:"literal"`
	Passed    bool   `db:"passed"`
	Detail    string `db:"detail"`
	LatencyUS int64  `db:"latency_us"`
	RanAt     string `db:"ran_at"`
}

// NewHistory starts a new run for serverKey.
func NewHistory(db *database.DB, serverKey string) *History {
	return &History{db: db, serverKey: serverKey, runID: uuid.NewString()}
}

// RunID identifies this run's rows.
func (h *History) RunID() string { return h.runID }

// Record implements Recorder.
func (h *History) Record(ctx context.Context, r Result) error {
	row := StoredResult{
		ServerKey: h.serverKey,
		RunID:     h.runID,
		Case:      r.Case,
		Literal:   r.Literal,
		Passed:    r.Passed,
		LatencyUS: r.Latency.Microseconds(),
		RanAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if r.Err != nil {
		row.Detail = r.Err.Error()
	}

	_, err := h.db.NamedExecContext(ctx, `
		INSERT INTO probe_results (server_key, run_id, case_name, literal, passed, detail, latency_us, ran_at)
		VALUES (:server_key, :run_id, :case_name, :literal, :passed, :detail, :latency_us, :ran_at)`, row)
	if err != nil {
		return fmt.Errorf("storing probe result %s: %w", r.Case, err)
	}
	return nil
}

// Results returns the stored rows of one run in insertion order.
func (h *History) Results(ctx context.Context, runID string) ([]StoredResult, error) {
	var rows []StoredResult
	err := h.db.SelectContext(ctx, &rows, `
		SELECT server_key, run_id, case_name, literal, passed, detail, latency_us, ran_at
		  FROM probe_results
		 WHERE run_id = ?
		 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing probe results: %w", err)
	}
	return rows, nil
}

// LastRun returns the ID of the most recent run for the history's server,
// or "" when there is none.
func (h *History) LastRun(ctx context.Context) (string, error) {
	var ids []string
	err := h.db.SelectContext(ctx, &ids, `
		SELECT run_id FROM probe_results
		 WHERE server_key = ?
		 ORDER BY id DESC
		 LIMIT 1`, h.serverKey)
	if err != nil {
		return "", fmt.Errorf("finding last probe run: %w", err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}
