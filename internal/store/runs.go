package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/engine"
)

// Run statuses.
const (
	StatusResolved  = "resolved"
	StatusExhausted = "exhausted"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Run is one journal row.
type Run struct {
	Seq        int64         `json:"seq"`
	ID         string        `json:"id"`
	Target     uint64        `json:"target"`
	Status     string        `json:"status"`
	Verdict    string        `json:"verdict"`
	Key        string        `json:"key,omitempty"`
	Workers    int           `json:"workers"`
	Enqueued   int64         `json:"enqueued"`
	Evaluated  int64         `json:"evaluated"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// FromResult builds the journal row for a finished scan of target.
// res.Target is only set once the engine accepts the target, so the
// requested number is passed separately.
func FromResult(target uint64, res engine.Result, err error, finished time.Time) Run {
	r := Run{
		ID:         res.RunID,
		Target:     target,
		Status:     StatusResolved,
		Verdict:    res.Verdict.Parity(),
		Workers:    res.Workers,
		Enqueued:   res.Enqueued,
		Evaluated:  res.Evaluated,
		Elapsed:    res.Elapsed,
		FinishedAt: finished.UTC(),
	}
	if res.Verdict.Conclusive() || err != nil {
		r.Key = res.Item.Name
	}

	switch {
	case err == nil:
	case domain.IsExhausted(err):
		r.Status = StatusExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.Status = StatusCancelled
	default:
		r.Status = StatusFailed
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// RecordRun appends r to the journal and returns its seq.
// Uses ON CONFLICT(id) DO NOTHING: recording the same run twice keeps the
// first row and returns 0.
func (s *Store) RecordRun(ctx context.Context, r Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, target, status, verdict, key, workers, enqueued, evaluated, elapsed_ms, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		int64(r.Target),
		r.Status,
		r.Verdict,
		r.Key,
		r.Workers,
		r.Enqueued,
		r.Evaluated,
		r.Elapsed.Milliseconds(),
		r.Error,
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// Filter narrows ListRuns.
type Filter struct {
	// Target, when set, keeps only runs for that number.
	Target *uint64
	// Limit keeps the newest Limit rows; 0 keeps all.
	Limit int
}

// ListRuns returns journal rows oldest first.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	query := `
		SELECT seq, id, target, status, verdict, key, workers, enqueued, evaluated, elapsed_ms, error, finished_at
		FROM runs`
	var args []any
	if f.Target != nil {
		query += ` WHERE target = ?`
		args = append(args, int64(*f.Target))
	}
	query += ` ORDER BY seq DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			target   int64
			elapsed  int64
			finished string
		)
		if err := rows.Scan(
			&r.Seq, &r.ID, &target, &r.Status, &r.Verdict, &r.Key,
			&r.Workers, &r.Enqueued, &r.Evaluated, &elapsed, &r.Error, &finished,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Target = uint64(target)
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at %q: %w", r.ID, finished, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	slices.Reverse(runs)
	return runs, nil
}
