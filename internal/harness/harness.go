package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/chainguard-dev/clog"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/engine"
	"github.com/roach88/iseven/internal/keyspace"
	"github.com/roach88/iseven/internal/testutil"
)

// TraceEvent is one evaluator call, in call order.
type TraceEvent struct {
	Seq   int    `json:"seq"`
	Index uint32 `json:"index"`
	Key   string `json:"key"`
}

// Outcome is how a scan ended: a verdict or an error code.
type Outcome struct {
	Verdict string  `json:"verdict,omitempty"`
	Error   string  `json:"error,omitempty"`
	Key     *uint32 `json:"key,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the outcome and every assertion matched.
	Pass bool `json:"pass"`

	Outcome   Outcome      `json:"outcome"`
	Trace     []TraceEvent `json:"trace"`
	Evaluated int64        `json:"evaluated"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a fresh Engine and returns the result.
//
// Mismatches are reported in Result.Errors. An error return means the
// scenario could not be judged at all, e.g. ctx was cancelled.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	ev := scriptFor(s)

	layout := keyspace.Default()
	if s.ChunkSize != 0 {
		layout = keyspace.Layout{ChunkSize: s.ChunkSize}
	}
	capacity := s.Capacity
	if capacity == 0 {
		capacity = engine.DefaultCapacity
	}

	eng := engine.New(ev,
		engine.WithLayout(layout),
		engine.WithWorkers(s.Workers),
		engine.WithCapacity(capacity),
		engine.WithRunIDGenerator(testutil.NewFixedRunID(s.Name)),
	)

	// Scan logs would drown test output.
	ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := eng.Run(ctx, s.Target)

	result := &Result{Pass: true, Trace: []TraceEvent{}, Evaluated: res.Evaluated}
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		result.Outcome.Error = string(de.Code)
		if de.Code == domain.ErrCodeLoad {
			idx := res.Item.Index
			result.Outcome.Key = &idx
		}
	} else {
		idx := res.Item.Index
		result.Outcome = Outcome{Verdict: res.Verdict.String(), Key: &idx}
	}

	for i, item := range ev.Calls() {
		result.Trace = append(result.Trace, TraceEvent{Seq: i + 1, Index: item.Index, Key: item.Name})
	}

	checkExpect(result, &s.Expect)
	for i, a := range s.Assertions {
		checkAssertion(result, i, &a)
	}
	return result, nil
}

func scriptFor(s *Scenario) *testutil.ScriptedEvaluator {
	ev := testutil.NewScriptedEvaluator()
	for _, k := range s.Keys {
		if k.Error != "" {
			ev.Fail(k.Index, domain.NewLoadError(keyspace.Name(k.Index), k.Error, nil))
			continue
		}
		v, _ := domain.ParseVerdict(k.Verdict) // checked by validateScenario
		ev.Verdict(k.Index, v)
	}
	if s.Default == DefaultError {
		ev.FailAll(domain.NewLoadError("", "missing artifact", nil))
	}
	return ev
}

func checkExpect(r *Result, e *Expect) {
	got := r.Outcome
	if got.Verdict != e.Verdict || got.Error != e.Error {
		r.AddError("expect: want verdict=%q error=%q, got verdict=%q error=%q",
			e.Verdict, e.Error, got.Verdict, got.Error)
	}
	if e.Key == nil {
		return
	}
	switch {
	case got.Key == nil:
		r.AddError("expect: want key %d, scan was not decided by a key", *e.Key)
	case *got.Key != *e.Key:
		r.AddError("expect: want key %d, got %d", *e.Key, *got.Key)
	}
}

func checkAssertion(r *Result, i int, a *Assertion) {
	indices := make([]uint32, len(r.Trace))
	for j, ev := range r.Trace {
		indices[j] = ev.Index
	}

	switch a.Type {
	case AssertEvaluated:
		if !slices.Contains(indices, a.Index) {
			r.AddError("assertions[%d]: key %d was not evaluated", i, a.Index)
		}
	case AssertNotEvaluated:
		if slices.Contains(indices, a.Index) {
			r.AddError("assertions[%d]: key %d was evaluated", i, a.Index)
		}
	case AssertMaxIndex:
		if len(indices) > 0 && slices.Max(indices) > a.Index {
			r.AddError("assertions[%d]: key %d evaluated, want none past %d", i, slices.Max(indices), a.Index)
		}
	case AssertCount:
		if len(indices) != a.Count {
			r.AddError("assertions[%d]: want %d evaluations, got %d", i, a.Count, len(indices))
		}
	case AssertOrder:
		if !slices.Equal(indices, a.Indices) {
			r.AddError("assertions[%d]: want order %v, got %v", i, a.Indices, indices)
		}
	}
}
