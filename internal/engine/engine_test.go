package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/keyspace"
	itest "github.com/roach88/iseven/internal/testutil"
)

// sixteen is a layout small enough to exhaust in a test: 2^32 / 2^28 keys.
var sixteen = keyspace.Layout{ChunkSize: 1 << 28}

func newTestEngine(eval Evaluator, opts ...Option) *Engine {
	base := []Option{
		WithProgress(0, nil),
		WithRunIDGenerator(itest.NewFixedRunID("run-test")),
	}
	return New(eval, append(base, opts...)...)
}

func runWithTimeout(t *testing.T, e *Engine, target uint64) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type ret struct {
		res Result
		err error
	}
	done := make(chan ret, 1)
	go func() {
		res, err := e.Run(ctx, target)
		done <- ret{res, err}
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return")
		return Result{}, nil
	}
}

func TestEngine_ScenarioA_FourIsEven(t *testing.T) {
	ev := itest.NewScriptedEvaluator().Verdict(4, domain.True)
	e := newTestEngine(ev, WithWorkers(1))

	res, err := runWithTimeout(t, e, 4)
	require.NoError(t, err)

	assert.Equal(t, domain.True, res.Verdict)
	assert.Equal(t, "even", res.Verdict.Parity())
	assert.Equal(t, uint32(4), res.Item.Index)
	assert.Equal(t, "00/00/00/000004", res.Item.Name)
	assert.Equal(t, "run-test", res.RunID)

	// Nothing past the winning key reached the evaluator.
	maxIdx, ok := ev.MaxIndex()
	require.True(t, ok)
	assert.Equal(t, uint32(4), maxIdx)

	calls := ev.Calls()
	require.Len(t, calls, 5)
	for i, c := range calls {
		assert.Equal(t, uint32(i), c.Index, "keys are consumed in ascending order by a single worker")
	}
	assert.Equal(t, int64(5), res.Evaluated)
}

func TestEngine_ScenarioA_ManyWorkers(t *testing.T) {
	ev := itest.NewScriptedEvaluator().Verdict(4, domain.True)
	e := newTestEngine(ev, WithWorkers(4), WithCapacity(2))

	res, err := runWithTimeout(t, e, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.True, res.Verdict)
	assert.Equal(t, uint32(4), res.Item.Index)
	assert.Equal(t, 4, res.Workers)
}

func TestEngine_ScenarioB_SevenIsOdd(t *testing.T) {
	ev := itest.NewScriptedEvaluator().Verdict(7, domain.False)
	e := newTestEngine(ev, WithWorkers(1))

	res, err := runWithTimeout(t, e, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.False, res.Verdict)
	assert.Equal(t, "odd", res.Verdict.Parity())
	assert.Equal(t, uint32(7), res.Item.Index)
}

func TestEngine_ScenarioC_LoadErrorOnFirstKey(t *testing.T) {
	loadErr := domain.NewLoadError("outdir/00/00/00/000000", "missing artifact", nil)
	ev := itest.NewScriptedEvaluator().FailAll(loadErr)
	e := newTestEngine(ev, WithWorkers(1))

	res, err := runWithTimeout(t, e, 4)
	require.Error(t, err)
	assert.True(t, domain.IsLoad(err))
	assert.ErrorIs(t, err, loadErr)
	assert.Contains(t, err.Error(), "outdir/00/00/00/000000")

	assert.Len(t, ev.Calls(), 1, "no key is evaluated after a fatal load error")
	assert.Equal(t, uint32(0), res.Item.Index)
	assert.Equal(t, domain.Inconclusive, res.Verdict)
}

func TestEngine_ScenarioC_ManyWorkersStopPromptly(t *testing.T) {
	ev := itest.NewScriptedEvaluator().FailAll(domain.NewLoadError("k", "missing artifact", nil))
	e := newTestEngine(ev, WithWorkers(4))

	_, err := runWithTimeout(t, e, 4)
	require.Error(t, err)
	assert.True(t, domain.IsLoad(err))
	// Each worker evaluates at most the key it held when the signal tripped.
	assert.LessOrEqual(t, len(ev.Calls()), 4)
}

func TestEngine_ScenarioD_TargetOutOfRange(t *testing.T) {
	ev := itest.NewScriptedEvaluator()
	e := newTestEngine(ev, WithWorkers(2))

	res, err := e.Run(context.Background(), 4294967296)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	assert.Empty(t, ev.Calls())
	assert.Zero(t, res.Workers, "workers are never sized for an invalid target")
	assert.Zero(t, res.Enqueued)
}

func TestEngine_PlainErrorsBecomeLoadErrors(t *testing.T) {
	ev := itest.NewScriptedEvaluator().Fail(0, errors.New("permission denied"))
	e := newTestEngine(ev, WithWorkers(1))

	_, err := runWithTimeout(t, e, 4)
	require.Error(t, err)
	assert.True(t, domain.IsLoad(err))
	assert.Contains(t, err.Error(), "00/00/00/000000")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestEngine_Exhausted(t *testing.T) {
	ev := itest.NewScriptedEvaluator()
	e := newTestEngine(ev, WithLayout(sixteen), WithWorkers(3), WithCapacity(2))

	before := testutil.ToFloat64(mRuns.WithLabelValues("exhausted"))

	res, err := runWithTimeout(t, e, 12345)
	require.Error(t, err)
	assert.True(t, domain.IsExhausted(err))

	assert.Equal(t, int64(16), res.Enqueued)
	assert.Equal(t, int64(16), res.Evaluated)

	seen := make(map[uint32]bool)
	for _, c := range ev.Calls() {
		require.False(t, seen[c.Index], "key %d evaluated twice", c.Index)
		seen[c.Index] = true
	}
	assert.Len(t, seen, 16)

	assert.Equal(t, before+1, testutil.ToFloat64(mRuns.WithLabelValues("exhausted")))
}

func TestEngine_RangeEvaluator(t *testing.T) {
	tests := []struct {
		target uint64
		want   domain.Verdict
	}{
		{target: 0, want: domain.True},
		{target: 3_000_000_001, want: domain.False},
		{target: 4294967295, want: domain.False},
	}

	for _, tt := range tests {
		e := newTestEngine(itest.RangeEvaluator{Layout: sixteen}, WithLayout(sixteen), WithWorkers(4))
		res, err := runWithTimeout(t, e, tt.target)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Verdict, "target %d", tt.target)
		assert.Equal(t, sixteen.Locate(uint32(tt.target)), res.Item.Index)
	}
}

func TestEngine_InvalidCapacity(t *testing.T) {
	ev := itest.NewScriptedEvaluator()
	e := newTestEngine(ev, WithCapacity(0), WithWorkers(1))

	_, err := e.Run(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, domain.IsResource(err))
	assert.Empty(t, ev.Calls())
}

func TestEngine_InvalidLayout(t *testing.T) {
	e := newTestEngine(itest.NewScriptedEvaluator(), WithLayout(keyspace.Layout{}))

	_, err := e.Run(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

// blockingEvaluator parks every evaluation until its context is done.
type blockingEvaluator struct {
	started chan struct{}
}

func (b *blockingEvaluator) Evaluate(ctx context.Context, _ domain.WorkItem, _ uint32) (domain.Verdict, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return domain.Inconclusive, ctx.Err()
}

func TestEngine_Cancellation(t *testing.T) {
	ev := &blockingEvaluator{started: make(chan struct{}, 1)}
	e := newTestEngine(ev, WithWorkers(2), WithCapacity(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Run(ctx, 4)
		done <- err
	}()

	select {
	case <-ev.started:
	case <-time.After(5 * time.Second):
		t.Fatal("no evaluation started")
	}
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, domain.IsLoad(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestEngine_ProgressCallback(t *testing.T) {
	// A real clock with a tiny interval: the scan below blocks until at
	// least one sample has been delivered.
	samples := make(chan Progress, 16)
	gate := make(chan struct{})
	ev := &gatedEvaluator{gate: gate}

	e := newTestEngine(ev, WithWorkers(1), WithProgress(time.Millisecond, func(p Progress) {
		select {
		case samples <- p:
		default:
		}
	}))

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background(), 4)
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for sampled := false; !sampled; {
		select {
		case p := <-samples:
			sampled = p.Enqueued >= 1
		case <-deadline:
			t.Fatal("no progress sample with enqueued keys")
		}
	}
	close(gate)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

// gatedEvaluator answers True for every key once gate is closed.
type gatedEvaluator struct {
	gate chan struct{}
}

func (g *gatedEvaluator) Evaluate(_ context.Context, _ domain.WorkItem, _ uint32) (domain.Verdict, error) {
	<-g.gate
	return domain.True, nil
}
