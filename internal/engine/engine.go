package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/keyspace"
)

// Evaluator resolves and runs the computation stored for one key.
//
// Any returned error is fatal for the whole scan; it should be a
// domain.Error with ErrCodeLoad naming the key's location. Implementations
// must be safe for concurrent use by all workers.
type Evaluator interface {
	Evaluate(ctx context.Context, item domain.WorkItem, target uint32) (domain.Verdict, error)
}

const (
	// DefaultCapacity is the queue capacity unless configured otherwise.
	DefaultCapacity = 64

	// DefaultProgressInterval is how often a running scan logs progress.
	DefaultProgressInterval = 10 * time.Second
)

// Engine coordinates one producer and a pool of workers over a
// BoundedQueue. An Engine holds configuration only; each Run owns its own
// queue and signal, so an Engine may run several scans, one after another
// or concurrently.
type Engine struct {
	eval          Evaluator
	layout        keyspace.Layout
	workers       int
	capacity      int
	clock         clockwork.Clock
	progressEvery time.Duration
	onProgress    func(Progress)
	runIDs        RunIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLayout sets the key space layout. Default: keyspace.Default().
func WithLayout(l keyspace.Layout) Option {
	return func(e *Engine) {
		e.layout = l
	}
}

// WithWorkers sets the number of workers. Zero or less selects
// DefaultWorkers at run time.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithCapacity sets the queue capacity. Default: DefaultCapacity.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		e.capacity = n
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithProgress sets the progress interval and an optional callback that
// receives every sample alongside the log line. An interval of zero
// disables progress reporting.
func WithProgress(every time.Duration, fn func(Progress)) Option {
	return func(e *Engine) {
		e.progressEvery = every
		e.onProgress = fn
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine around eval.
func New(eval Evaluator, opts ...Option) *Engine {
	e := &Engine{
		eval:          eval,
		layout:        keyspace.Default(),
		capacity:      DefaultCapacity,
		clock:         clockwork.NewRealClock(),
		progressEvery: DefaultProgressInterval,
		runIDs:        UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result describes a finished scan. Run returns it on failure too, with
// whatever was known when the scan stopped.
type Result struct {
	RunID     string          `json:"run_id"`
	Target    uint32          `json:"target"`
	Verdict   domain.Verdict  `json:"-"`
	Item      domain.WorkItem `json:"item"`
	Worker    int             `json:"worker"`
	Workers   int             `json:"workers"`
	Enqueued  int64           `json:"enqueued"`
	Evaluated int64           `json:"evaluated"`
	Elapsed   time.Duration   `json:"elapsed_ns"`
}

type stats struct {
	enqueued  atomic.Int64
	evaluated atomic.Int64
}

// run is the per-scan state shared by the producer and workers.
type run struct {
	*Engine
	target uint32
	queue  *BoundedQueue[domain.WorkItem]
	signal *Signal
	stats  stats
}

// Run scans the key space for target.
//
// Targets past domain.MaxTarget fail with a validation error before any
// queue or goroutine exists. Otherwise Run returns:
//   - the winning verdict, with a nil error;
//   - the first fatal load error;
//   - an EXHAUSTED error if no key was conclusive;
//   - the context's cause if ctx is cancelled first.
func (e *Engine) Run(ctx context.Context, target uint64) (Result, error) {
	res := Result{RunID: e.runIDs.Generate()}

	t, err := domain.CheckTarget(target)
	if err != nil {
		return res, err
	}
	res.Target = t
	if err := e.layout.Validate(); err != nil {
		return res, err
	}

	workers := e.workers
	if workers < 1 {
		workers = DefaultWorkers(ctx)
	}
	res.Workers = workers

	q, err := NewBoundedQueue[domain.WorkItem](e.capacity)
	if err != nil {
		return res, err
	}

	log := clog.FromContext(ctx).With("run", res.RunID, "target", t)
	ctx = clog.WithLogger(ctx, log)
	log.Info("scan starting", "workers", workers, "capacity", q.Cap(), "keys", e.layout.Count())

	r := &run{Engine: e, target: t, queue: q, signal: NewSignal()}
	started := e.clock.Now()

	// Cancellation trips the signal like any other terminal event.
	stopWatch := context.AfterFunc(ctx, func() {
		r.signal.Trip(Outcome{Err: context.Cause(ctx)})
		q.Shutdown()
	})

	stopProgress := r.startProgress(ctx, started)

	var eg errgroup.Group
	eg.Go(func() error {
		return r.produce(ctx)
	})
	for id := range workers {
		eg.Go(func() error {
			return r.work(ctx, id)
		})
	}
	// Only the goroutine that won the signal with an error returns it;
	// the signal's outcome below is the source of truth.
	_ = eg.Wait()

	stopWatch()
	stopProgress()

	res.Enqueued = r.stats.enqueued.Load()
	res.Evaluated = r.stats.evaluated.Load()
	res.Elapsed = e.clock.Since(started)

	out, tripped := r.signal.Outcome()
	switch {
	case !tripped:
		mRuns.WithLabelValues("exhausted").Inc()
		log.Info("key space exhausted", "evaluated", res.Evaluated)
		return res, domain.NewExhaustedError(t, res.Evaluated)

	case out.Err != nil:
		mRuns.WithLabelValues("failed").Inc()
		res.Item, res.Worker = out.Item, out.Worker
		return res, out.Err
	}

	res.Verdict, res.Item, res.Worker = out.Verdict, out.Item, out.Worker
	mRuns.WithLabelValues("resolved").Inc()
	log.Info("scan finished", "verdict", res.Verdict, "key", res.Item.Name,
		"evaluated", res.Evaluated, "elapsed", res.Elapsed)
	return res, nil
}

// produce enumerates the key space into the queue in ascending order.
// It stops early once the signal trips or the queue is shut down, and
// closes the queue on the way out so idle workers see the end of input.
func (r *run) produce(ctx context.Context) error {
	defer r.queue.Close()

	count := r.layout.Count()
	for i := uint64(0); i < count; i++ {
		if r.signal.Tripped() {
			return nil
		}
		if err := r.queue.Put(r.layout.Item(uint32(i))); err != nil {
			// Shut down underneath us; whoever did it owns the outcome.
			return nil
		}
		r.stats.enqueued.Add(1)
		mEnqueuedKeys.Inc()
	}

	clog.FromContext(ctx).Debug("key space enumerated", "keys", count)
	return nil
}

// work drains the queue until the signal trips or the queue is closed.
func (r *run) work(ctx context.Context, id int) error {
	log := clog.FromContext(ctx).With("worker", id)

	for {
		if r.signal.Tripped() {
			return nil
		}
		item, err := r.queue.Get()
		if err != nil {
			return nil
		}
		if r.signal.Tripped() {
			return nil
		}

		start := r.clock.Now()
		v, err := r.eval.Evaluate(ctx, item, r.target)
		mEvaluateLatency.Observe(r.clock.Since(start).Seconds())
		r.stats.evaluated.Add(1)

		if err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-evaluation; the watcher reports it.
				r.signal.Trip(Outcome{Err: context.Cause(ctx)})
				r.queue.Shutdown()
				return nil
			}
			mLoadErrors.Inc()
			if !domain.IsLoad(err) {
				err = domain.NewLoadError(item.Name, "evaluation failed", err)
			}
			if !r.signal.Trip(Outcome{Item: item, Worker: id, Err: err}) {
				return nil
			}
			log.Info("fatal load error", "key", item.Name, "error", err)
			r.queue.Shutdown()
			return err
		}

		mEvaluatedKeys.WithLabelValues(v.String()).Inc()
		if !v.Conclusive() {
			log.Debug("inconclusive", "key", item.Name)
			continue
		}

		if r.signal.Trip(Outcome{Verdict: v, Item: item, Worker: id}) {
			log.Info("conclusive verdict", "key", item.Name, "verdict", v)
			r.queue.Shutdown()
		}
		return nil
	}
}

// startProgress launches the progress reporter and returns a func that
// stops it and waits for it to exit.
func (r *run) startProgress(ctx context.Context, started time.Time) func() {
	if r.progressEvery <= 0 {
		return func() {}
	}

	log := clog.FromContext(ctx)
	p := &progressReporter{
		clock: r.clock,
		every: r.progressEvery,
		sample: func() Progress {
			return Progress{
				Enqueued:  r.stats.enqueued.Load(),
				Evaluated: r.stats.evaluated.Load(),
				Queued:    r.queue.Len(),
				Elapsed:   r.clock.Since(started),
			}
		},
		emit: func(pr Progress) {
			mQueueDepth.Set(float64(pr.Queued))
			log.Info("scan progress", "enqueued", pr.Enqueued, "evaluated", pr.Evaluated,
				"queued", pr.Queued, "elapsed", pr.Elapsed)
			if r.onProgress != nil {
				r.onProgress(pr)
			}
		},
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.run(done)
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
