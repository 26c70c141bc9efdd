// Package generate writes the per-key artifacts the scanner evaluates.
package generate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/iseven/internal/artifact"
	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/engine"
	"github.com/roach88/iseven/internal/keyspace"
)

// Options selects which artifacts to write and how.
type Options struct {
	Layout keyspace.Layout

	// Workers is the number of writers; 0 picks engine.DefaultWorkers.
	Workers int

	// Capacity bounds the index queue; 0 means engine.DefaultCapacity.
	Capacity int

	// Start and Count select the window [Start, Start+Count) of key
	// indices. Count 0 means every key from Start on.
	Start uint64
	Count uint64

	// Force rewrites artifacts that already exist.
	Force bool
}

// Stats counts what a run did.
type Stats struct {
	Written int64 `json:"written"`
	Skipped int64 `json:"skipped"`
}

// Run writes one artifact per selected key into store.
func Run(ctx context.Context, store artifact.Store, opts Options) (Stats, error) {
	if err := opts.Layout.Validate(); err != nil {
		return Stats{}, err
	}

	total := opts.Layout.Count()
	if opts.Start >= total {
		return Stats{}, domain.NewValidationError(
			fmt.Sprintf("start %d is past the last key %d", opts.Start, total-1), nil)
	}
	end := total
	if opts.Count > 0 {
		end = min(opts.Start+opts.Count, total)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = engine.DefaultWorkers(ctx)
	}
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = engine.DefaultCapacity
	}

	q, err := engine.NewBoundedQueue[uint32](capacity)
	if err != nil {
		return Stats{}, err
	}

	var written, skipped atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, q.Shutdown)
	defer stop()

	clog.InfoContextf(ctx, "generating keys [%d, %d) with %d workers", opts.Start, end, workers)

	eg.Go(func() error {
		defer q.Close()
		for i := opts.Start; i < end; i++ {
			if err := q.Put(uint32(i)); err != nil {
				return nil
			}
		}
		return nil
	})

	for range workers {
		eg.Go(func() error {
			for {
				i, err := q.Get()
				if errors.Is(err, domain.ErrClosed) {
					return nil
				}

				w, err := writeOne(gctx, store, opts.Layout, i, opts.Force)
				if err != nil {
					return err
				}
				if w {
					written.Add(1)
				} else {
					skipped.Add(1)
				}
			}
		})
	}

	err = eg.Wait()
	stats := Stats{Written: written.Load(), Skipped: skipped.Load()}
	if err != nil {
		return stats, err
	}
	return stats, context.Cause(ctx)
}

func writeOne(ctx context.Context, store artifact.Store, l keyspace.Layout, i uint32, force bool) (bool, error) {
	key := keyspace.Name(i)
	if !force {
		ok, err := store.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", store.Location(key), err)
		}
		if ok {
			clog.DebugContextf(ctx, "skip %s", key)
			return false, nil
		}
	}

	lo, hi := l.Range(i)
	code, err := artifact.Assemble(lo, hi)
	if err != nil {
		return false, err
	}
	if err := store.Write(ctx, key, code); err != nil {
		return false, fmt.Errorf("write %s: %w", store.Location(key), err)
	}
	return true, nil
}
