package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/roach88/iseven/internal/artifact"
	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/engine"
	"github.com/roach88/iseven/internal/store"
)

// scanOutput is the answer printed on success.
type scanOutput struct {
	Number    uint32 `json:"number"`
	Parity    string `json:"parity"`
	Even      bool   `json:"even"`
	Key       string `json:"key"`
	RunID     string `json:"run_id"`
	Workers   int    `json:"workers"`
	Evaluated int64  `json:"evaluated"`
}

func (o scanOutput) String() string {
	return fmt.Sprintf("%d is %s", o.Number, o.Parity)
}

// fail reports err on the output stream (JSON only) and wraps it for the
// process exit status.
func fail(out *OutputFormatter, runID string, err error) error {
	_ = out.Error(err, runID, nil)
	return WrapExitError(ExitFailure, "", err)
}

func runScan(cmd *cobra.Command, opts *RootOptions, arg string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	target, err := domain.ParseTarget(arg)
	if err != nil {
		return fail(out, "", err)
	}
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return fail(out, "", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(withLogger(parentCtx, cmd, opts))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			clog.WarnContextf(ctx, "received %v, stopping scan", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(ctx, cfg.MetricsAddr)
		if err != nil {
			return fail(out, "", err)
		}
		defer stop()
	}

	var journal *store.Store
	if cfg.Journal != "" {
		journal, err = store.Open(cfg.Journal)
		if err != nil {
			return fail(out, "", domain.NewResourceError("cannot open journal "+cfg.Journal, err))
		}
		defer func() {
			if err := journal.Close(); err != nil {
				clog.WarnContextf(ctx, "close journal: %v", err)
			}
		}()
	}

	assets, err := artifact.OpenStore(ctx, cfg.Assets)
	if err != nil {
		return fail(out, "", domain.NewResourceError("cannot open assets", err))
	}
	defer assets.Close()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	eng := engine.New(artifact.NewEvaluator(assets),
		engine.WithLayout(cfg.Layout()),
		engine.WithWorkers(cfg.Workers),
		engine.WithCapacity(cfg.QueueCapacity),
		engine.WithProgress(cfg.ProgressInterval, nil),
		engine.WithRunIDGenerator(runIDs),
	)

	res, runErr := eng.Run(ctx, uint64(target))

	if journal != nil {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		// Recorded even when the scan was cancelled.
		rec := store.FromResult(uint64(target), res, runErr, now())
		if _, err := journal.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
			clog.WarnContextf(ctx, "journal run %s: %v", res.RunID, err)
		}
	}

	if runErr != nil {
		return fail(out, res.RunID, runErr)
	}

	return out.Success(scanOutput{
		Number:    res.Target,
		Parity:    res.Verdict.Parity(),
		Even:      res.Verdict == domain.True,
		Key:       res.Item.Name,
		RunID:     res.RunID,
		Workers:   res.Workers,
		Evaluated: res.Evaluated,
	})
}
