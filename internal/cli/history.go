package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Target string
	Limit  int
}

type historyOutput []store.Run

func (h historyOutput) String() string {
	if len(h) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for i, r := range h {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d  %s  %-10d %-9s %-7s %8s  %s",
			r.Seq, r.FinishedAt.Format(time.RFC3339), r.Target, r.Status, r.Verdict,
			r.Elapsed.Round(time.Millisecond), r.ID)
		if r.Error != "" {
			fmt.Fprintf(&b, "  %s", r.Error)
		}
	}
	return b.String()
}

func newHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled scans",
		Long: `List scans recorded in the run journal, oldest first.

Example:
  iseven history --journal runs.db
  iseven history --journal runs.db --target 4 --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "only runs for this number")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "newest runs to show (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := resolveConfig(cmd, opts.RootOptions)
	if err != nil {
		return fail(out, "", err)
	}
	if cfg.Journal == "" {
		return fail(out, "", domain.NewValidationError("history needs a journal (--journal or ISEVEN_JOURNAL)", nil))
	}

	f := store.Filter{Limit: opts.Limit}
	if opts.Target != "" {
		n, err := domain.ParseTarget(opts.Target)
		if err != nil {
			return fail(out, "", err)
		}
		t := uint64(n)
		f.Target = &t
	}

	journal, err := store.Open(cfg.Journal)
	if err != nil {
		return fail(out, "", domain.NewResourceError("cannot open journal "+cfg.Journal, err))
	}
	defer journal.Close()

	runs, err := journal.ListRuns(cmd.Context(), f)
	if err != nil {
		return fail(out, "", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}
	return out.Success(historyOutput(runs))
}
