package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigFile    string
	Assets        string
	Workers       int
	QueueCapacity int
	ChunkSize     uint64
	Journal       string
	MetricsAddr   string
	Progress      time.Duration

	// Env overrides the process environment (for testing).
	Env envconfig.Lookuper

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Now overrides the journal clock (for testing).
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the iseven command tree. The root command itself
// scans for the parity of its single argument.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iseven <number>",
		Short: "Decide whether a number is even",
		Long: `Decide whether a 32-bit unsigned number is even by scanning a key space
of precomputed artifacts until one of them gives a conclusive answer.

Artifacts are written by "iseven generate" into a directory or a bucket
(file://, gs://, mem://).

Example:
  iseven generate ./outdir
  iseven --assets ./outdir 4
  iseven --format json --journal runs.db 4294967295`,
		Args:          exactlyOneNumber,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return domain.NewValidationError(
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, args[0])
		},
	}

	f := cmd.PersistentFlags()
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	f.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	f.StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	f.StringVar(&opts.Assets, "assets", "", "artifact directory or bucket URL (default \"outdir\")")
	f.IntVarP(&opts.Workers, "workers", "w", 0, "worker count (0 = logical CPUs - 1)")
	f.IntVar(&opts.QueueCapacity, "queue-capacity", 0, "bounded queue capacity (default 64)")
	f.Uint64Var(&opts.ChunkSize, "chunk-size", 0, "values per artifact (default 100000)")
	f.StringVar(&opts.Journal, "journal", "", "SQLite run journal path")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.DurationVar(&opts.Progress, "progress", 0, "progress report interval (default 10s, 0 disables)")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newKeysCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))

	return cmd
}

func exactlyOneNumber(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return domain.NewValidationError(
			fmt.Sprintf("expected exactly one number, got %d arguments", len(args)), nil)
	}
	return nil
}
