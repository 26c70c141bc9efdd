package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/iseven/internal/artifact"
	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/generate"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Start uint64
	Count uint64
	Force bool
}

type generateOutput struct {
	Location string `json:"location"`
	generate.Stats
}

func (o generateOutput) String() string {
	return fmt.Sprintf("wrote %d artifacts to %s (%d already present)", o.Written, o.Location, o.Skipped)
}

func newGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate [location]",
		Short: "Write the artifacts a scan evaluates",
		Long: `Write one artifact per key into a directory or bucket URL.

The location defaults to the configured assets. Existing non-empty
artifacts are kept unless --force is given.

Example:
  iseven generate ./outdir
  iseven generate --start 0 --count 10 mem://
  iseven generate --force file:///var/lib/iseven`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args)
		},
	}

	cmd.Flags().Uint64Var(&opts.Start, "start", 0, "first key index")
	cmd.Flags().Uint64Var(&opts.Count, "count", 0, "number of keys (0 = through the last key)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "rewrite existing artifacts")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions, args []string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := resolveConfig(cmd, opts.RootOptions)
	if err != nil {
		return fail(out, "", err)
	}
	location := cfg.Assets
	if len(args) == 1 {
		location = args[0]
	}

	ctx := withLogger(cmd.Context(), cmd, opts.RootOptions)
	assets, err := artifact.OpenStore(ctx, location)
	if err != nil {
		return fail(out, "", domain.NewResourceError("cannot open assets", err))
	}
	defer assets.Close()

	stats, err := generate.Run(ctx, assets, generate.Options{
		Layout:   cfg.Layout(),
		Workers:  cfg.Workers,
		Capacity: cfg.QueueCapacity,
		Start:    opts.Start,
		Count:    opts.Count,
		Force:    opts.Force,
	})
	if err != nil {
		return fail(out, "", err)
	}

	return out.Success(generateOutput{Location: location, Stats: stats})
}
