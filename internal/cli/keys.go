package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/iseven/internal/artifact"
	"github.com/roach88/iseven/internal/domain"
)

var numbers = message.NewPrinter(language.English)

type keySpaceOutput struct {
	ChunkSize uint64 `json:"chunk_size"`
	Keys      uint64 `json:"keys"`
	First     string `json:"first"`
	Last      string `json:"last"`
	LastSize  uint64 `json:"last_size"`
}

func (o keySpaceOutput) String() string {
	return numbers.Sprintf("%d keys of %d values (%s .. %s, last key holds %d)",
		o.Keys, o.ChunkSize, o.First, o.Last, o.LastSize)
}

type keyOutput struct {
	Number   uint32 `json:"number"`
	Index    uint32 `json:"index"`
	Key      string `json:"key"`
	Location string `json:"location"`
	Low      uint64 `json:"low"`
	High     uint64 `json:"high"`
}

func (o keyOutput) String() string {
	return numbers.Sprintf("%d is covered by key %d (%s) holding [%d, %d)",
		o.Number, o.Index, o.Location, o.Low, o.High)
}

func newKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [number]",
		Short: "Describe the key space or the key covering a number",
		Long: `Describe the key space for the configured chunk size, or name the key
whose artifact decides the given number.

Example:
  iseven keys
  iseven keys --chunk-size 1000000 4294967295`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(cmd, rootOpts, args)
		},
	}
}

func runKeys(cmd *cobra.Command, opts *RootOptions, args []string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return fail(out, "", err)
	}
	l := cfg.Layout()

	if len(args) == 0 {
		last := uint32(l.Count() - 1)
		lo, hi := l.Range(last)
		return out.Success(keySpaceOutput{
			ChunkSize: l.ChunkSize,
			Keys:      l.Count(),
			First:     l.Item(0).Name,
			Last:      l.Item(last).Name,
			LastSize:  hi - lo,
		})
	}

	n, err := domain.ParseTarget(args[0])
	if err != nil {
		return fail(out, "", err)
	}

	ctx := withLogger(cmd.Context(), cmd, opts)
	assets, err := artifact.OpenStore(ctx, cfg.Assets)
	if err != nil {
		return fail(out, "", domain.NewResourceError("cannot open assets", err))
	}
	defer assets.Close()

	item := l.Item(l.Locate(n))
	lo, hi := l.Range(item.Index)
	return out.Success(keyOutput{
		Number:   n,
		Index:    item.Index,
		Key:      item.Name,
		Location: assets.Location(item.Name),
		Low:      lo,
		High:     hi,
	})
}
