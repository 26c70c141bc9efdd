// Package config merges iseven settings from defaults, an optional YAML
// file and ISEVEN_* environment variables, and validates the result
// against a CUE schema. Command-line flags are applied by the caller
// between Load and Validate.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/keyspace"
)

//go:embed schema.cue
var schemaCUE string

// Default values.
const (
	DefaultAssets           = "outdir"
	DefaultQueueCapacity    = 64
	DefaultProgressInterval = 10 * time.Second
)

// Config holds every tunable of a scan.
type Config struct {
	// Assets is the artifact location: a directory or a bucket URL.
	Assets string `yaml:"assets" json:"assets" env:"ISEVEN_ASSETS, overwrite"`

	// Workers is the worker count; 0 sizes the pool from the CPU count.
	Workers int `yaml:"workers" json:"workers" env:"ISEVEN_WORKERS, overwrite"`

	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity" env:"ISEVEN_QUEUE_CAPACITY, overwrite"`

	// ChunkSize is the number of values per key.
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" env:"ISEVEN_CHUNK_SIZE, overwrite"`

	// Journal is the SQLite run journal path; empty disables journaling.
	Journal string `yaml:"journal" json:"journal" env:"ISEVEN_JOURNAL, overwrite"`

	// MetricsAddr serves /metrics when set.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" env:"ISEVEN_METRICS_ADDR, overwrite"`

	// ProgressInterval is the period of progress reports; 0 disables them.
	ProgressInterval time.Duration `yaml:"progress_interval" json:"-" env:"ISEVEN_PROGRESS_INTERVAL, overwrite"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Assets:           DefaultAssets,
		QueueCapacity:    DefaultQueueCapacity,
		ChunkSize:        keyspace.DefaultChunkSize,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Layout returns the key space layout the config describes.
func (c Config) Layout() keyspace.Layout {
	return keyspace.Layout{ChunkSize: c.ChunkSize}
}

// Options controls Load.
type Options struct {
	// File is an optional YAML file. It must exist when set.
	File string

	// Lookuper resolves environment variables; nil reads the process
	// environment.
	Lookuper envconfig.Lookuper
}

// Load returns defaults overlaid with File and then the environment.
// The result is not validated.
func Load(ctx context.Context, opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return cfg, domain.NewValidationError("cannot read config file", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, domain.NewValidationError(fmt.Sprintf("bad config file %s", opts.File), err)
		}
	}

	l := opts.Lookuper
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return cfg, domain.NewValidationError("bad environment", err)
	}

	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks c against the configuration schema.
func (c Config) Validate() error {
	cctx := cuecontext.New()
	schema := cctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(cctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return domain.NewValidationError("invalid configuration", err)
	}

	if c.ProgressInterval < 0 {
		return domain.NewValidationError(
			fmt.Sprintf("invalid configuration: progress_interval %s is negative", c.ProgressInterval), nil)
	}
	return nil
}
