package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/iseven/internal/domain"
)

// Scenario defines one scripted scan.
// The engine runs for real; only the per-key evaluations are scripted.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden traces are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Target is the number being scanned for. It is not range checked
	// here so scenarios can exercise the engine's own validation.
	Target uint64 `yaml:"target"`

	// Workers is the pool size. Zero selects the engine default.
	Workers int `yaml:"workers"`

	// Capacity is the queue capacity. Zero selects the engine default.
	Capacity int `yaml:"capacity,omitempty"`

	// ChunkSize overrides the default key space layout.
	ChunkSize uint64 `yaml:"chunk_size,omitempty"`

	// Keys scripts the outcome for individual key indices.
	Keys []KeyStep `yaml:"keys,omitempty"`

	// Default is the outcome for unscripted keys: "inconclusive" (the
	// default) or "error".
	Default string `yaml:"default,omitempty"`

	// Expect is the scan's expected outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the evaluation trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// KeyStep scripts one key. Exactly one of Verdict or Error is set.
type KeyStep struct {
	Index uint32 `yaml:"index"`

	// Verdict is "true", "false" or "inconclusive".
	Verdict string `yaml:"verdict,omitempty"`

	// Error makes the key fail to load with this message.
	Error string `yaml:"error,omitempty"`
}

// Expect is the expected scan outcome. Exactly one of Verdict or Error is set.
type Expect struct {
	// Verdict is "true" (even) or "false" (odd).
	Verdict string `yaml:"verdict,omitempty"`

	// Error is the expected error code, e.g. "LOAD".
	Error string `yaml:"error,omitempty"`

	// Key is the index of the key that decided the scan, if checked.
	Key *uint32 `yaml:"key,omitempty"`
}

// Assertion validates the evaluation trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "evaluated": the key at Index was evaluated
	// - "not_evaluated": the key at Index was never evaluated
	// - "max_index": no key past Index was evaluated
	// - "count": exactly Count evaluations happened
	// - "order": keys were evaluated exactly in Indices order
	Type string `yaml:"type"`

	Index   uint32   `yaml:"index,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Indices []uint32 `yaml:"indices,omitempty"`
}

// Assertion type constants.
const (
	AssertEvaluated    = "evaluated"
	AssertNotEvaluated = "not_evaluated"
	AssertMaxIndex     = "max_index"
	AssertCount        = "count"
	AssertOrder        = "order"
)

// Defaults for unscripted keys.
const (
	DefaultInconclusive = "inconclusive"
	DefaultError        = "error"
)

var expectCodes = []domain.ErrorCode{
	domain.ErrCodeValidation,
	domain.ErrCodeResource,
	domain.ErrCodeLoad,
	domain.ErrCodeExhausted,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if s.Capacity < 0 {
		return fmt.Errorf("capacity must be non-negative")
	}

	switch s.Default {
	case "", DefaultInconclusive, DefaultError:
	default:
		return fmt.Errorf("default must be %q or %q, got %q", DefaultInconclusive, DefaultError, s.Default)
	}

	seen := make(map[uint32]bool, len(s.Keys))
	for i, k := range s.Keys {
		if seen[k.Index] {
			return fmt.Errorf("keys[%d]: index %d scripted twice", i, k.Index)
		}
		seen[k.Index] = true

		if (k.Verdict == "") == (k.Error == "") {
			return fmt.Errorf("keys[%d]: exactly one of verdict or error is required", i)
		}
		if k.Verdict != "" {
			if _, err := domain.ParseVerdict(k.Verdict); err != nil {
				return fmt.Errorf("keys[%d]: %w", i, err)
			}
		}
	}

	if err := validateExpect(&s.Expect); err != nil {
		return err
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s.Workers); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(e *Expect) error {
	if (e.Verdict == "") == (e.Error == "") {
		return fmt.Errorf("expect: exactly one of verdict or error is required")
	}
	if e.Verdict != "" {
		v, err := domain.ParseVerdict(e.Verdict)
		if err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		if !v.Conclusive() {
			return fmt.Errorf("expect: verdict must be true or false, got %q", e.Verdict)
		}
		return nil
	}
	if !slices.Contains(expectCodes, domain.ErrorCode(e.Error)) {
		return fmt.Errorf("expect: unknown error code %q", e.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, workers int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEvaluated, AssertNotEvaluated, AssertMaxIndex:
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertOrder:
		if workers != 1 {
			return fmt.Errorf("assertions[%d]: order needs workers: 1", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
