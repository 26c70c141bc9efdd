// Package harness runs scripted scan scenarios against the real engine.
//
// A scenario fixes the target, the pool and the layout, and scripts what
// the evaluator answers for each key. The engine's queue, workers and
// termination signal all run for real, so the harness checks the
// coordination rules: which keys were evaluated, in what order, and how
// the scan ended.
//
// # Scenario Format
//
//	name: even_target
//	description: "4 is even and nothing past key 4 is evaluated"
//	target: 4
//	workers: 1
//	keys:
//	  - index: 4
//	    verdict: "true"
//	expect:
//	  verdict: "true"
//	  key: 4
//	assertions:
//	  - type: max_index
//	    index: 4
//
// Unscripted keys are inconclusive unless default is "error", in which
// case they fail to load.
//
// # Assertion Types
//
//   - evaluated: the key at index was evaluated
//   - not_evaluated: the key at index was never evaluated
//   - max_index: no key past index was evaluated
//   - count: exactly count evaluations happened
//   - order: keys were evaluated in exactly this order (workers: 1 only)
//
// # Golden Files
//
// Single-worker scenarios have a reproducible trace. RunWithGolden
// compares it against testdata/golden/{name}.golden; regenerate with
// go test ./internal/harness -update.
package harness
