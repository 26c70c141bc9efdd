// Package engine implements the parallel key scan.
//
// ARCHITECTURE:
//
// One producer goroutine enumerates the key space in ascending order and
// feeds a BoundedQueue. N worker goroutines drain the queue, hand each key
// to an Evaluator and race to report the first conclusive verdict.
//
// Termination:
// The first worker to get a conclusive verdict or a fatal load error trips
// the run's Signal and shuts the queue down. Shutdown wakes every goroutine
// blocked in Put or Get; each of them sees domain.ErrClosed or the tripped
// Signal within one queue operation and returns. Run joins all of them
// before it reports.
//
// Exhaustion:
// When the producer runs out of keys it closes the queue. Workers drain
// what is left, get domain.ErrClosed and return; with no trip recorded the
// run ends with an EXHAUSTED error.
//
// The engine knows nothing about how a key is evaluated. Evaluators are
// injected: artifact.Evaluator in production, testutil.ScriptedEvaluator in
// tests.
package engine
