package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/keyspace"
)

// ScriptedEvaluator returns predetermined verdicts per key index and
// records every call.
//
// Indices without a script are Inconclusive. Thread-safe: workers call
// Evaluate concurrently.
type ScriptedEvaluator struct {
	mu       sync.Mutex
	verdicts map[uint32]domain.Verdict
	errs     map[uint32]error
	failAll  error
	calls    []domain.WorkItem
}

// NewScriptedEvaluator creates an evaluator with an empty script.
func NewScriptedEvaluator() *ScriptedEvaluator {
	return &ScriptedEvaluator{
		verdicts: make(map[uint32]domain.Verdict),
		errs:     make(map[uint32]error),
	}
}

// Verdict scripts v for the key at index.
func (s *ScriptedEvaluator) Verdict(index uint32, v domain.Verdict) *ScriptedEvaluator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[index] = v
	return s
}

// Fail scripts err for the key at index.
func (s *ScriptedEvaluator) Fail(index uint32, err error) *ScriptedEvaluator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[index] = err
	return s
}

// FailAll scripts err for every key without its own script.
func (s *ScriptedEvaluator) FailAll(err error) *ScriptedEvaluator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = err
	return s
}

// Evaluate implements engine.Evaluator.
func (s *ScriptedEvaluator) Evaluate(_ context.Context, item domain.WorkItem, _ uint32) (domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, item)
	if err, ok := s.errs[item.Index]; ok {
		return domain.Inconclusive, err
	}
	if v, ok := s.verdicts[item.Index]; ok {
		return v, nil
	}
	if s.failAll != nil {
		return domain.Inconclusive, s.failAll
	}
	return domain.Inconclusive, nil
}

// Calls returns the evaluated items in call order.
func (s *ScriptedEvaluator) Calls() []domain.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// MaxIndex returns the highest index evaluated so far.
func (s *ScriptedEvaluator) MaxIndex() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.calls) == 0 {
		return 0, false
	}
	m := s.calls[0].Index
	for _, c := range s.calls[1:] {
		m = max(m, c.Index)
	}
	return m, true
}

// RangeEvaluator answers the way a complete artifact tree would: the key
// whose chunk covers the target is conclusive, every other key is not.
type RangeEvaluator struct {
	Layout keyspace.Layout
}

// Evaluate implements engine.Evaluator.
func (r RangeEvaluator) Evaluate(_ context.Context, item domain.WorkItem, target uint32) (domain.Verdict, error) {
	lo, hi := r.Layout.Range(item.Index)
	if uint64(target) < lo || uint64(target) >= hi {
		return domain.Inconclusive, nil
	}
	if target%2 == 0 {
		return domain.True, nil
	}
	return domain.False, nil
}
