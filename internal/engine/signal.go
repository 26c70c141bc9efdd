package engine

import (
	"sync"

	"github.com/roach88/iseven/internal/domain"
)

// Outcome records what tripped a Signal.
type Outcome struct {
	Verdict domain.Verdict
	Item    domain.WorkItem
	Worker  int
	Err     error
}

// Signal is the run-wide termination flag.
//
// It starts untripped and is tripped at most once. The first Trip wins and
// its Outcome is kept; later trips are no-ops and report that they lost.
// Tripped and Done are safe to poll from any goroutine.
type Signal struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

// NewSignal returns an untripped signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Trip records o and closes Done if the signal was not already tripped.
// Returns true if this call won.
func (s *Signal) Trip(o Outcome) bool {
	won := false
	s.once.Do(func() {
		s.outcome = o
		close(s.done)
		won = true
	})
	return won
}

// Tripped reports whether the signal has been tripped.
func (s *Signal) Tripped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the signal trips.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the winning outcome and whether the signal has tripped.
func (s *Signal) Outcome() (Outcome, bool) {
	if !s.Tripped() {
		return Outcome{}, false
	}
	// close(done) happens after outcome is written inside once.Do, so the
	// receive in Tripped orders this read after that write.
	return s.outcome, true
}
