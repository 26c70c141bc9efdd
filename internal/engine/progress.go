package engine

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Progress is a point-in-time view of a running scan.
type Progress struct {
	Enqueued  int64
	Evaluated int64
	Queued    int
	Elapsed   time.Duration
}

// progressReporter samples a scan on a ticker and emits each sample.
type progressReporter struct {
	clock  clockwork.Clock
	every  time.Duration
	sample func() Progress
	emit   func(Progress)
}

// run blocks, emitting one sample per tick, until done is closed.
func (p *progressReporter) run(done <-chan struct{}) {
	tick := p.clock.NewTicker(p.every)
	defer tick.Stop()

	for {
		select {
		case <-done:
			return
		case <-tick.Chan():
			p.emit(p.sample())
		}
	}
}
