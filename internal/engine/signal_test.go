package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/iseven/internal/domain"
)

func TestSignal_FirstTripWins(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.Tripped())
	_, ok := s.Outcome()
	assert.False(t, ok)

	won := s.Trip(Outcome{Verdict: domain.True, Worker: 1})
	assert.True(t, won)
	assert.False(t, s.Trip(Outcome{Err: errors.New("late")}))

	assert.True(t, s.Tripped())
	out, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, domain.True, out.Verdict)
	assert.Equal(t, 1, out.Worker)
	assert.NoError(t, out.Err)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after trip")
	}
}

func TestSignal_ConcurrentTrips(t *testing.T) {
	s := NewSignal()
	var winners atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Trip(Outcome{Worker: i, Verdict: domain.False}) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	out, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, domain.False, out.Verdict)
}
