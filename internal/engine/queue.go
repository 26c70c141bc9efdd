package engine

import (
	"sync"

	"github.com/roach88/iseven/internal/domain"
)

// BoundedQueue is a fixed-capacity, thread-safe FIFO.
//
// Put blocks while the queue is full and Get blocks while it is empty.
// Every operation runs under one mutex; waiters park on one of two
// conditions (notFull, notEmpty) and re-check their predicate in a loop
// after every wakeup, so a Put or Get that completes after a waiter parked
// always reaches it.
//
// Two ways to stop:
//   - Close: end of input. Put fails; Get drains what is left, then fails.
//   - Shutdown: abort. Put and Get fail immediately, queued items are dropped.
//
// Failed operations return domain.ErrClosed.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items []T // ring buffer, len(items) == capacity
	head  int // index of the oldest item
	n     int // number of queued items

	closed   bool
	shutdown bool
}

// NewBoundedQueue creates a queue holding at most capacity items.
// The ring buffer is allocated once, up front.
func NewBoundedQueue[T any](capacity int) (*BoundedQueue[T], error) {
	if capacity < 1 {
		return nil, domain.NewResourceError("queue capacity must be at least 1", nil)
	}

	q := &BoundedQueue[T]{
		items: make([]T, capacity),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Put appends item at the tail, blocking while the queue is full.
// Returns domain.ErrClosed if the queue is closed or shut down, including
// when that happens while Put is blocked.
func (q *BoundedQueue[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.n == len(q.items) && !q.closed && !q.shutdown {
		q.notFull.Wait()
	}
	if q.closed || q.shutdown {
		return domain.ErrClosed
	}

	q.items[(q.head+q.n)%len(q.items)] = item
	q.n++
	q.notEmpty.Signal()
	return nil
}

// Get removes and returns the head, blocking while the queue is empty.
// After Close it keeps returning queued items until none are left.
// Returns domain.ErrClosed once there is nothing more to hand out.
func (q *BoundedQueue[T]) Get() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.n == 0 && !q.closed && !q.shutdown {
		q.notEmpty.Wait()
	}

	var zero T
	if q.shutdown || q.n == 0 {
		return zero, domain.ErrClosed
	}

	item := q.items[q.head]
	// Release the slot so the ring does not pin the item.
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.n--
	q.notFull.Signal()
	return item, nil
}

// Close marks the end of input and wakes every blocked caller.
// Idempotent.
func (q *BoundedQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Shutdown aborts the queue: blocked and future callers get
// domain.ErrClosed and queued items are dropped. Idempotent.
func (q *BoundedQueue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return
	}
	q.shutdown = true

	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.head, q.n = 0, 0

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Len returns the number of queued items.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Cap returns the fixed capacity.
func (q *BoundedQueue[T]) Cap() int {
	return len(q.items)
}
