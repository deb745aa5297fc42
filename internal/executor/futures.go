package executor

import "sync"

// orderedFutures is a FIFO of in-progress computations. Push starts work
// immediately (eagerly, not lazily); Drain consumes items in push order and
// returns results in that same order regardless of individual completion
// order, giving the executor head-of-line blocking by design (§4.2): a slow
// early call delays reporting of a fast later one, which is the behaviour
// the conversation needs to see results in request order.
type orderedFutures[T any] struct {
	mu    sync.Mutex
	items []chan T
}

func newOrderedFutures[T any]() *orderedFutures[T] {
	return &orderedFutures[T]{}
}

// Push starts work in its own goroutine and appends its eventual result to
// the queue.
func (q *orderedFutures[T]) Push(work func() T) {
	result := make(chan T, 1)
	go func() {
		result <- work()
	}()
	q.mu.Lock()
	q.items = append(q.items, result)
	q.mu.Unlock()
}

// Len returns the number of not-yet-drained items.
func (q *orderedFutures[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain awaits every queued item in push order and resets the queue so a
// subsequent Push sequence starts a new batch.
func (q *orderedFutures[T]) Drain() []T {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	results := make([]T, len(items))
	for i, ch := range items {
		results[i] = <-ch
	}
	return results
}
