package executor

import (
	"context"
	"sync"
)

// rwLock is a multi-reader/single-writer coordinator with a writer-priority
// fairness policy: once a writer is waiting, newly arriving readers queue
// behind it rather than starving it indefinitely. Unlike sync.RWMutex, both
// Read and Write accept a context so a caller waiting on the lock can be
// unblocked by cancellation (§4.4's "cancellation before lock acquisition
// must skip the handler entirely").
//
// Acquisition is a hand-off: a waiter blocked on its ticket channel owns the
// lock the instant the channel closes, without re-checking shared state.
// Guards are not re-entrant and cannot be upgraded or downgraded, matching
// §4.3.
type rwLock struct {
	mu      sync.Mutex
	readers int
	writer  bool

	readerQ []chan struct{}
	writerQ []chan struct{}
}

func newRWLock() *rwLock {
	return &rwLock{}
}

// Read blocks until a read guard is available or ctx is done. The returned
// release function must be called exactly once to release the guard.
func (l *rwLock) Read(ctx context.Context) (release func(), err error) {
	l.mu.Lock()
	if !l.writer && len(l.writerQ) == 0 {
		l.readers++
		l.mu.Unlock()
		return l.releaseRead, nil
	}
	ticket := make(chan struct{})
	l.readerQ = append(l.readerQ, ticket)
	l.mu.Unlock()

	select {
	case <-ticket:
		return l.releaseRead, nil
	case <-ctx.Done():
		l.mu.Lock()
		if removeTicket(&l.readerQ, ticket) {
			l.mu.Unlock()
			return nil, ctx.Err()
		}
		// Already granted concurrently with cancellation: we own a read
		// guard we never asked to keep, so release it immediately.
		l.mu.Unlock()
		l.releaseRead()
		return nil, ctx.Err()
	}
}

// Write blocks until an exclusive guard is available or ctx is done.
func (l *rwLock) Write(ctx context.Context) (release func(), err error) {
	l.mu.Lock()
	if !l.writer && l.readers == 0 && len(l.writerQ) == 0 {
		l.writer = true
		l.mu.Unlock()
		return l.releaseWrite, nil
	}
	ticket := make(chan struct{})
	l.writerQ = append(l.writerQ, ticket)
	l.mu.Unlock()

	select {
	case <-ticket:
		return l.releaseWrite, nil
	case <-ctx.Done():
		l.mu.Lock()
		if removeTicket(&l.writerQ, ticket) {
			l.mu.Unlock()
			return nil, ctx.Err()
		}
		l.mu.Unlock()
		l.releaseWrite()
		return nil, ctx.Err()
	}
}

func (l *rwLock) releaseRead() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.wakeOneWriterLocked()
	}
	l.mu.Unlock()
}

func (l *rwLock) releaseWrite() {
	l.mu.Lock()
	l.writer = false
	if !l.wakeOneWriterLocked() {
		l.wakeAllReadersLocked()
	}
	l.mu.Unlock()
}

// wakeOneWriterLocked grants the lock to the head of the writer queue, if
// any. Caller must hold l.mu.
func (l *rwLock) wakeOneWriterLocked() bool {
	if len(l.writerQ) == 0 {
		return false
	}
	ticket := l.writerQ[0]
	l.writerQ = l.writerQ[1:]
	l.writer = true
	close(ticket)
	return true
}

// wakeAllReadersLocked grants the lock to every queued reader. Caller must
// hold l.mu.
func (l *rwLock) wakeAllReadersLocked() {
	for _, ticket := range l.readerQ {
		l.readers++
		close(ticket)
	}
	l.readerQ = nil
}

func removeTicket(q *[]chan struct{}, ticket chan struct{}) bool {
	for i, t := range *q {
		if t == ticket {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return true
		}
	}
	return false
}
