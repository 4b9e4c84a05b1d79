package ratelimit

import (
	"context"
	"sync"
)

// Mutex is an exclusive lock with a FIFO wait queue: the earliest waiter is
// granted ownership first. It serializes read-modify-write cycles against
// shared counters in the store, where sync.Mutex's unspecified wakeup order
// is not enough.
type Mutex struct {
	mu     sync.Mutex
	locked bool
	queue  []chan struct{}
}

// Acquire blocks until the caller owns the mutex or ctx is done. Callers
// must Release on every exit path of their critical section.
func (m *Mutex) Acquire(ctx context.Context) error {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return nil
	}

	grant := make(chan struct{})
	m.queue = append(m.queue, grant)
	m.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		for i, ch := range m.queue {
			if ch == grant {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				m.mu.Unlock()
				return ctx.Err()
			}
		}
		m.mu.Unlock()
		// Ownership was granted concurrently with cancellation; hand it on.
		m.Release()
		return ctx.Err()
	}
}

// Release hands ownership to the next waiter if any, else marks the mutex
// free.
func (m *Mutex) Release() {
	m.mu.Lock()
	if len(m.queue) > 0 {
		grant := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		close(grant)
		return
	}
	m.locked = false
	m.mu.Unlock()
}
