package core

// limiter.go enforces single-writer discipline for sync passes.
//
// The limiter is a semaphore with a configurable number of slots; the Service
// always uses one slot so that no two passes touch the store at the same
// time. Scheduled passes use TryAcquire and simply skip a tick while a manual
// pass runs. WaitForDrain lets shutdown block until the running pass ends.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLimiterTimeout is returned when no slot frees up within the wait time.
var ErrLimiterTimeout = errors.New("timed out waiting for a sync slot")

// DefaultMaxWaitTime is how long Acquire waits for a slot before giving up.
const DefaultMaxWaitTime = 30 * time.Second

// PassLimiter controls concurrent pass execution using a semaphore.
type PassLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewPassLimiter creates a limiter that allows at most maxConcurrent passes.
// Values below one are raised to one.
func NewPassLimiter(maxConcurrent int, maxWait time.Duration) *PassLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &PassLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. Returns ErrLimiterTimeout if none frees up within
// the wait time. The caller MUST call Release when done.
func (l *PassLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLimiterTimeout
	}
}

// TryAcquire takes a slot without blocking.
func (l *PassLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *PassLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of running passes.
func (l *PassLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *PassLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no pass is running or ctx is done.
func (l *PassLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *PassLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
