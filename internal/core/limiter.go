package core

// limiter.go bounds concurrent file ingestions. Parsing a workbook and
// folding its rows is memory- and database-heavy, so the route layer
// acquires a slot before calling IngestFile. When all slots are busy a
// request waits up to maxWait and then fails with ErrTooManyIngests.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyIngests is returned when all ingestion slots are occupied
// and the wait timeout expires. Clients should retry after a short
// delay.
var ErrTooManyIngests = errors.New("too many concurrent file uploads, please try again later")

const (
	defaultMaxConcurrentIngests = 5
	defaultIngestMaxWait        = 30 * time.Second
)

// IngestLimiter restricts parallel ingestions with a semaphore.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
}

// NewIngestLimiter creates a limiter allowing at most maxConcurrent
// simultaneous ingestions. Non-positive arguments fall back to
// defaults.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = defaultIngestMaxWait
	}
	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, the wait timeout expires, or ctx
// is cancelled. The caller must call Release exactly once after a nil
// return.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyIngests
	}
}

// Release frees a previously acquired slot.
func (l *IngestLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// Active returns the number of ingestions currently holding a slot.
func (l *IngestLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
