package core

// submit_limiter.go bounds how many submissions export and send at once.
//
// Each in-flight submission holds a workbook in memory and an open
// connection to the email provider. When all slots are occupied, new
// submissions wait up to maxWait before failing with
// ErrTooManySubmissions.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManySubmissions is returned when all submission slots are occupied
// and the wait timeout expires. Clients should retry after a short delay.
var ErrTooManySubmissions = errors.New("too many submissions in progress")

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// SubmitLimiter controls concurrent submissions using a semaphore.
type SubmitLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewSubmitLimiter creates a limiter that allows at most maxConcurrent
// simultaneous submissions. It returns nil when maxConcurrent is not
// positive, which Service treats as unlimited.
func NewSubmitLimiter(maxConcurrent int, maxWait time.Duration) *SubmitLimiter {
	if maxConcurrent <= 0 {
		return nil
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &SubmitLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a submission slot.
// Returns nil on success, ErrTooManySubmissions if the wait expires, or the
// context error if ctx ends first. The caller must Release after success.
func (l *SubmitLimiter) Acquire(ctx context.Context) error {
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
		return ErrTooManySubmissions
	}
}

// Release frees a slot taken by Acquire.
func (l *SubmitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of submissions holding a slot.
func (l *SubmitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}
