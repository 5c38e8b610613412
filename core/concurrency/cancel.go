// File: core/concurrency/cancel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CancelToken is the cooperative stop signal shared between a node and its
// background I/O goroutines. It is a best-effort liveness signal, not a
// lock: loops poll it between I/O calls, and a goroutine blocked inside one
// I/O call observes cancellation only after that call returns.

package concurrency

import (
	"sync"
	"sync/atomic"
)

// CancelToken combines a relaxed atomic flag for cheap per-iteration checks
// with a done channel for blocking waits.
type CancelToken struct {
	flag atomic.Bool
	mu   sync.Mutex
	done chan struct{}
}

// NewCancelToken returns a cleared token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel sets the flag and releases every blocked Done waiter; idempotent.
func (t *CancelToken) Cancel() {
	if t.flag.CompareAndSwap(false, true) {
		t.mu.Lock()
		close(t.done)
		t.mu.Unlock()
	}
}

// Reset clears the flag so the token can be reused after a stop.
// Loops spawned before Reset keep the old done channel and stay cancelled.
func (t *CancelToken) Reset() {
	if t.flag.CompareAndSwap(true, false) {
		t.mu.Lock()
		t.done = make(chan struct{})
		t.mu.Unlock()
	}
}

// Cancelled reports whether the token is set.
func (t *CancelToken) Cancelled() bool {
	return t.flag.Load()
}

// Done returns the channel closed by Cancel.
func (t *CancelToken) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
