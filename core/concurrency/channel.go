// File: core/concurrency/channel.go
// Package concurrency provides the conduits bridging background I/O
// goroutines and the tick-driven host.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel is a bounded FIFO with one async-side producer/consumer pair used
// inside I/O goroutines and one poll-side pair used by the host. The async
// side may block; the poll side never does. Once either end is dropped
// (Close), operations fail with api.ErrChannelClosed instead of blocking.

package concurrency

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
)

// DefaultCapacity bounds each channel unless overridden. Bounded capacity
// makes backpressure explicit: a full channel blocks the async side and
// reports full on the poll side, instead of growing without limit.
const DefaultCapacity = 1024

// Channel is a FIFO conduit between exactly one producer and one consumer.
type Channel[T any] struct {
	ch     chan T
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewChannel allocates a channel with the given capacity.
// Non-positive capacity falls back to DefaultCapacity.
func NewChannel[T any](capacity int) *Channel[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Send enqueues v from the async side, blocking while the channel is full.
// It returns api.ErrChannelClosed once the channel has been closed.
// An item racing with Close may be enqueued and never drained; callers
// treat Close as the end of the conversation.
func (c *Channel[T]) Send(v T) error {
	if c.closed.Load() {
		return api.ErrChannelClosed
	}
	select {
	case c.ch <- v:
		return nil
	case <-c.done:
		return api.ErrChannelClosed
	}
}

// TrySend enqueues v from the poll side without blocking.
// ok reports whether the item was enqueued; a full channel yields
// (false, nil) and a closed channel (false, api.ErrChannelClosed).
func (c *Channel[T]) TrySend(v T) (ok bool, err error) {
	if c.closed.Load() {
		return false, api.ErrChannelClosed
	}
	select {
	case c.ch <- v:
		return true, nil
	default:
		return false, nil
	}
}

// Recv blocks until the next item arrives or the channel closes.
// Buffered items are still drained after Close.
func (c *Channel[T]) Recv() (T, error) {
	select {
	case v := <-c.ch:
		return v, nil
	case <-c.done:
	}
	// Closed: hand out whatever is still buffered before reporting closed.
	select {
	case v := <-c.ch:
		return v, nil
	default:
		var zero T
		return zero, api.ErrChannelClosed
	}
}

// RecvWait blocks until the next item, external cancellation, or close.
// ok is false when cancel fired first; err is api.ErrChannelClosed when the
// channel closed and no buffered items remain.
func (c *Channel[T]) RecvWait(cancel <-chan struct{}) (v T, ok bool, err error) {
	select {
	case v = <-c.ch:
		return v, true, nil
	case <-cancel:
		var zero T
		return zero, false, nil
	case <-c.done:
	}
	select {
	case v = <-c.ch:
		return v, true, nil
	default:
		var zero T
		return zero, false, api.ErrChannelClosed
	}
}

// TryRecv dequeues from the poll side without blocking.
// ok is false when no item is buffered; err is api.ErrChannelClosed when
// the channel is closed and drained.
func (c *Channel[T]) TryRecv() (v T, ok bool, err error) {
	select {
	case v = <-c.ch:
		return v, true, nil
	default:
	}
	if c.closed.Load() {
		var zero T
		return zero, false, api.ErrChannelClosed
	}
	var zero T
	return zero, false, nil
}

// Close drops the channel; idempotent. Pending Send/Recv calls unblock with
// api.ErrChannelClosed once buffered items are drained.
func (c *Channel[T]) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	return c.closed.Load()
}

// Done is closed when the channel is dropped; usable in select statements.
func (c *Channel[T]) Done() <-chan struct{} {
	return c.done
}

// Len returns the number of buffered items.
func (c *Channel[T]) Len() int {
	return len(c.ch)
}

// Cap returns the channel capacity.
func (c *Channel[T]) Cap() int {
	return cap(c.ch)
}
