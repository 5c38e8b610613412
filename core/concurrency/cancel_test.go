package concurrency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancelTokenLifecycle(t *testing.T) {
	tok := NewCancelToken()
	assert.False(t, tok.Cancelled())

	tok.Cancel()
	assert.True(t, tok.Cancelled())
	select {
	case <-tok.Done():
	default:
		t.Fatal("Done must be closed after Cancel")
	}

	tok.Cancel() // idempotent

	tok.Reset()
	assert.False(t, tok.Cancelled())
	select {
	case <-tok.Done():
		t.Fatal("Done must be open again after Reset")
	default:
	}
}

func TestCancelTokenUnblocksWaiter(t *testing.T) {
	tok := NewCancelToken()
	released := make(chan struct{})
	go func() {
		<-tok.Done()
		close(released)
	}()
	time.Sleep(10 * time.Millisecond)
	tok.Cancel()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Cancel")
	}
}
