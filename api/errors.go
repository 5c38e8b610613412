// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy for hioload-net. Two severities exist: fatal-to-operation
// (bind, resolve, connect, closed channel) which terminate the affected
// operation with no retry, and per-I/O-call (one failed read or write) which
// terminate or skip only the loop iteration that hit them.

package api

import (
	"errors"
	"fmt"
	"net"
)

// ErrChannelClosed is the deterministic signal that one side of a channel
// has been dropped. Operations on the surviving side fail with it instead
// of blocking.
var ErrChannelClosed = errors.New("channel is closed")

// ErrorCode classifies transport failures.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeBindFailed
	ErrCodeResolveFailed
	ErrCodeConnectFailed
	ErrCodeReadFailed
	ErrCodeWriteFailed
	ErrCodeChannelClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeBindFailed:
		return "bind_failed"
	case ErrCodeResolveFailed:
		return "resolve_failed"
	case ErrCodeConnectFailed:
		return "connect_failed"
	case ErrCodeReadFailed:
		return "read_failed"
	case ErrCodeWriteFailed:
		return "write_failed"
	case ErrCodeChannelClosed:
		return "channel_closed"
	default:
		return "ok"
	}
}

// Error is a structured transport error with code and origin context.
type Error struct {
	Code ErrorCode
	Op   string
	Addr net.Addr
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Addr != nil {
		msg = fmt.Sprintf("%s (addr: %s)", msg, e.Addr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e.Code == ErrCodeChannelClosed {
		return ErrChannelClosed
	}
	return e.Err
}

// NewError creates a structured error.
func NewError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// WithAddr attaches the socket address the failure relates to.
func (e *Error) WithAddr(addr net.Addr) *Error {
	e.Addr = addr
	return e
}

// CodeOf extracts the ErrorCode from err, or ErrCodeOK when err carries none.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	if errors.Is(err, ErrChannelClosed) {
		return ErrCodeChannelClosed
	}
	return ErrCodeOK
}
