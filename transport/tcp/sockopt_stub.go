//go:build !linux

// File: transport/tcp/sockopt_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import "syscall"

// listenControl is a no-op where platform socket options are not wired.
func listenControl(network, address string, rc syscall.RawConn) error {
	return nil
}
