// File: api/events.go
// Package api defines host-facing event types for hioload-net.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// ConnectedEvent is emitted exactly once per accepted or established
// connection, carrying the identity of the new per-connection node.
// No disconnected event exists; peer close surfaces only as the absence
// of further packets once the receive loop terminates.
type ConnectedEvent struct {
	ID   NodeID
	Peer net.Addr
}
