// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations for hioload-net.

package api

import (
	"fmt"
	"net"
)

// Protocol tags the transport family of a node. It is used for the canonical
// schema string only; the core never branches on it.
type Protocol int

const (
	UDP Protocol = iota
	TCP
	SSL
	WS
	WSS
)

func (p Protocol) String() string {
	switch p {
	case UDP:
		return "udp"
	case TCP:
		return "tcp"
	case SSL:
		return "ssl"
	case WS:
		return "ws"
	case WSS:
		return "wss"
	default:
		return "unknown"
	}
}

// Schema formats the canonical `protocol://host:port` string for addr.
func Schema(p Protocol, addr net.Addr) string {
	if addr == nil {
		return fmt.Sprintf("%s://", p)
	}
	return fmt.Sprintf("%s://%s", p, addr.String())
}

// NodeID identifies a node handle inside a host registry.
type NodeID uint64

// RawPacket is an opaque byte buffer moved between sockets and node channels.
// Addr is the destination on the send path and the source on the receive
// path; it may be nil for connection-oriented transports. The core inserts
// no framing and no coalescing.
type RawPacket struct {
	Bytes []byte
	Addr  net.Addr
}

// Len returns the payload length in bytes.
func (p RawPacket) Len() int {
	return len(p.Bytes)
}
