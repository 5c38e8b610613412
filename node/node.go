// File: node/node.go
// Package node implements the addressable network endpoint at the center of
// hioload-net: one receive channel, one send channel, one error channel, a
// shared cancellation token, and connection metadata.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package node

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
)

// DefaultMaxPacketSize bounds a single receive-loop read.
const DefaultMaxPacketSize = 65535

// Node is an addressable endpoint. The host owns the poll side of its
// channels; background I/O goroutines own the async side. The only state
// shared across that boundary outside the channels is the cancel token and
// the lock-guarded local address, which a dial goroutine publishes while
// the host may be reading it.
type Node struct {
	recvCh *concurrency.Channel[api.RawPacket]
	sendCh *concurrency.Channel[api.RawPacket]
	errCh  *concurrency.Channel[error]
	cancel *concurrency.CancelToken

	running atomic.Bool

	protocol      api.Protocol
	addrMu        sync.RWMutex
	localAddr     net.Addr
	peerAddr      net.Addr
	maxPacketSize int
	autoStart     bool

	log zerolog.Logger
}

// Option customizes node construction.
type Option func(*Node)

// WithMaxPacketSize overrides the maximum packet size for receive reads.
func WithMaxPacketSize(n int) Option {
	return func(nd *Node) {
		if n > 0 {
			nd.maxPacketSize = n
		}
	}
}

// WithAutoStart controls whether the host starts the node on adoption.
func WithAutoStart(auto bool) Option {
	return func(nd *Node) {
		nd.autoStart = auto
	}
}

// WithChannelCapacity sizes the receive/send/error channels.
func WithChannelCapacity(capacity int) Option {
	return func(nd *Node) {
		nd.recvCh = concurrency.NewChannel[api.RawPacket](capacity)
		nd.sendCh = concurrency.NewChannel[api.RawPacket](capacity)
		nd.errCh = concurrency.NewChannel[error](capacity)
	}
}

// WithLogger attaches a structured logger; default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(nd *Node) {
		nd.log = log
	}
}

// New creates a node with cancellation cleared, running=false,
// max packet size 65535 and auto-start enabled.
func New(protocol api.Protocol, localAddr, peerAddr net.Addr, opts ...Option) *Node {
	n := &Node{
		recvCh:        concurrency.NewChannel[api.RawPacket](concurrency.DefaultCapacity),
		sendCh:        concurrency.NewChannel[api.RawPacket](concurrency.DefaultCapacity),
		errCh:         concurrency.NewChannel[error](concurrency.DefaultCapacity),
		cancel:        concurrency.NewCancelToken(),
		protocol:      protocol,
		localAddr:     localAddr,
		peerAddr:      peerAddr,
		maxPacketSize: DefaultMaxPacketSize,
		autoStart:     true,
		log:           zerolog.Nop(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Start clears the cancellation token and marks the node running.
// It never aborts in-flight I/O; loops observe the token cooperatively.
func (n *Node) Start() {
	n.cancel.Reset()
	n.running.Store(true)
	n.log.Debug().Str("schema", n.Schema()).Msg("node started")
}

// Stop sets the cancellation token and marks the node stopped. Background
// loops exit at their next cooperative check point; an I/O call already in
// flight completes first.
func (n *Node) Stop() {
	n.cancel.Cancel()
	n.running.Store(false)
	n.log.Debug().Str("schema", n.Schema()).Msg("node stopped")
}

// Running reports the running flag.
func (n *Node) Running() bool {
	return n.running.Load()
}

// Send enqueues one packet addressed to the node's peer. It returns a
// ChannelClosed error once the node has been detached from its host; a node
// must not be used after detachment. A full outbound queue blocks the
// caller; that is the backpressure of the bounded channels.
func (n *Node) Send(b []byte) error {
	return n.enqueue(b, n.peerAddr)
}

// SendTo resolves addr and enqueues one packet with that explicit
// destination, overriding the node's peer for connectionless use.
func (n *Node) SendTo(b []byte, addr string) error {
	dest, err := n.resolve(addr)
	if err != nil {
		return api.NewError(api.ErrCodeResolveFailed, "node.send_to", err)
	}
	return n.enqueue(b, dest)
}

func (n *Node) enqueue(b []byte, dest net.Addr) error {
	buf := make([]byte, len(b))
	copy(buf, b)
	if err := n.sendCh.Send(api.RawPacket{Bytes: buf, Addr: dest}); err != nil {
		return api.NewError(api.ErrCodeChannelClosed, "node.send", err).WithAddr(dest)
	}
	return nil
}

func (n *Node) resolve(addr string) (net.Addr, error) {
	if n.protocol == api.UDP {
		return net.ResolveUDPAddr("udp", addr)
	}
	return net.ResolveTCPAddr("tcp", addr)
}

// PollPacket dequeues the next received packet without blocking.
// ok is false when nothing is buffered.
func (n *Node) PollPacket() (pkt api.RawPacket, ok bool, err error) {
	return n.recvCh.TryRecv()
}

// PollError dequeues the next reported error without blocking.
func (n *Node) PollError() (error, bool) {
	e, ok, _ := n.errCh.TryRecv()
	return e, ok
}

// RecvChannel exposes the receive conduit; background loops hold the
// async side, the host the poll side.
func (n *Node) RecvChannel() *concurrency.Channel[api.RawPacket] {
	return n.recvCh
}

// SendChannel exposes the outbound conduit.
func (n *Node) SendChannel() *concurrency.Channel[api.RawPacket] {
	return n.sendCh
}

// ErrChannel exposes the error conduit.
func (n *Node) ErrChannel() *concurrency.Channel[error] {
	return n.errCh
}

// Cancel exposes the shared cancellation token.
func (n *Node) Cancel() *concurrency.CancelToken {
	return n.cancel
}

// Close tears the node down: cancels loops and drops all three channels.
// Called by the host when the owning handle is removed.
func (n *Node) Close() {
	n.Stop()
	n.recvCh.Close()
	n.sendCh.Close()
	n.errCh.Close()
}

// Protocol returns the protocol tag.
func (n *Node) Protocol() api.Protocol {
	return n.protocol
}

// LocalAddr returns the local socket address, nil before it is known.
func (n *Node) LocalAddr() net.Addr {
	n.addrMu.RLock()
	defer n.addrMu.RUnlock()
	return n.localAddr
}

// SetLocalAddr records the local address once a transport learns it,
// e.g. after a client dial completes. Safe to call concurrently with
// LocalAddr and Schema.
func (n *Node) SetLocalAddr(addr net.Addr) {
	n.addrMu.Lock()
	n.localAddr = addr
	n.addrMu.Unlock()
}

// PeerAddr returns the remote socket address, nil for listeners.
func (n *Node) PeerAddr() net.Addr {
	return n.peerAddr
}

// MaxPacketSize returns the upper bound for one receive read.
func (n *Node) MaxPacketSize() int {
	return n.maxPacketSize
}

// AutoStart reports whether the host should start the node on adoption.
func (n *Node) AutoStart() bool {
	return n.autoStart
}

// Logger returns the node's structured logger.
func (n *Node) Logger() zerolog.Logger {
	return n.log
}

// Schema formats the diagnostic `protocol://ip:port` string.
func (n *Node) Schema() string {
	addr := n.LocalAddr()
	if addr == nil {
		addr = n.peerAddr
	}
	return api.Schema(n.protocol, addr)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return n.Schema()
}
