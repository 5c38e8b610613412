// File: transport/tcp/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client endpoint: resolves its target synchronously at construction, then
// Start spawns a single connect-then-loop goroutine. No retry anywhere: a
// failed dial reports exactly one ConnectFailed on the node's error channel.

package tcp

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
	"github.com/momentics/hioload-net/node"
	"github.com/momentics/hioload-net/pool"
)

// Client is the TCP connecting endpoint.
type Client struct {
	target      *net.TCPAddr
	established *concurrency.Channel[net.Addr]
	env         loopEnv
	cfg         config
	log         zerolog.Logger
}

// NewClient resolves target synchronously; an unresolvable address is a
// fatal construction error.
func NewClient(target string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	addr, err := net.ResolveTCPAddr("tcp", target)
	if err != nil {
		return nil, api.NewError(api.ErrCodeResolveFailed, "tcp.resolve", err)
	}
	return &Client{
		target:      addr,
		established: concurrency.NewChannel[net.Addr](1),
		cfg:         cfg,
		log:         cfg.log,
		env: loopEnv{
			pool:    pool.NewBytePool(cfg.maxPacketSize),
			metrics: cfg.metrics,
			log:     cfg.log,
		},
	}, nil
}

// Target returns the resolved peer address.
func (c *Client) Target() net.Addr {
	return c.target
}

// NewNode creates the node for this endpoint. The local address stays nil
// until the dial completes.
func (c *Client) NewNode(opts ...node.Option) *node.Node {
	base := []node.Option{
		node.WithMaxPacketSize(c.cfg.maxPacketSize),
		node.WithLogger(c.log),
	}
	return node.New(api.TCP, nil, c.target, append(base, opts...)...)
}

// Start spawns one goroutine that dials the target. On success it records
// the local address, signals establishment, and runs the connection loops;
// packets enqueued before the dial finished are transmitted in enqueue
// order once it does. On failure it reports one ConnectFailed and exits.
func (c *Client) Start(n *node.Node) {
	go func() {
		d := net.Dialer{Timeout: c.cfg.dialTimeout}
		conn, err := d.Dial("tcp", c.target.String())
		if err != nil {
			_ = n.ErrChannel().Send(api.NewError(api.ErrCodeConnectFailed,
				"tcp.connect", err).WithAddr(c.target))
			c.log.Debug().Err(err).Stringer("target", c.target).Msg("connect failed")
			return
		}
		n.SetLocalAddr(conn.LocalAddr())
		c.log.Debug().Stringer("target", c.target).Msg("connected")
		_, _ = c.established.TrySend(conn.RemoteAddr())

		env := c.env
		go env.recvLoop(conn, n.RecvChannel(), n.ErrChannel(),
			n.Cancel(), n.MaxPacketSize())
		env.sendLoop(conn, n.SendChannel(), n.ErrChannel(), n.Cancel())
	}()
}

// Established reports, once per successful dial, the peer address of the
// newly established connection. The host driver polls it per tick to emit
// the connected event.
func (c *Client) Established() (net.Addr, bool) {
	addr, ok, _ := c.established.TryRecv()
	return addr, ok
}
