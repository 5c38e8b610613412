// File: transport/tcp/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server endpoint: owns the bound OS listener and the internal queue of
// freshly accepted connections. State progression: Unbound → Bound (at
// construction, fail fast) → Accepting (Start). The accept loop is the
// producer of the queue; the host's adoption step is the poll-side consumer.

package tcp

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/core/concurrency"
	"github.com/momentics/hioload-net/node"
	"github.com/momentics/hioload-net/pool"
)

// acceptRetryDelay spaces retries after a failed accept, e.g. while the
// process is out of file descriptors.
const acceptRetryDelay = 10 * time.Millisecond

// Server is the TCP listening endpoint.
type Server struct {
	listener  net.Listener
	incoming  *concurrency.Channel[net.Conn]
	env       loopEnv
	cfg       config
	accepting atomic.Bool
	log       zerolog.Logger
}

// NewServer resolves and binds synchronously, trying each address in order
// and keeping the first that binds. Binding failure is fatal and surfaces
// immediately: it happens before any node exists, so there is no error
// channel to report it on.
func NewServer(addrs []string, opts ...Option) (*Server, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if len(addrs) == 0 {
		return nil, api.NewError(api.ErrCodeBindFailed, "tcp.listen",
			errors.New("no bind address given"))
	}

	lc := net.ListenConfig{Control: listenControl}
	var (
		ln      net.Listener
		lastErr error
	)
	for _, addr := range addrs {
		ln, lastErr = lc.Listen(context.Background(), "tcp", addr)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, api.NewError(api.ErrCodeBindFailed, "tcp.listen", lastErr)
	}

	s := &Server{
		listener: ln,
		incoming: concurrency.NewChannel[net.Conn](cfg.queueCapacity),
		cfg:      cfg,
		log:      cfg.log,
		env: loopEnv{
			pool:    pool.NewBytePool(cfg.maxPacketSize),
			metrics: cfg.metrics,
			log:     cfg.log,
		},
	}
	s.log.Info().Stringer("addr", ln.Addr()).Msg("tcp server bound")
	return s, nil
}

// LocalAddr returns the bound listener address.
func (s *Server) LocalAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// NewNode creates the listening parent node for this endpoint.
func (s *Server) NewNode(opts ...node.Option) *node.Node {
	base := []node.Option{
		node.WithMaxPacketSize(s.cfg.maxPacketSize),
		node.WithLogger(s.log),
	}
	return node.New(api.TCP, s.LocalAddr(), nil, append(base, opts...)...)
}

// Start spawns the accept loop. With no bound listener it reports one fatal
// BindFailed on the node's error channel and does nothing further. The loop
// checks the node's cancellation token before each accept, so stopping the
// node also stops acceptance once the pending accept returns.
func (s *Server) Start(n *node.Node) {
	if s.listener == nil {
		_ = n.ErrChannel().Send(api.NewError(api.ErrCodeBindFailed, "tcp.start",
			errors.New("listener is not bound")))
		return
	}
	if !s.accepting.CompareAndSwap(false, true) {
		return
	}
	go s.acceptLoop(n)
}

func (s *Server) acceptLoop(n *node.Node) {
	defer s.accepting.Store(false)
	cancel := n.Cancel()
	for {
		if cancel.Cancelled() {
			s.log.Debug().Msg("accept loop cancelled")
			return
		}
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("accept failed")
			time.Sleep(acceptRetryDelay)
			continue
		}
		if s.incoming.Send(conn) != nil {
			conn.Close()
			return
		}
	}
}

// Adopt drains every currently queued accepted connection in arrival order
// with no per-tick cap, so an unbounded burst adopts in one call. Each
// connection
// becomes a fresh child node with the socket's remote address as peer, with
// one receive loop and one send loop spawned against its channels. The
// caller emits one connected event per returned child. Runs on the host
// tick; never blocks.
func (s *Server) Adopt(parent *node.Node) []*node.Node {
	var children []*node.Node
	for {
		conn, ok, err := s.incoming.TryRecv()
		if err != nil || !ok {
			break
		}
		child := node.New(api.TCP, conn.LocalAddr(), conn.RemoteAddr(),
			node.WithMaxPacketSize(parent.MaxPacketSize()),
			node.WithLogger(s.log))
		child.Start()

		env := s.env
		go env.recvLoop(conn, child.RecvChannel(), child.ErrChannel(),
			child.Cancel(), child.MaxPacketSize())
		go env.sendLoop(conn, child.SendChannel(), child.ErrChannel(),
			child.Cancel())

		s.env.count("tcp_conns_accepted", 1)
		s.log.Debug().Stringer("peer", conn.RemoteAddr()).Msg("connection adopted")
		children = append(children, child)
	}
	return children
}

// Pending returns the number of accepted connections awaiting adoption.
func (s *Server) Pending() int {
	return s.incoming.Len()
}

// Close shuts the listener and discards connections still queued.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for {
		conn, ok, rerr := s.incoming.TryRecv()
		if rerr != nil || !ok {
			break
		}
		conn.Close()
	}
	s.incoming.Close()
	return err
}
