// File: transport/tcp/loops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection receive and send loops. State lives only on the goroutine;
// coordination with the host happens exclusively through node channels and
// the shared cancellation token. Cancellation is polled between I/O calls,
// so a loop blocked inside one read or write observes a stop request only
// after that call returns.

package tcp

import (
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/control"
	"github.com/momentics/hioload-net/core/concurrency"
	"github.com/momentics/hioload-net/pool"
)

// loopEnv carries the shared collaborators of both loops.
type loopEnv struct {
	pool    *pool.BytePool
	metrics *control.MetricsRegistry
	log     zerolog.Logger
}

func (e loopEnv) count(key string, delta int64) {
	if e.metrics != nil {
		e.metrics.Add(key, delta)
	}
}

// recvLoop moves bytes from the socket into the node's receive channel.
// It performs at most one outstanding read at a time into a single buffer
// of maxSize bytes and forwards one packet per positive read, unframed.
// EOF terminates the loop silently; a read error forwards exactly one
// ReadFailed and terminates. The loop owns the socket and closes it on exit.
func (e loopEnv) recvLoop(conn net.Conn,
	recvCh *concurrency.Channel[api.RawPacket],
	errCh *concurrency.Channel[error],
	cancel *concurrency.CancelToken,
	maxSize int) {

	defer conn.Close()

	var buf []byte
	if e.pool != nil && e.pool.Size() == maxSize {
		buf = e.pool.GetBuffer()
		defer e.pool.PutBuffer(buf)
	} else {
		buf = make([]byte, maxSize)
	}

	peer := conn.RemoteAddr()
	for {
		if cancel.Cancelled() {
			return
		}
		n, err := conn.Read(buf)
		if n > 0 {
			pkt := api.RawPacket{Bytes: append([]byte(nil), buf[:n]...), Addr: peer}
			if recvCh.Send(pkt) != nil {
				// Host side dropped its channel; nothing left to deliver to.
				return
			}
			e.count("tcp_bytes_in", int64(n))
			e.log.Debug().Int("bytes", n).Stringer("peer", peer).Msg("received packet")
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.log.Debug().Stringer("peer", peer).Msg("connection closed by peer")
				return
			}
			if errors.Is(err, net.ErrClosed) || cancel.Cancelled() {
				return
			}
			_ = errCh.Send(api.NewError(api.ErrCodeReadFailed, "tcp.recv", err).WithAddr(peer))
			e.count("tcp_recv_errors", 1)
			return
		}
	}
}

// sendLoop drains the node's send channel to the socket in enqueue order.
// Idle waiting is a single blocking select on the next packet or
// cancellation; the loop never spins. A write failure is reported as
// WriteFailed and the loop keeps draining the remaining queued packets;
// it does not close the connection itself. The explicit per-packet address
// is ignored here: a TCP stream is already bound to its peer.
func (e loopEnv) sendLoop(conn net.Conn,
	sendCh *concurrency.Channel[api.RawPacket],
	errCh *concurrency.Channel[error],
	cancel *concurrency.CancelToken) {

	defer conn.Close()

	peer := conn.RemoteAddr()
	for {
		if cancel.Cancelled() {
			return
		}
		pkt, ok, err := sendCh.RecvWait(cancel.Done())
		if err != nil {
			// Host side dropped its channel; the node is detached.
			return
		}
		if !ok {
			return
		}
		if _, werr := conn.Write(pkt.Bytes); werr != nil {
			_ = errCh.Send(api.NewError(api.ErrCodeWriteFailed, "tcp.send", werr).WithAddr(peer))
			e.count("tcp_send_errors", 1)
			continue
		}
		e.count("tcp_bytes_out", int64(len(pkt.Bytes)))
		e.log.Debug().Int("bytes", len(pkt.Bytes)).Stringer("peer", peer).Msg("sent packet")
	}
}
