package tcp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/control"
	"github.com/momentics/hioload-net/core/concurrency"
	"github.com/momentics/hioload-net/host"
	"github.com/momentics/hioload-net/node"
)

// tickUntil drives the host loop until cond holds or the deadline passes.
func tickUntil(t *testing.T, d *host.Driver, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		d.Tick()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *host.Driver, api.NodeID) {
	t.Helper()
	srv, err := NewServer([]string{"127.0.0.1:0"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	d := host.NewDriver(host.NewRegistry())
	id := d.AddServer(srv, srv.NewNode())
	return srv, d, id
}

// drainChildEvents returns the connected events whose nodes are children of
// serverID, ticking until want of them arrived.
func drainChildEvents(t *testing.T, d *host.Driver, serverID api.NodeID, want int) []api.ConnectedEvent {
	t.Helper()
	var events []api.ConnectedEvent
	tickUntil(t, d, func() bool {
		for {
			ev, ok := d.NextEvent()
			if !ok {
				break
			}
			for _, cid := range d.Registry().Children(serverID) {
				if cid == ev.ID {
					events = append(events, ev)
				}
			}
		}
		return len(events) >= want
	})
	return events
}

func TestBindFailureIsImmediate(t *testing.T) {
	_, err := NewServer([]string{"256.256.256.256:1"})
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeBindFailed, api.CodeOf(err))

	_, err = NewServer(nil)
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeBindFailed, api.CodeOf(err))
}

func TestStartWithoutListenerReportsBindFailed(t *testing.T) {
	var srv Server
	n := node.New(api.TCP, nil, nil)
	srv.Start(n)

	err, ok := n.PollError()
	require.True(t, ok)
	assert.Equal(t, api.ErrCodeBindFailed, api.CodeOf(err))
}

func TestResolveFailureIsImmediate(t *testing.T) {
	_, err := NewClient("not a host:port at all")
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeResolveFailed, api.CodeOf(err))
}

// Scenario A: one client sends [0x01 0x02 0x03]; the adopted server-side
// node's receive channel yields exactly that packet.
func TestScenarioASingleRoundTrip(t *testing.T) {
	srv, d, sid := newTestServer(t)

	cl, err := NewClient(srv.LocalAddr().String())
	require.NoError(t, err)
	cn := cl.NewNode()
	d.AddClient(cl, cn)

	require.NoError(t, cn.Send([]byte{0x01, 0x02, 0x03}))

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)

	var pkt api.RawPacket
	tickUntil(t, d, func() bool {
		p, got, _ := child.PollPacket()
		if got {
			pkt = p
		}
		return got
	})
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, pkt.Bytes)
	assert.NotNil(t, pkt.Addr, "packets carry the source address")

	_, more, _ := child.PollPacket()
	assert.False(t, more, "exactly one packet")
}

// Scenario B: two concurrent clients produce exactly two connected events
// with distinct node identities, each reachable as a child of the server.
func TestScenarioBTwoConcurrentClients(t *testing.T) {
	srv, d, sid := newTestServer(t)

	for i := 0; i < 2; i++ {
		cl, err := NewClient(srv.LocalAddr().String())
		require.NoError(t, err)
		d.AddClient(cl, cl.NewNode())
	}

	events := drainChildEvents(t, d, sid, 2)
	require.Len(t, events, 2)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	for _, ev := range events {
		n, ok := d.Registry().Get(ev.ID)
		require.True(t, ok)
		assert.True(t, n.Running())
		assert.NotNil(t, n.PeerAddr())
	}
}

// Scenario C: a client targeting a non-listening port yields exactly one
// connection error and zero connected events.
func TestScenarioCConnectFailure(t *testing.T) {
	// Grab a port that is certainly not listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := ln.Addr().String()
	require.NoError(t, ln.Close())

	cl, err := NewClient(dead, WithDialTimeout(time.Second))
	require.NoError(t, err)
	cn := cl.NewNode()

	d := host.NewDriver(host.NewRegistry())
	d.AddClient(cl, cn)

	var connErr error
	tickUntil(t, d, func() bool {
		e, ok := cn.PollError()
		if ok {
			connErr = e
		}
		return ok
	})
	assert.Equal(t, api.ErrCodeConnectFailed, api.CodeOf(connErr))

	_, again := cn.PollError()
	assert.False(t, again, "exactly one error, no retry")
	_, ok := d.NextEvent()
	assert.False(t, ok, "zero connected events")
}

// Scenario D: packets enqueued before the dial completes go out in enqueue
// order once it does.
func TestScenarioDQueuedBeforeConnect(t *testing.T) {
	srv, d, sid := newTestServer(t)

	cl, err := NewClient(srv.LocalAddr().String())
	require.NoError(t, err)
	cn := cl.NewNode()

	// Enqueue while no socket exists yet.
	require.NoError(t, cn.Send([]byte("aa")))
	require.NoError(t, cn.Send([]byte("bb")))
	require.NoError(t, cn.Send([]byte("cc")))

	d.AddClient(cl, cn)

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)

	var got []byte
	tickUntil(t, d, func() bool {
		for {
			pkt, more, _ := child.PollPacket()
			if !more {
				break
			}
			got = append(got, pkt.Bytes...)
		}
		return len(got) >= 6
	})
	assert.Equal(t, []byte("aabbcc"), got, "wire order equals enqueue order")
}

// Separate writes spaced in time arrive as separate packets: the core
// inserts no coalescing, and every packet respects the size bound.
func TestNoCoalescingAcrossSpacedWrites(t *testing.T) {
	srv, d, sid := newTestServer(t)

	conn, err := net.Dial("tcp", srv.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)

	payloads := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	var got []api.RawPacket
	for _, p := range payloads {
		_, err := conn.Write(p)
		require.NoError(t, err)
		tickUntil(t, d, func() bool {
			pkt, more, _ := child.PollPacket()
			if more {
				got = append(got, pkt)
			}
			return len(got) > 0 && string(got[len(got)-1].Bytes) == string(p)
		})
	}

	require.Len(t, got, len(payloads))
	var concat []byte
	for i, pkt := range got {
		assert.Equal(t, payloads[i], pkt.Bytes)
		assert.LessOrEqual(t, len(pkt.Bytes), child.MaxPacketSize())
		concat = append(concat, pkt.Bytes...)
	}
	assert.Equal(t, []byte("onetwothree"), concat)
}

// A write larger than the packet-size bound is split across reads: every
// packet stays within the bound and the concatenation equals the input.
func TestLargeWriteSplitsAtMaxPacketSize(t *testing.T) {
	srv, d, sid := newTestServer(t, WithMaxPacketSize(4))

	conn, err := net.Dial("tcp", srv.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)
	require.Equal(t, 4, child.MaxPacketSize())

	payload := []byte("0123456789")
	_, err = conn.Write(payload)
	require.NoError(t, err)

	var got []byte
	var count int
	tickUntil(t, d, func() bool {
		for {
			pkt, more, _ := child.PollPacket()
			if !more {
				break
			}
			assert.LessOrEqual(t, pkt.Len(), 4)
			got = append(got, pkt.Bytes...)
			count++
		}
		return len(got) >= len(payload)
	})
	assert.Equal(t, payload, got)
	assert.GreaterOrEqual(t, count, 3, "ten bytes cannot fit in fewer than three reads of four")
}

// A peer close terminates the receive loop exactly once, with no error.
func TestPeerCloseEmitsNoError(t *testing.T) {
	srv, d, sid := newTestServer(t)

	conn, err := net.Dial("tcp", srv.LocalAddr().String())
	require.NoError(t, err)

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)

	require.NoError(t, conn.Close())
	time.Sleep(100 * time.Millisecond)
	d.Tick()

	_, gotPkt, _ := child.PollPacket()
	assert.False(t, gotPkt)
	_, gotErr := child.PollError()
	assert.False(t, gotErr, "clean peer close is not an error")
}

// After Stop, delivery ends once the in-flight read completes.
func TestStopHaltsDelivery(t *testing.T) {
	srv, d, sid := newTestServer(t)

	conn, err := net.Dial("tcp", srv.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)

	child.Stop()
	assert.False(t, child.Running())

	// The read in flight when Stop landed may still surface one packet.
	conn.Write([]byte("inflight"))
	time.Sleep(100 * time.Millisecond)
	child.PollPacket()

	// The loop has observed cancellation by now; nothing else arrives.
	conn.Write([]byte("late"))
	time.Sleep(100 * time.Millisecond)
	_, more, _ := child.PollPacket()
	assert.False(t, more, "no delivery after the loop exits")
}

func TestMetricsWiring(t *testing.T) {
	metrics := control.NewMetricsRegistry()
	srv, d, sid := newTestServer(t, WithMetrics(metrics))

	cl, err := NewClient(srv.LocalAddr().String(), WithMetrics(metrics))
	require.NoError(t, err)
	cn := cl.NewNode()
	d.AddClient(cl, cn)
	require.NoError(t, cn.Send([]byte("ping")))

	events := drainChildEvents(t, d, sid, 1)
	child, ok := d.Registry().Get(events[0].ID)
	require.True(t, ok)

	tickUntil(t, d, func() bool {
		_, got, _ := child.PollPacket()
		return got
	})

	assert.EqualValues(t, 1, metrics.Get("tcp_conns_accepted"))
	assert.EqualValues(t, 4, metrics.Get("tcp_bytes_in"))
	assert.EqualValues(t, 4, metrics.Get("tcp_bytes_out"))
}

// flakyListener fails the first few accepts, then reports closed.
type flakyListener struct {
	fails int
	calls int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.calls++
	if l.calls <= l.fails {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func (l *flakyListener) Close() error   { return nil }
func (l *flakyListener) Addr() net.Addr { return nil }

// A transient accept failure must not spin the loop hot; each retry is
// spaced by the backoff delay.
func TestAcceptFailureBacksOff(t *testing.T) {
	srv := &Server{
		listener: &flakyListener{fails: 3},
		incoming: concurrency.NewChannel[net.Conn](1),
		log:      zerolog.Nop(),
	}
	n := node.New(api.TCP, nil, nil)

	start := time.Now()
	srv.acceptLoop(n)
	assert.GreaterOrEqual(t, time.Since(start), 3*acceptRetryDelay)
}

func TestServerPendingAndClose(t *testing.T) {
	srv, _, _ := newTestServer(t)
	assert.Equal(t, 0, srv.Pending())
	require.NoError(t, srv.Close())
	// Closing again only re-reports the listener close.
	assert.Error(t, srv.Close())
}
