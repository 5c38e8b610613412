// File: host/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Driver is the per-tick poll step of a host loop. It replaces implicit
// entity-store machinery with explicit wiring: endpoints and decoders are
// registered against node identifiers, and one Tick call drains adoption
// queues, establishment signals, and receive channels without blocking.
//
// The driver belongs to the single host goroutine; only the Registry it
// wraps is safe for concurrent use.

package host

import (
	"net"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/node"
)

// Acceptor is the server-side endpoint contract the driver polls.
type Acceptor interface {
	Start(n *node.Node)
	Adopt(parent *node.Node) []*node.Node
}

// Dialer is the client-side endpoint contract the driver polls.
type Dialer interface {
	Start(n *node.Node)
	Established() (net.Addr, bool)
}

// Driver ties endpoints, registry, and decoders into one tick step.
type Driver struct {
	reg      *Registry
	servers  map[api.NodeID]Acceptor
	clients  map[api.NodeID]Dialer
	decoders map[api.NodeID]api.Decoder
	events   *queue.Queue
	log      zerolog.Logger
}

// DriverOption customizes driver construction.
type DriverOption func(*Driver)

// WithDriverLogger attaches a structured logger.
func WithDriverLogger(log zerolog.Logger) DriverOption {
	return func(d *Driver) {
		d.log = log
	}
}

// NewDriver creates a driver over reg.
func NewDriver(reg *Registry, opts ...DriverOption) *Driver {
	d := &Driver{
		reg:      reg,
		servers:  make(map[api.NodeID]Acceptor),
		clients:  make(map[api.NodeID]Dialer),
		decoders: make(map[api.NodeID]api.Decoder),
		events:   queue.New(),
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry exposes the underlying node registry.
func (d *Driver) Registry() *Registry {
	return d.reg
}

// AddServer registers a listening endpoint with its parent node and, when
// the node is marked auto-start, starts both immediately.
func (d *Driver) AddServer(srv Acceptor, n *node.Node) api.NodeID {
	id := d.reg.Add(n)
	d.servers[id] = srv
	if n.AutoStart() {
		n.Start()
		srv.Start(n)
	}
	return id
}

// AddClient registers a connecting endpoint with its node.
func (d *Driver) AddClient(cl Dialer, n *node.Node) api.NodeID {
	id := d.reg.Add(n)
	d.clients[id] = cl
	if n.AutoStart() {
		n.Start()
		cl.Start(n)
	}
	return id
}

// RegisterDecoder attaches dec to the node registered under id. Each Tick
// then hands that node's received packets to dec in receipt order.
func (d *Driver) RegisterDecoder(id api.NodeID, dec api.Decoder) {
	d.decoders[id] = dec
}

// UnregisterDecoder detaches the decoder registered under id.
func (d *Driver) UnregisterDecoder(id api.NodeID) {
	delete(d.decoders, id)
}

// Remove detaches and tears down the node registered under id, including
// transitively adopted children and any decoder registrations.
func (d *Driver) Remove(id api.NodeID) {
	ids := append([]api.NodeID{id}, d.reg.Descendants(id)...)
	for _, rid := range ids {
		delete(d.decoders, rid)
	}
	delete(d.servers, id)
	delete(d.clients, id)
	d.reg.Remove(id)
}

// Tick runs one host poll step:
//  1. adoption: drain every server's accepted-connection queue, register
//     each fresh child under its parent and queue one connected event;
//  2. establishment: queue one connected event per client whose dial
//     completed since the last tick;
//  3. decode: hand buffered packets of decoder-registered nodes to their
//     decoders in receipt order.
//
// Tick never blocks; ordering holds within one connection only.
func (d *Driver) Tick() {
	for id, srv := range d.servers {
		parent, ok := d.reg.Get(id)
		if !ok {
			continue
		}
		for _, child := range srv.Adopt(parent) {
			cid := d.reg.AddChild(id, child)
			d.events.Add(api.ConnectedEvent{ID: cid, Peer: child.PeerAddr()})
			d.log.Debug().Uint64("node", uint64(cid)).Msg("connection adopted")
		}
	}

	for id, cl := range d.clients {
		if addr, ok := cl.Established(); ok {
			d.events.Add(api.ConnectedEvent{ID: id, Peer: addr})
			d.log.Debug().Uint64("node", uint64(id)).Msg("connection established")
		}
	}

	for id, dec := range d.decoders {
		n, ok := d.reg.Get(id)
		if !ok {
			continue
		}
		for {
			pkt, ok, err := n.PollPacket()
			if err != nil || !ok {
				break
			}
			if derr := dec.Decode(pkt); derr != nil {
				d.log.Warn().Err(derr).Uint64("node", uint64(id)).Msg("decode failed")
			}
		}
	}
}

// NextEvent dequeues the next connected event, FIFO across ticks.
func (d *Driver) NextEvent() (api.ConnectedEvent, bool) {
	if d.events.Length() == 0 {
		return api.ConnectedEvent{}, false
	}
	return d.events.Remove().(api.ConnectedEvent), true
}
