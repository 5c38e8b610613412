// File: host/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package host

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/node"
)

// Registry owns node handles: a plain mapping of identifier to node with
// parent/child edges for adopted connections. Removing a handle tears the
// node down; channels and background loops are the host's to destroy.
type Registry struct {
	mu       sync.RWMutex
	nodes    map[api.NodeID]*node.Node
	children map[api.NodeID][]api.NodeID
	next     atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:    make(map[api.NodeID]*node.Node),
		children: make(map[api.NodeID][]api.NodeID),
	}
}

// Add registers n under a fresh identifier.
func (r *Registry) Add(n *node.Node) api.NodeID {
	id := api.NodeID(r.next.Add(1))
	r.mu.Lock()
	r.nodes[id] = n
	r.mu.Unlock()
	return id
}

// AddChild registers n as a child of parent, e.g. an adopted connection
// under its listening node.
func (r *Registry) AddChild(parent api.NodeID, n *node.Node) api.NodeID {
	id := api.NodeID(r.next.Add(1))
	r.mu.Lock()
	r.nodes[id] = n
	r.children[parent] = append(r.children[parent], id)
	r.mu.Unlock()
	return id
}

// Get looks a node up.
func (r *Registry) Get(id api.NodeID) (*node.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Children returns the identifiers adopted under id.
func (r *Registry) Children(id api.NodeID) []api.NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.NodeID, len(r.children[id]))
	copy(out, r.children[id])
	return out
}

// Descendants returns the transitive children of id, depth first.
func (r *Registry) Descendants(id api.NodeID) []api.NodeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(id)[1:]
}

// Remove tears down the node registered under id together with its
// children. Each removed node is closed: loops cancelled, channels dropped.
func (r *Registry) Remove(id api.NodeID) {
	r.mu.Lock()
	ids := r.collect(id)
	removed := make([]*node.Node, 0, len(ids))
	for _, cid := range ids {
		if n, ok := r.nodes[cid]; ok {
			removed = append(removed, n)
			delete(r.nodes, cid)
		}
		delete(r.children, cid)
	}
	r.mu.Unlock()

	for _, n := range removed {
		n.Close()
	}
}

// collect gathers id and all transitive children; caller holds the lock.
func (r *Registry) collect(id api.NodeID) []api.NodeID {
	out := []api.NodeID{id}
	for _, cid := range r.children[id] {
		out = append(out, r.collect(cid)...)
	}
	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Range applies fn to every registered node.
func (r *Registry) Range(fn func(api.NodeID, *node.Node)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, n := range r.nodes {
		fn(id, n)
	}
}
