// Package host
// Author: momentics <momentics@gmail.com>
//
// Host-side plumbing for tick-driven consumers: an explicit registry mapping
// identifiers to node handles, and a Driver whose Tick adopts accepted
// connections, surfaces connected events, and dispatches registered
// decoders. The host never performs socket I/O and never blocks; everything
// here polls.
package host
