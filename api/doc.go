// Package api
// Author: momentics <momentics@gmail.com>
//
// Shared contracts for hioload-net: protocol tags, raw packets, the error
// taxonomy, host-facing events, and the decode hook. The package contains
// types and interfaces only; it never starts goroutines or touches sockets.
package api
