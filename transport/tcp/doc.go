// Package tcp
// Author: momentics <momentics@gmail.com>
//
// TCP transport for hioload-net: listener lifecycle, connection acceptance,
// and the per-connection receive/send loops that bridge blocking socket I/O
// into node channels. One accept-loop goroutine per listening node, one
// receive-loop and one send-loop goroutine per connection; the host side
// only polls. Other transports (UDP, WS, TLS) follow the identical pattern.
package tcp
