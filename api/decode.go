// File: api/decode.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Decoder is the collaborator contract for typed message decoding.
// The core's only obligation is to deliver raw packets to a node's receive
// channel in receipt order, tagged with the source address when known, until
// the node stops or errors. Registration of decoders per node and per-tick
// decode scheduling belong to the host.
type Decoder interface {
	Decode(pkt RawPacket) error
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(pkt RawPacket) error

func (f DecoderFunc) Decode(pkt RawPacket) error {
	return f(pkt)
}
