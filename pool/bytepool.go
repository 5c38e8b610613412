// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool hands out byte slices of a single fixed size.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool creates a pool of buffers of exactly size bytes.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = 64 * 1024
	}
	b := &BytePool{size: size}
	b.p.New = func() any {
		return make([]byte, size)
	}
	return b
}

// Size returns the fixed buffer size.
func (b *BytePool) Size() int {
	return b.size
}

// GetBuffer returns a buffer from the pool.
func (b *BytePool) GetBuffer() []byte {
	return b.p.Get().([]byte)
}

// PutBuffer returns a buffer to the pool. Foreign-sized buffers are
// dropped for the GC to collect.
func (b *BytePool) PutBuffer(buf []byte) {
	if len(buf) != b.size {
		return
	}
	b.p.Put(buf)
}
