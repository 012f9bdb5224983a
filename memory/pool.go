// Package memory pools the buffers that outcome payloads are encoded into.
package memory

import (
	"bytes"
	"sync"
)

// Size classes of pooled buffers. An account snapshot fits the small class
// and a full transaction page the large one.
const (
	SmallBufferSize = 4 << 10
	LargeBufferSize = 256 << 10
)

// retainFactor bounds how far past its class size a buffer may grow and
// still return to the pool.
const retainFactor = 4

// BufferPool is a pool of byte buffers of one size class.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a pool of buffers with size bytes of capacity.
// Non-positive sizes select SmallBufferSize.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = SmallBufferSize
	}
	p := &BufferPool{size: size}
	p.pool.New = func() any {
		return bytes.NewBuffer(make([]byte, 0, size))
	}
	return p
}

// Size returns the initial capacity of the pool's buffers.
func (p *BufferPool) Size() int {
	return p.size
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets buf and keeps it for reuse unless it outgrew the class.
// It reports whether buf was kept.
func (p *BufferPool) Put(buf *bytes.Buffer) bool {
	if buf == nil || buf.Cap() > p.size*retainFactor {
		return false
	}
	buf.Reset()
	p.pool.Put(buf)
	return true
}

var (
	smallPool = NewBufferPool(SmallBufferSize)
	largePool = NewBufferPool(LargeBufferSize)
)

// GetBuffer returns a buffer of the class that fits sizeHint.
func GetBuffer(sizeHint int) *bytes.Buffer {
	if sizeHint <= SmallBufferSize {
		return smallPool.Get()
	}
	return largePool.Get()
}

// PutBuffer returns buf to the class its capacity belongs to.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() <= SmallBufferSize*retainFactor {
		smallPool.Put(buf)
		return
	}
	largePool.Put(buf)
}
