package pool

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
)

const (
	StreamBufferDefaultSize  = 1024 * 16       // 16KiB, initial capacity of a pooled stream buffer
	StreamBufferMaxThreshold = 1024 * 1024 * 4 // 4MiB, larger buffers are not returned to the pool

	// doublingThreshold is the capacity up to which buffers double; above it they grow by 1.5x.
	doublingThreshold = 1024 * 1024
)

// ByteBuffer is a growable byte slice with an optional hard capacity limit.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer but keeps its memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite appends data, growing without limit.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Grow ensures the buffer can hold requiredBytes more bytes without reallocating.
//
// The growth strategy is amortized:
//   - buffers up to 1MiB double their capacity
//   - larger buffers grow by 50% to bound memory overhead
//
// Parameters:
//   - requiredBytes: number of additional bytes needed
//   - maxSize: hard limit on total length (0 means unlimited)
//
// Returns:
//   - error: errs.ErrCapacityExceeded if len+requiredBytes would exceed maxSize
func (bb *ByteBuffer) Grow(requiredBytes int, maxSize int64) error {
	needed := int64(len(bb.B)) + int64(requiredBytes)
	if maxSize > 0 && needed > maxSize {
		return errors.Wrapf(errs.ErrCapacityExceeded, "need %d bytes, limit %d", needed, maxSize)
	}

	if cap(bb.B)-len(bb.B) >= requiredBytes {
		return nil
	}

	newCap := int64(cap(bb.B))
	if newCap < StreamBufferDefaultSize {
		newCap = StreamBufferDefaultSize
	}
	for newCap < needed {
		if newCap < doublingThreshold {
			newCap *= 2
		} else {
			newCap += newCap / 2
		}
	}
	if maxSize > 0 && newCap > maxSize {
		newCap = maxSize
	}

	newBuf := make([]byte, len(bb.B), newCap)
	copy(newBuf, bb.B)
	bb.B = newBuf

	return nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a sync.Pool of ByteBuffers that drops oversized buffers on Put.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var streamDefaultPool = NewByteBufferPool(StreamBufferDefaultSize, StreamBufferMaxThreshold)

// GetStreamBuffer retrieves a ByteBuffer from the default stream pool.
func GetStreamBuffer() *ByteBuffer {
	return streamDefaultPool.Get()
}

// PutStreamBuffer returns a ByteBuffer to the default stream pool.
func PutStreamBuffer(bb *ByteBuffer) {
	streamDefaultPool.Put(bb)
}
