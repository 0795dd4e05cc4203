package stream

import (
	"io"

	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/internal/pool"
)

type memorySink struct {
	buf     *pool.ByteBuffer
	maxSize int64
}

func (s *memorySink) write(p []byte) error {
	if err := s.buf.Grow(len(p), s.maxSize); err != nil {
		return err
	}
	s.buf.B = append(s.buf.B, p...)

	return nil
}

func (s *memorySink) size() int64  { return int64(s.buf.Len()) }
func (s *memorySink) flush() error { return nil }
func (s *memorySink) close() error { return nil }

// MemoryWriter writes into a single growable buffer taken from the stream buffer pool.
//
// Growth doubles the capacity up to 1MiB and then grows by half, never past the
// configured maximum size.
type MemoryWriter struct {
	primitiveWriter
	sink memorySink
}

var _ Writer = (*MemoryWriter)(nil)

// NewMemoryWriter creates an in-memory writer.
//
// Parameters:
//   - opts: WithLabelWidth, WithMaxSize and WithInitialCapacity apply
//
// Returns:
//   - *MemoryWriter: the writer
//   - error: errs.ErrInvalidOption for a rejected option
func NewMemoryWriter(opts ...Option) (*MemoryWriter, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	maxSize := cfg.maxSize
	if maxSize == 0 && cfg.labelWidth == format.LabelWidth32 {
		maxSize = DefaultMaxMemorySize
	}

	buf := pool.GetStreamBuffer()
	if cfg.initialCapacity > buf.Cap() {
		if err := buf.Grow(cfg.initialCapacity, 0); err != nil {
			pool.PutStreamBuffer(buf)
			return nil, err
		}
	}

	w := &MemoryWriter{sink: memorySink{buf: buf, maxSize: maxSize}}
	w.init(&w.sink, cfg.labelWidth)

	return w, nil
}

// Bytes returns the written bytes. The slice is only valid until Release.
func (w *MemoryWriter) Bytes() []byte {
	if w.sink.buf == nil {
		return nil
	}

	return w.sink.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *MemoryWriter) Len() int {
	if w.sink.buf == nil {
		return 0
	}

	return w.sink.buf.Len()
}

// WriteTo writes the stream contents to dst.
func (w *MemoryWriter) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.Bytes())
	return int64(n), err
}

// Reader returns a MemoryReader over the written bytes. It shares the writer's buffer.
func (w *MemoryWriter) Reader(opts ...Option) (*MemoryReader, error) {
	opts = append([]Option{WithLabelWidth(w.width)}, opts...)
	return NewMemoryReader(w.Bytes(), opts...)
}

// Release closes the writer and returns its buffer to the pool.
// Slices returned by Bytes must not be used afterwards.
func (w *MemoryWriter) Release() {
	_ = w.Close()
	if w.sink.buf != nil {
		pool.PutStreamBuffer(w.sink.buf)
		w.sink.buf = nil
	}
}

type memorySource struct {
	data []byte
}

func (s *memorySource) view(pos int64, n int) ([]byte, error) {
	return s.data[pos : pos+int64(n)], nil
}

func (s *memorySource) length() int64 { return int64(len(s.data)) }
func (s *memorySource) close() error  { return nil }

// MemoryReader reads a stream held in a byte slice.
type MemoryReader struct {
	primitiveReader
	src memorySource
}

var _ Reader = (*MemoryReader)(nil)

// NewMemoryReader creates a reader over data. The slice is not copied.
func NewMemoryReader(data []byte, opts ...Option) (*MemoryReader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	r := &MemoryReader{src: memorySource{data: data}}
	r.init(&r.src, cfg.labelWidth)

	return r, nil
}
