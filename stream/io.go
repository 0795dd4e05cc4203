package stream

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/internal/pool"
)

type ioSink struct {
	w         io.Writer
	buf       *pool.ByteBuffer
	threshold int
	written   int64
}

func (s *ioSink) write(p []byte) error {
	s.buf.MustWrite(p)
	s.written += int64(len(p))
	if s.buf.Len() >= s.threshold {
		return s.flush()
	}

	return nil
}

func (s *ioSink) size() int64 { return s.written }

func (s *ioSink) flush() error {
	if s.buf == nil || s.buf.Len() == 0 {
		return nil
	}
	_, err := s.buf.WriteTo(s.w)
	s.buf.Reset()
	if err != nil {
		return errors.Wrap(err, "flush stream")
	}

	return nil
}

func (s *ioSink) close() error {
	if s.buf != nil {
		pool.PutStreamBuffer(s.buf)
		s.buf = nil
	}
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// IOWriter writes a stream to an io.Writer through a pooled buffer.
// The destination does not need to be seekable. Close flushes the buffer and
// closes the destination if it implements io.Closer.
type IOWriter struct {
	primitiveWriter
	sink ioSink
}

var _ Writer = (*IOWriter)(nil)

// NewIOWriter creates a writer over w. WithLabelWidth and WithFlushThreshold apply.
func NewIOWriter(w io.Writer, opts ...Option) (*IOWriter, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	iw := &IOWriter{sink: ioSink{w: w, buf: pool.GetStreamBuffer(), threshold: cfg.flushThreshold}}
	iw.init(&iw.sink, cfg.labelWidth)

	return iw, nil
}

type ioSource struct {
	rs       io.ReadSeeker
	size     int64
	window   []byte
	winStart int64
	winLen   int
}

func (s *ioSource) view(pos int64, n int) ([]byte, error) {
	if pos >= s.winStart && pos+int64(n) <= s.winStart+int64(s.winLen) {
		off := pos - s.winStart
		return s.window[off : off+int64(n)], nil
	}
	if err := s.refill(pos, n); err != nil {
		return nil, err
	}

	return s.window[:n], nil
}

// refill loads a window starting at pos holding at least n bytes.
func (s *ioSource) refill(pos int64, n int) error {
	if n > len(s.window) {
		s.window = make([]byte, max(n, 2*len(s.window)))
	}
	want := len(s.window)
	if remain := s.size - pos; remain < int64(want) {
		want = int(remain)
	}

	s.winLen = 0
	if _, err := s.rs.Seek(pos, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to %d", pos)
	}
	got, err := io.ReadAtLeast(s.rs, s.window[:want], n)
	if err != nil {
		return errors.Wrapf(err, "read %d bytes at %d", n, pos)
	}
	s.winStart = pos
	s.winLen = got

	return nil
}

func (s *ioSource) length() int64 { return s.size }

func (s *ioSource) close() error {
	if c, ok := s.rs.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// IOReader reads a stream from an io.ReadSeeker through a refill-on-demand window.
// The window grows when a single read needs more bytes than it holds.
type IOReader struct {
	primitiveReader
	src ioSource
}

var _ Reader = (*IOReader)(nil)

// NewIOReader creates a reader over rs. The stream length is taken by seeking to the end.
// WithLabelWidth and WithWindowSize apply.
func NewIOReader(rs io.ReadSeeker, opts ...Option) (*IOReader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "determine stream length")
	}

	r := &IOReader{src: ioSource{rs: rs, size: size, window: make([]byte, cfg.windowSize)}}
	r.init(&r.src, cfg.labelWidth)

	return r, nil
}
