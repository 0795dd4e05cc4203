package stream

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/growable"
)

type segmentedSink struct {
	list    *growable.SegmentedList[byte]
	maxSize int64
}

func (s *segmentedSink) write(p []byte) error {
	if s.maxSize > 0 && int64(s.list.Len())+int64(len(p)) > s.maxSize {
		return errors.Wrapf(errs.ErrCapacityExceeded, "need %d bytes, limit %d",
			int64(s.list.Len())+int64(len(p)), s.maxSize)
	}
	s.list.AppendSlice(p)

	return nil
}

func (s *segmentedSink) size() int64  { return int64(s.list.Len()) }
func (s *segmentedSink) flush() error { return nil }
func (s *segmentedSink) close() error { return nil }

// SegmentedWriter writes into a list of fixed-size segments. Growing never
// copies previously written bytes, which keeps very large streams cheap.
type SegmentedWriter struct {
	primitiveWriter
	sink segmentedSink
}

var _ Writer = (*SegmentedWriter)(nil)

// NewSegmentedWriter creates a segmented in-memory writer.
// WithLabelWidth, WithMaxSize and WithSegmentShift apply.
func NewSegmentedWriter(opts ...Option) (*SegmentedWriter, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	w := &SegmentedWriter{sink: segmentedSink{
		list:    growable.NewSegmentedList[byte](cfg.segmentShift),
		maxSize: cfg.maxSize,
	}}
	w.init(&w.sink, cfg.labelWidth)

	return w, nil
}

// Segments returns the underlying segment list.
func (w *SegmentedWriter) Segments() *growable.SegmentedList[byte] {
	return w.sink.list
}

// Len returns the number of bytes written.
func (w *SegmentedWriter) Len() int {
	return w.sink.list.Len()
}

// WriteTo writes every segment to dst in order.
func (w *SegmentedWriter) WriteTo(dst io.Writer) (int64, error) {
	return growable.WriteSegments(w.sink.list, dst)
}

// Reader returns a SegmentedReader over the written segments.
func (w *SegmentedWriter) Reader(opts ...Option) (*SegmentedReader, error) {
	opts = append([]Option{WithLabelWidth(w.width)}, opts...)
	return NewSegmentedReader(w.sink.list, opts...)
}

type segmentedSource struct {
	list    *growable.SegmentedList[byte]
	scratch []byte
}

func (s *segmentedSource) view(pos int64, n int) ([]byte, error) {
	if b, ok := s.list.View(int(pos), n); ok {
		return b, nil
	}
	// The range straddles a segment boundary.
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	s.list.CopyTo(s.scratch[:n], int(pos))

	return s.scratch[:n], nil
}

func (s *segmentedSource) length() int64 { return int64(s.list.Len()) }
func (s *segmentedSource) close() error  { return nil }

// SegmentedReader reads a stream held in a segment list.
type SegmentedReader struct {
	primitiveReader
	src segmentedSource
}

var _ Reader = (*SegmentedReader)(nil)

// NewSegmentedReader creates a reader over list. The segments are not copied.
func NewSegmentedReader(list *growable.SegmentedList[byte], opts ...Option) (*SegmentedReader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	r := &SegmentedReader{src: segmentedSource{list: list}}
	r.init(&r.src, cfg.labelWidth)

	return r, nil
}
