package stream

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/endian"
	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/format"
)

// sink is the storage a primitiveWriter appends to.
type sink interface {
	write(p []byte) error
	// size returns the number of bytes written so far.
	size() int64
	flush() error
	close() error
}

// primitiveWriter implements Writer on top of a sink. It latches the first error.
type primitiveWriter struct {
	dst     sink
	engine  endian.EndianEngine
	width   format.LabelWidth
	scratch [8]byte
	err     error
	sealed  bool
	closed  bool
}

func (w *primitiveWriter) init(dst sink, width format.LabelWidth) {
	w.dst = dst
	w.engine = endian.GetLittleEndianEngine()
	w.width = width
}

func (w *primitiveWriter) setError(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *primitiveWriter) put(p []byte) {
	if w.err != nil {
		return
	}
	if w.closed {
		w.setError(errs.ErrClosed)
		return
	}
	if w.sealed {
		w.setError(errs.ErrWriteAfterSuffix)
		return
	}
	if err := w.dst.write(p); err != nil {
		w.setError(err)
	}
}

// Err returns the first error encountered by the writer.
func (w *primitiveWriter) Err() error {
	return w.err
}

// LabelWidth returns the encoded label width.
func (w *primitiveWriter) LabelWidth() format.LabelWidth {
	return w.width
}

// Label returns the position the next write will occupy.
func (w *primitiveWriter) Label() Label {
	return Label(w.dst.size())
}

func (w *primitiveWriter) WriteUint8(v uint8) {
	w.scratch[0] = v
	w.put(w.scratch[:1])
}

func (w *primitiveWriter) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *primitiveWriter) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

func (w *primitiveWriter) WriteUint16(v uint16) {
	w.engine.PutUint16(w.scratch[:2], v)
	w.put(w.scratch[:2])
}

func (w *primitiveWriter) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *primitiveWriter) WriteUint32(v uint32) {
	w.engine.PutUint32(w.scratch[:4], v)
	w.put(w.scratch[:4])
}

func (w *primitiveWriter) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

func (w *primitiveWriter) WriteUint64(v uint64) {
	w.engine.PutUint64(w.scratch[:8], v)
	w.put(w.scratch[:8])
}

func (w *primitiveWriter) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *primitiveWriter) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteBytes writes p verbatim, without a length prefix.
func (w *primitiveWriter) WriteBytes(p []byte) {
	if len(p) == 0 {
		return
	}
	w.put(p)
}

// WriteZeros writes n zero bytes.
func (w *primitiveWriter) WriteZeros(n int) {
	var zeros [64]byte
	for n > 0 && w.err == nil {
		chunk := min(n, len(zeros))
		w.put(zeros[:chunk])
		n -= chunk
	}
}

// WriteString writes an int32 byte length followed by the UTF-8 bytes of s.
func (w *primitiveWriter) WriteString(s string) {
	if len(s) > math.MaxInt32 {
		w.setError(errors.Wrapf(errs.ErrCapacityExceeded, "string of %d bytes", len(s)))
		return
	}
	w.WriteInt32(int32(len(s)))
	if len(s) > 0 {
		w.put([]byte(s))
	}
}

// WriteNullableString writes s, encoding nil with a length of -1.
func (w *primitiveWriter) WriteNullableString(s *string) {
	if s == nil {
		w.WriteInt32(-1)
		return
	}
	w.WriteString(*s)
}

// WriteLabel writes l using the configured label width.
func (w *primitiveWriter) WriteLabel(l Label) {
	if w.err != nil {
		return
	}
	if !endian.PutLabel(w.engine, w.scratch[:], l.toWire(), w.width) {
		w.setError(errors.Wrapf(errs.ErrLabelOverflow, "label %d with width %s", l, w.width))
		return
	}
	w.put(w.scratch[:w.width])
}

// WriteSuffixLabel writes the trailer label and seals the writer.
// The label must point at already written data.
func (w *primitiveWriter) WriteSuffixLabel(l Label) {
	if w.err != nil {
		return
	}
	if !l.IsValid() || l >= w.Label() {
		w.setError(errors.Wrapf(errs.ErrSuffixNotLast, "suffix label %s at position %s", l, w.Label()))
		return
	}
	w.WriteLabel(l)
	w.sealed = true
}

// Flush pushes buffered bytes to the underlying storage.
func (w *primitiveWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.dst.flush(); err != nil {
		w.setError(err)
	}

	return w.err
}

// Close flushes and releases the underlying storage. It is idempotent.
func (w *primitiveWriter) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	if w.err == nil {
		w.setError(w.dst.flush())
	}
	w.setError(w.dst.close())

	return w.err
}
