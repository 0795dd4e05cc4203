package stream

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/endian"
	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/format"
)

// source is the random-access storage a primitiveReader reads from.
type source interface {
	// view returns n bytes starting at pos. The slice is valid until the next call.
	// Callers guarantee pos+n <= length().
	view(pos int64, n int) ([]byte, error)
	length() int64
	close() error
}

// primitiveReader implements Reader on top of a source. It latches the first error.
type primitiveReader struct {
	src    source
	engine endian.EndianEngine
	width  format.LabelWidth
	pos    int64
	err    error
	closed bool
}

func (r *primitiveReader) init(src source, width format.LabelWidth) {
	r.src = src
	r.engine = endian.GetLittleEndianEngine()
	r.width = width
}

func (r *primitiveReader) setError(err error) {
	if r.err == nil {
		r.err = err
	}
}

// next consumes n bytes and returns a view of them, or nil after an error.
func (r *primitiveReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.closed {
		r.setError(errs.ErrClosed)
		return nil
	}
	if int64(n) > r.src.length()-r.pos {
		r.setError(errs.NewFormatError(r.pos, errors.Wrapf(errs.ErrTruncated,
			"need %d bytes, %d remaining", n, r.src.length()-r.pos)))

		return nil
	}
	b, err := r.src.view(r.pos, n)
	if err != nil {
		r.setError(errs.NewFormatError(r.pos, err))
		return nil
	}
	r.pos += int64(n)

	return b
}

// Err returns the first error encountered by the reader.
func (r *primitiveReader) Err() error {
	return r.err
}

// LabelWidth returns the encoded label width.
func (r *primitiveReader) LabelWidth() format.LabelWidth {
	return r.width
}

// Current returns the read position.
func (r *primitiveReader) Current() Label {
	return Label(r.pos)
}

// Length returns the total stream length in bytes.
func (r *primitiveReader) Length() int64 {
	return r.src.length()
}

func (r *primitiveReader) ReadUint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *primitiveReader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *primitiveReader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

func (r *primitiveReader) ReadUint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}

	return r.engine.Uint16(b)
}

func (r *primitiveReader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *primitiveReader) ReadUint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}

	return r.engine.Uint32(b)
}

func (r *primitiveReader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

func (r *primitiveReader) ReadUint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}

	return r.engine.Uint64(b)
}

func (r *primitiveReader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *primitiveReader) ReadFloat64() float64 {
	return math.Float64frombits(r.ReadUint64())
}

// ReadBytes returns a copy of the next n bytes.
func (r *primitiveReader) ReadBytes(n int) []byte {
	if n < 0 {
		r.setError(errs.NewFormatError(r.pos, errors.Wrapf(errs.ErrNegativeLength, "byte count %d", n)))
		return nil
	}
	b := r.next(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)

	return out
}

// ReadBytesTo fills dst with the next len(dst) bytes.
func (r *primitiveReader) ReadBytesTo(dst []byte) {
	if b := r.next(len(dst)); b != nil {
		copy(dst, b)
	}
}

// Skip advances the read position by n bytes.
func (r *primitiveReader) Skip(n int64) {
	if r.err != nil {
		return
	}
	r.Goto(Label(r.pos + n))
}

// ReadString reads an int32 length-prefixed string. A null string reads as "".
func (r *primitiveReader) ReadString() string {
	if s := r.ReadNullableString(); s != nil {
		return *s
	}

	return ""
}

// ReadNullableString reads an int32 length-prefixed string, returning nil for a negative length.
func (r *primitiveReader) ReadNullableString() *string {
	n := r.ReadInt32()
	if r.err != nil || n < 0 {
		return nil
	}
	var s string
	if n > 0 {
		b := r.next(int(n))
		if b == nil {
			return nil
		}
		s = string(b)
	}

	return &s
}

// ReadLabel reads a label of the configured width.
func (r *primitiveReader) ReadLabel() Label {
	b := r.next(int(r.width))
	if b == nil {
		return InvalidLabel
	}

	return labelFromWire(endian.Label(r.engine, b, r.width))
}

// Goto moves the read position to l. Moving to the end of the stream is allowed.
func (r *primitiveReader) Goto(l Label) {
	if r.err != nil {
		return
	}
	if !l.IsValid() || int64(l) > r.src.length() {
		r.setError(errors.Wrapf(errs.ErrInvalidSeek, "label %s, stream length %d", l, r.src.length()))
		return
	}
	r.pos = int64(l)
}

// GotoSuffixLabel reads the trailer label from the end of the stream and moves to it.
func (r *primitiveReader) GotoSuffixLabel() {
	if r.err != nil {
		return
	}
	end := r.src.length() - int64(r.width)
	if end < 0 {
		r.setError(errs.NewFormatError(0, errors.Wrap(errs.ErrTruncated, "stream shorter than suffix label")))
		return
	}
	r.pos = end
	l := r.ReadLabel()
	if r.err != nil {
		return
	}
	if !l.IsValid() || int64(l) >= end {
		r.setError(errs.NewFormatError(end, errors.Wrapf(errs.ErrInvalidLabel, "suffix label %s", l)))
		return
	}
	r.pos = int64(l)
}

// Close releases the underlying storage. It is idempotent.
func (r *primitiveReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.src.close(); err != nil {
		return errors.Wrap(err, "close stream source")
	}

	return nil
}
