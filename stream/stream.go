package stream

import "github.com/arloliu/fastserial/format"

// Writer is the append-only primitive codec contract.
//
// All integers are little-endian. Strings are an int32 byte length followed by
// UTF-8 bytes; a negative length encodes a null string. Labels are encoded as
// the integer position using the writer's label width.
type Writer interface {
	WriteUint8(v uint8)
	WriteBool(v bool)
	WriteInt16(v int16)
	WriteUint16(v uint16)
	WriteInt32(v int32)
	WriteUint32(v uint32)
	WriteInt64(v int64)
	WriteUint64(v uint64)
	WriteFloat32(v float32)
	WriteFloat64(v float64)
	WriteBytes(p []byte)
	WriteZeros(n int)
	WriteString(s string)
	WriteNullableString(s *string)
	WriteLabel(l Label)

	// WriteSuffixLabel writes the final, fixed-width label of the stream.
	// It must be the last write; later writes fail with errs.ErrWriteAfterSuffix.
	WriteSuffixLabel(l Label)

	// Label returns the position the next write will occupy.
	Label() Label
	LabelWidth() format.LabelWidth

	Flush() error
	Close() error
	Err() error
}

// Reader is the sequential, seekable primitive codec contract.
type Reader interface {
	ReadUint8() uint8
	ReadBool() bool
	ReadInt16() int16
	ReadUint16() uint16
	ReadInt32() int32
	ReadUint32() uint32
	ReadInt64() int64
	ReadUint64() uint64
	ReadFloat32() float32
	ReadFloat64() float64
	ReadBytes(n int) []byte
	ReadBytesTo(dst []byte)
	Skip(n int64)
	ReadString() string
	ReadNullableString() *string
	ReadLabel() Label

	// Goto moves the read position to l.
	Goto(l Label)
	// GotoSuffixLabel reads the label stored in the last LabelWidth bytes and moves there.
	GotoSuffixLabel()
	// Current returns the read position.
	Current() Label
	// Length returns the total stream length in bytes.
	Length() int64
	LabelWidth() format.LabelWidth

	Close() error
	Err() error
}
