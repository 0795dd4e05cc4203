// Package endian provides the byte order utilities used by the stream codecs.
//
// The serialized format is always little-endian. This package combines the
// standard library's ByteOrder and AppendByteOrder interfaces into one
// EndianEngine and adds label-width aware helpers, so the stream layer can
// encode 4-byte and 8-byte labels through a single code path.
//
// # Basic Usage
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint32(buf, 42)
//	ok := endian.PutLabel(engine, buf[:4], 1024, format.LabelWidth32)
//
// # Thread Safety
//
// All functions in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"math"

	"github.com/arloliu/fastserial/format"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used by the wire format.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// PutLabel stores v into b using the given label width.
//
// Parameters:
//   - engine: byte order to use
//   - b: destination, must hold at least width bytes
//   - v: position to store; math.MaxUint64 encodes the invalid label
//   - width: format.LabelWidth32 or format.LabelWidth64
//
// Returns:
//   - bool: false if v does not fit into a 32-bit label
func PutLabel(engine EndianEngine, b []byte, v uint64, width format.LabelWidth) bool {
	if width == format.LabelWidth64 {
		engine.PutUint64(b, v)
		return true
	}

	if v == math.MaxUint64 {
		engine.PutUint32(b, math.MaxUint32)
		return true
	}
	// MaxUint32 is reserved for the invalid label.
	if v >= math.MaxUint32 {
		return false
	}
	engine.PutUint32(b, uint32(v))

	return true
}

// Label decodes a label of the given width from b.
// A 32-bit all-ones value is widened to math.MaxUint64 so both widths share one invalid sentinel.
func Label(engine EndianEngine, b []byte, width format.LabelWidth) uint64 {
	if width == format.LabelWidth64 {
		return engine.Uint64(b)
	}

	v := engine.Uint32(b)
	if v == math.MaxUint32 {
		return math.MaxUint64
	}

	return uint64(v)
}
