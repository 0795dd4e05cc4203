package stream

import (
	"math"
	"strconv"
)

// Label is an opaque, totally ordered position within a stream.
//
// Labels support offset arithmetic for computing relative addresses only.
type Label int64

// InvalidLabel marks a position that is not (yet) known. It is never a valid stream offset.
const InvalidLabel Label = -1

// IsValid reports whether l is a real stream position.
func (l Label) IsValid() bool {
	return l >= 0
}

// Add returns l moved by delta bytes.
func (l Label) Add(delta int64) Label {
	return l + Label(delta)
}

// Sub returns the distance in bytes from other to l.
func (l Label) Sub(other Label) int64 {
	return int64(l - other)
}

func (l Label) String() string {
	if !l.IsValid() {
		return "invalid"
	}

	return strconv.FormatInt(int64(l), 10)
}

// toWire converts l to the unsigned on-disk representation.
func (l Label) toWire() uint64 {
	if !l.IsValid() {
		return math.MaxUint64
	}

	return uint64(l)
}

// labelFromWire converts an on-disk value back to a Label.
func labelFromWire(v uint64) Label {
	if v > math.MaxInt64 {
		return InvalidLabel
	}

	return Label(v)
}
