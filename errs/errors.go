// Package errs defines the errors reported by fastserial.
//
// Every failure surfaced by the stream codecs, the serializer protocol and the
// compressor wraps one of the sentinels below, so callers can classify it with
// errors.Is regardless of the context added along the way.
package errs

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Format errors: malformed or foreign input. Always fatal.
var (
	ErrFormat          = errors.New("fastserial: malformed stream")
	ErrBadSignature    = errors.New("fastserial: stream signature mismatch")
	ErrUnexpectedTag   = errors.New("fastserial: unexpected tag")
	ErrInvalidTag      = errors.New("fastserial: tag outside the valid range")
	ErrInvalidLabel    = errors.New("fastserial: invalid stream label")
	ErrTruncated       = errors.New("fastserial: truncated stream")
	ErrNegativeLength  = errors.New("fastserial: negative length")
	ErrTypeMismatch    = errors.New("fastserial: object has unexpected type")
	ErrNotSerializable = errors.New("fastserial: object cannot be serialized")
)

// Version and factory errors.
var (
	ErrVersion               = errors.New("fastserial: incompatible type version")
	ErrMissingFactory        = errors.New("fastserial: no factory for type")
	ErrTypeNameCollision     = errors.New("fastserial: type name hash collision")
	ErrTypeAlreadyRegistered = errors.New("fastserial: type already registered")
	ErrInvalidTypeName       = errors.New("fastserial: invalid type name")
)

// Consistency violations: programming errors that would corrupt the stream.
var (
	ErrForwardReferenceRedefined  = errors.New("fastserial: forward reference redefined with a different label")
	ErrForwardReferenceUnresolved = errors.New("fastserial: forward reference never defined")
	ErrInvalidForwardReference    = errors.New("fastserial: forward reference index out of range")
	ErrWriteAfterSuffix           = errors.New("fastserial: write after suffix label")
	ErrSuffixNotLast              = errors.New("fastserial: suffix label written before trailer")
	ErrClosed                     = errors.New("fastserial: use of closed serializer")
)

// Capacity errors.
var (
	ErrCapacityExceeded = errors.New("fastserial: buffer capacity exceeded")
	ErrLabelOverflow    = errors.New("fastserial: stream position does not fit label width")
	ErrInvalidSeek      = errors.New("fastserial: seek outside stream")
)

// Compressor and envelope errors.
var (
	ErrOverrun          = errors.New("fastserial: decompression overrun")
	ErrSizeMismatch     = errors.New("fastserial: decompressed size mismatch")
	ErrInvalidLevel     = errors.New("fastserial: invalid compression level")
	ErrChecksumMismatch = errors.New("fastserial: payload checksum mismatch")
	ErrBadEnvelope      = errors.New("fastserial: malformed packed envelope")
	ErrInvalidOption    = errors.New("fastserial: invalid option")
)

// VersionError reports a reader/writer version incompatibility for one type.
type VersionError struct {
	TypeName string
	Required int32
	Actual   int32
	// ReaderTooOld is true when the file demands a newer reader, false when the
	// file is older than the oldest version the reader can parse.
	ReaderTooOld bool
}

func (e *VersionError) Error() string {
	if e.ReaderTooOld {
		return fmt.Sprintf("fastserial: type %q requires reader version >= %d, reader is version %d",
			e.TypeName, e.Required, e.Actual)
	}

	return fmt.Sprintf("fastserial: type %q written with version %d, reader requires version >= %d",
		e.TypeName, e.Actual, e.Required)
}

// Is makes VersionError match ErrVersion.
func (e *VersionError) Is(target error) bool {
	return target == ErrVersion
}

// FormatError carries the stream position where malformed input was detected.
type FormatError struct {
	Offset int64
	Err    error
}

// NewFormatError wraps err with the stream offset where it was detected.
func NewFormatError(offset int64, err error) *FormatError {
	return &FormatError{Offset: offset, Err: err}
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v (at offset %d)", e.Err, e.Offset)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is makes every FormatError match ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
