// Package stream provides the primitive codec layer of fastserial: writers and
// readers of fixed-width little-endian integers, length-prefixed strings and
// stream labels over several storage backends.
//
// # Writers
//
// Writers append only; they cannot seek. This lets a stream be produced over a
// non-seekable sink such as a pipe.
//
//   - MemoryWriter: one pooled, growable buffer with a hard size cap
//   - SegmentedWriter: fixed-size segments, never copies on growth
//   - IOWriter: buffered writes to any io.Writer
//
// # Readers
//
// Readers read sequentially and seek randomly with Goto. GotoSuffixLabel finds
// the trailer of a stream in O(1) from the fixed-width label at its very end.
//
//   - MemoryReader: over a byte slice
//   - SegmentedReader: over the segments of a SegmentedWriter
//   - IOReader: refill-on-demand window over an io.ReadSeeker
//   - MappedFileReader: sliding mmap view over a file (unix)
//   - CachedReader: block cache with optional background read-ahead
//
// # Errors
//
// Writers and readers latch the first error. Once an error is recorded every
// subsequent operation is a no-op (reads return zero values) and Err reports
// the original cause.
package stream
