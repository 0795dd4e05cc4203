// Package growable provides the container primitives used by the stream layer.
//
// Array is a minimal resizable array with positional insert/remove, binary
// search and sort. SegmentedList stores its elements in fixed-size segments
// addressed by shift/mask arithmetic, so very large collections (such as the
// bytes of a multi-gigabyte stream) never require one giant allocation or a
// full copy on growth.
//
// Neither type is safe for concurrent mutation.
package growable
