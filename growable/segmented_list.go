package growable

import (
	"io"
	"iter"
	"sort"
)

const (
	// DefaultSegmentShift gives 64Ki elements per segment.
	DefaultSegmentShift = 16
	// MaxSegmentShift bounds segments to 1Gi elements.
	MaxSegmentShift = 30
)

// SegmentedList is a list stored as fixed-size segments.
//
// Element i lives in segments[i>>shift][i&mask]. Growing the list only ever
// allocates one new segment; existing elements are never copied.
type SegmentedList[T any] struct {
	segments [][]T
	shift    uint
	mask     int
	count    int
}

// NewSegmentedList creates a list whose segments hold 1<<segmentShift elements.
// Shifts outside [1, MaxSegmentShift] fall back to DefaultSegmentShift.
func NewSegmentedList[T any](segmentShift uint) *SegmentedList[T] {
	if segmentShift == 0 || segmentShift > MaxSegmentShift {
		segmentShift = DefaultSegmentShift
	}

	return &SegmentedList[T]{
		shift: segmentShift,
		mask:  1<<segmentShift - 1,
	}
}

// Len returns the number of elements.
func (l *SegmentedList[T]) Len() int { return l.count }

// SegmentSize returns the number of elements per segment.
func (l *SegmentedList[T]) SegmentSize() int { return l.mask + 1 }

// SegmentCount returns the number of allocated segments.
func (l *SegmentedList[T]) SegmentCount() int { return len(l.segments) }

// Segment returns the populated part of segment i.
func (l *SegmentedList[T]) Segment(i int) []T {
	seg := l.segments[i]
	end := l.count - i<<l.shift
	if end < len(seg) {
		return seg[:end]
	}

	return seg
}

// Get returns the element at index i. It panics if i is out of range.
func (l *SegmentedList[T]) Get(i int) T {
	if uint(i) >= uint(l.count) {
		panic("growable: SegmentedList.Get index out of range")
	}

	return l.segments[i>>l.shift][i&l.mask]
}

// Set replaces the element at index i. It panics if i is out of range.
func (l *SegmentedList[T]) Set(i int, v T) {
	if uint(i) >= uint(l.count) {
		panic("growable: SegmentedList.Set index out of range")
	}
	l.segments[i>>l.shift][i&l.mask] = v
}

// Add appends v.
func (l *SegmentedList[T]) Add(v T) {
	seg := l.count >> l.shift
	if seg == len(l.segments) {
		l.segments = append(l.segments, make([]T, l.mask+1))
	}
	l.segments[seg][l.count&l.mask] = v
	l.count++
}

// AppendSlice appends vs segment by segment.
func (l *SegmentedList[T]) AppendSlice(vs []T) {
	for len(vs) > 0 {
		seg := l.count >> l.shift
		if seg == len(l.segments) {
			l.segments = append(l.segments, make([]T, l.mask+1))
		}
		n := copy(l.segments[seg][l.count&l.mask:], vs)
		l.count += n
		vs = vs[n:]
	}
}

// CopyTo copies elements starting at index start into dst and returns the number copied.
func (l *SegmentedList[T]) CopyTo(dst []T, start int) int {
	if start < 0 || start >= l.count {
		return 0
	}
	if remain := l.count - start; len(dst) > remain {
		dst = dst[:remain]
	}

	copied := 0
	for copied < len(dst) {
		pos := start + copied
		seg := l.segments[pos>>l.shift]
		n := copy(dst[copied:], seg[pos&l.mask:])
		copied += n
	}

	return copied
}

// View returns a slice of n elements starting at start if they lie in one
// segment; ok is false when the range crosses a segment boundary or is out of range.
func (l *SegmentedList[T]) View(start, n int) ([]T, bool) {
	if start < 0 || n < 0 || start+n > l.count {
		return nil, false
	}
	if n == 0 {
		return []T{}, true
	}
	off := start & l.mask
	if off+n > l.mask+1 {
		return nil, false
	}

	return l.segments[start>>l.shift][off : off+n], true
}

// Insert places v at index i, shifting later elements right.
// It panics if i is not in [0, Len()].
func (l *SegmentedList[T]) Insert(i int, v T) {
	if i < 0 || i > l.count {
		panic("growable: SegmentedList.Insert index out of range")
	}

	var zero T
	l.Add(zero)
	for j := l.count - 1; j > i; j-- {
		l.segments[j>>l.shift][j&l.mask] = l.segments[(j-1)>>l.shift][(j-1)&l.mask]
	}
	l.segments[i>>l.shift][i&l.mask] = v
}

// RemoveAt removes the element at index i.
func (l *SegmentedList[T]) RemoveAt(i int) {
	l.RemoveRange(i, 1)
}

// RemoveRange removes count elements starting at index i.
// Segments that become empty are released.
func (l *SegmentedList[T]) RemoveRange(i, count int) {
	if i < 0 || count < 0 || i+count > l.count {
		panic("growable: SegmentedList.RemoveRange out of range")
	}
	if count == 0 {
		return
	}

	for j := i; j+count < l.count; j++ {
		src := j + count
		l.segments[j>>l.shift][j&l.mask] = l.segments[src>>l.shift][src&l.mask]
	}
	l.Truncate(l.count - count)
}

// Truncate shrinks the list to n elements.
func (l *SegmentedList[T]) Truncate(n int) {
	if n < 0 || n >= l.count {
		return
	}

	var zero T
	for j := n; j < l.count; j++ {
		l.segments[j>>l.shift][j&l.mask] = zero
	}
	l.count = n

	keep := (n + l.mask) >> l.shift
	clear(l.segments[keep:])
	l.segments = l.segments[:keep]
}

// Clear removes all elements and releases every segment.
func (l *SegmentedList[T]) Clear() {
	l.segments = nil
	l.count = 0
}

// BinarySearch searches a sorted list. cmp reports the ordering of an element
// relative to the target: negative if the element sorts before it.
func (l *SegmentedList[T]) BinarySearch(cmp func(T) int) (int, bool) {
	lo, hi := 0, l.count
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := cmp(l.segments[mid>>l.shift][mid&l.mask])
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	return lo, false
}

// Sort sorts the list in place using cmp.
func (l *SegmentedList[T]) Sort(cmp func(x, y T) int) {
	sort.Sort(&segmentSorter[T]{list: l, cmp: cmp})
}

// All iterates over index/element pairs.
func (l *SegmentedList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < l.count; i++ {
			if !yield(i, l.segments[i>>l.shift][i&l.mask]) {
				return
			}
		}
	}
}

type segmentSorter[T any] struct {
	list *SegmentedList[T]
	cmp  func(x, y T) int
}

func (s *segmentSorter[T]) Len() int { return s.list.count }

func (s *segmentSorter[T]) Less(i, j int) bool {
	return s.cmp(s.list.Get(i), s.list.Get(j)) < 0
}

func (s *segmentSorter[T]) Swap(i, j int) {
	vi, vj := s.list.Get(i), s.list.Get(j)
	s.list.Set(i, vj)
	s.list.Set(j, vi)
}

// WriteSegments writes the byte contents of l to w, one segment at a time.
func WriteSegments(l *SegmentedList[byte], w io.Writer) (int64, error) {
	var total int64
	for i := 0; i < l.SegmentCount(); i++ {
		n, err := w.Write(l.Segment(i))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
