package growable

import (
	"bytes"
	"cmp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentedList_AddGet(t *testing.T) {
	l := NewSegmentedList[int](2) // 4 elements per segment
	for i := 0; i < 10; i++ {
		l.Add(i * 10)
	}

	require.Equal(t, 10, l.Len())
	require.Equal(t, 4, l.SegmentSize())
	require.Equal(t, 3, l.SegmentCount())
	for i := 0; i < 10; i++ {
		require.Equal(t, i*10, l.Get(i))
	}
	require.Panics(t, func() { l.Get(10) })

	l.Set(9, -1)
	require.Equal(t, -1, l.Get(9))
}

func TestSegmentedList_DefaultShift(t *testing.T) {
	require.Equal(t, 1<<DefaultSegmentShift, NewSegmentedList[byte](0).SegmentSize())
	require.Equal(t, 1<<DefaultSegmentShift, NewSegmentedList[byte](40).SegmentSize())
}

func TestSegmentedList_AppendSliceAndCopy(t *testing.T) {
	l := NewSegmentedList[byte](3) // 8 bytes per segment
	data := []byte("the quick brown fox jumps over the lazy dog")
	l.AppendSlice(data[:5])
	l.AppendSlice(data[5:])

	require.Equal(t, len(data), l.Len())
	out := make([]byte, len(data))
	require.Equal(t, len(data), l.CopyTo(out, 0))
	require.Equal(t, data, out)

	part := make([]byte, 100)
	n := l.CopyTo(part, 40)
	require.Equal(t, len(data)-40, n)
	require.Equal(t, data[40:], part[:n])

	require.Equal(t, 0, l.CopyTo(part, len(data)))
}

func TestSegmentedList_View(t *testing.T) {
	l := NewSegmentedList[byte](3)
	l.AppendSlice([]byte("0123456789abcdef"))

	v, ok := l.View(2, 4)
	require.True(t, ok)
	require.Equal(t, []byte("2345"), v)

	_, ok = l.View(6, 4) // crosses the 8-byte boundary
	require.False(t, ok)

	_, ok = l.View(14, 4)
	require.False(t, ok)
}

func TestSegmentedList_InsertRemove(t *testing.T) {
	l := NewSegmentedList[int](1) // 2 per segment
	for i := 0; i < 6; i++ {
		l.Add(i)
	}

	l.Insert(0, 100)
	l.Insert(4, 200)
	l.Insert(l.Len(), 300)
	require.Equal(t, []int{100, 0, 1, 2, 200, 3, 4, 5, 300}, collect(l))

	l.RemoveAt(0)
	l.RemoveRange(3, 2)
	require.Equal(t, []int{0, 1, 2, 4, 5, 300}, collect(l))
	require.Equal(t, 3, l.SegmentCount())

	l.RemoveRange(2, 4)
	require.Equal(t, []int{0, 1}, collect(l))
	require.Equal(t, 1, l.SegmentCount())

	l.Clear()
	require.Equal(t, 0, l.Len())
	require.Equal(t, 0, l.SegmentCount())
}

func TestSegmentedList_SortAndSearch(t *testing.T) {
	l := NewSegmentedList[int](2)
	for _, v := range []int{9, 3, 7, 1, 5, 11, 2} {
		l.Add(v)
	}

	l.Sort(cmp.Compare[int])
	require.Equal(t, []int{1, 2, 3, 5, 7, 9, 11}, collect(l))

	idx, found := l.BinarySearch(func(v int) int { return cmp.Compare(v, 7) })
	require.True(t, found)
	require.Equal(t, 4, idx)

	idx, found = l.BinarySearch(func(v int) int { return cmp.Compare(v, 6) })
	require.False(t, found)
	require.Equal(t, 4, idx)
}

func TestWriteSegments(t *testing.T) {
	l := NewSegmentedList[byte](2)
	l.AppendSlice([]byte("segmented"))

	var out bytes.Buffer
	n, err := WriteSegments(l, &out)
	require.NoError(t, err)
	require.Equal(t, int64(9), n)
	require.Equal(t, "segmented", out.String())
}

func collect(l *SegmentedList[int]) []int {
	out := make([]int, 0, l.Len())
	for _, v := range l.All() {
		out = append(out, v)
	}

	return out
}
