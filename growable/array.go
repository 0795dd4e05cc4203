package growable

import (
	"iter"
	"slices"
)

const minArrayCapacity = 4

// Array is a resizable array that doubles its capacity when full.
type Array[T any] struct {
	items []T
}

// NewArray creates an Array with the given initial capacity.
func NewArray[T any](capacity int) *Array[T] {
	if capacity < 0 {
		capacity = 0
	}

	return &Array[T]{items: make([]T, 0, capacity)}
}

// Len returns the number of elements.
func (a *Array[T]) Len() int { return len(a.items) }

// Cap returns the current capacity.
func (a *Array[T]) Cap() int { return cap(a.items) }

// Get returns the element at index i. It panics if i is out of range.
func (a *Array[T]) Get(i int) T { return a.items[i] }

// Set replaces the element at index i. It panics if i is out of range.
func (a *Array[T]) Set(i int, v T) { a.items[i] = v }

// Items returns a view of the elements. The view is invalidated by the next mutation.
func (a *Array[T]) Items() []T { return a.items }

// Add appends v.
func (a *Array[T]) Add(v T) {
	a.ensure(1)
	a.items = append(a.items, v)
}

// AddRange appends vs.
func (a *Array[T]) AddRange(vs ...T) {
	a.ensure(len(vs))
	a.items = append(a.items, vs...)
}

// Insert places v at index i, shifting later elements right.
// It panics if i is not in [0, Len()].
func (a *Array[T]) Insert(i int, v T) {
	if i < 0 || i > len(a.items) {
		panic("growable: Array.Insert index out of range")
	}
	a.ensure(1)

	var zero T
	a.items = append(a.items, zero)
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = v
}

// RemoveAt removes the element at index i.
func (a *Array[T]) RemoveAt(i int) {
	a.RemoveRange(i, 1)
}

// RemoveRange removes count elements starting at index i.
// It panics if the range is not within the array.
func (a *Array[T]) RemoveRange(i, count int) {
	if i < 0 || count < 0 || i+count > len(a.items) {
		panic("growable: Array.RemoveRange out of range")
	}
	n := copy(a.items[i:], a.items[i+count:])
	clear(a.items[i+n:])
	a.items = a.items[:i+n]
}

// Clear removes all elements and keeps the capacity.
func (a *Array[T]) Clear() {
	clear(a.items)
	a.items = a.items[:0]
}

// BinarySearch searches a sorted array. cmp reports the ordering of an element
// relative to the target: negative if the element sorts before it.
//
// Returns:
//   - int: index of the match, or the insertion point if not found
//   - bool: whether a match was found
func (a *Array[T]) BinarySearch(cmp func(T) int) (int, bool) {
	lo, hi := 0, len(a.items)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := cmp(a.items[mid])
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

// Sort sorts the elements in place using cmp.
func (a *Array[T]) Sort(cmp func(x, y T) int) {
	slices.SortFunc(a.items, cmp)
}

// All iterates over index/element pairs.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range a.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (a *Array[T]) ensure(extra int) {
	needed := len(a.items) + extra
	if needed <= cap(a.items) {
		return
	}

	newCap := cap(a.items) * 2
	if newCap < minArrayCapacity {
		newCap = minArrayCapacity
	}
	for newCap < needed {
		newCap *= 2
	}

	grown := make([]T, len(a.items), newCap)
	copy(grown, a.items)
	a.items = grown
}
