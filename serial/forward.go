package serial

import (
	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/growable"
	"github.com/arloliu/fastserial/stream"
)

// Signature opens every stream. It is written as an int32 length, the ASCII
// bytes and zero padding up to a 4-byte boundary.
const Signature = "!FastSerialization.1"

// ForwardReference is an index into the stream's table of labels that were
// not known when they were referenced.
type ForwardReference int32

// InvalidForwardReference is returned by operations that fail before a reference is allocated.
const InvalidForwardReference ForwardReference = -1

// minForwardDefinitionSize is the smallest encoding of a forward definition:
// its tag, the int32 index and the begin tag of the object.
const minForwardDefinitionSize = 6

// forwardTable holds the label of each forward reference; unresolved entries are stream.InvalidLabel.
type forwardTable struct {
	labels growable.Array[stream.Label]
}

func (t *forwardTable) len() int { return t.labels.Len() }

func (t *forwardTable) allocate() ForwardReference {
	t.labels.Add(stream.InvalidLabel)
	return ForwardReference(t.labels.Len() - 1)
}

func (t *forwardTable) valid(ref ForwardReference) bool {
	return ref >= 0 && int(ref) < t.labels.Len()
}

// define resolves ref to label. Defining the same label twice is a no-op.
func (t *forwardTable) define(ref ForwardReference, label stream.Label) error {
	if !t.valid(ref) {
		return errors.Wrapf(errs.ErrInvalidForwardReference, "reference %d of %d", ref, t.len())
	}
	if !label.IsValid() {
		return errors.Wrapf(errs.ErrInvalidLabel, "defining reference %d", ref)
	}
	switch cur := t.labels.Get(int(ref)); {
	case cur == label:
		return nil
	case cur.IsValid():
		return errors.Wrapf(errs.ErrForwardReferenceRedefined, "reference %d: %s, then %s", ref, cur, label)
	}
	t.labels.Set(int(ref), label)

	return nil
}

func (t *forwardTable) lookup(ref ForwardReference) stream.Label {
	if !t.valid(ref) {
		return stream.InvalidLabel
	}

	return t.labels.Get(int(ref))
}

// grow extends the table to n unresolved entries.
func (t *forwardTable) grow(n int) {
	for t.labels.Len() < n {
		t.labels.Add(stream.InvalidLabel)
	}
}

// set records label for ref, growing the table up to limit entries. Used by
// readers that learn labels out of order; limit bounds what a corrupted
// index can allocate.
func (t *forwardTable) set(ref ForwardReference, label stream.Label, limit int) error {
	if ref < 0 || int64(ref) >= int64(limit) {
		return errors.Wrapf(errs.ErrInvalidForwardReference, "reference %d, limit %d", ref, limit)
	}
	t.grow(int(ref) + 1)
	t.labels.Set(int(ref), label)

	return nil
}

// firstUnresolved returns the lowest unresolved reference, or InvalidForwardReference.
func (t *forwardTable) firstUnresolved() ForwardReference {
	for i, l := range t.labels.All() {
		if !l.IsValid() {
			return ForwardReference(i)
		}
	}

	return InvalidForwardReference
}

// all returns the labels in reference order.
func (t *forwardTable) all() []stream.Label { return t.labels.Items() }
