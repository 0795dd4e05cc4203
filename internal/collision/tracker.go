package collision

import (
	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
)

// Tracker records type-name hashes handed out by a registry and rejects
// duplicate names and distinct names that hash to the same identifier.
//
// Tracker is not safe for concurrent use; the registry serializes calls.
type Tracker struct {
	names map[uint64]string // hash → type name
	order []string          // registration order
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		names: make(map[uint64]string),
		order: make([]string, 0),
	}
}

// Track records name under hash.
//
// Returns:
//   - errs.ErrInvalidTypeName if name is empty
//   - errs.ErrTypeAlreadyRegistered if name was tracked before
//   - errs.ErrTypeNameCollision if another name already owns hash
func (t *Tracker) Track(name string, hash uint64) error {
	if name == "" {
		return errs.ErrInvalidTypeName
	}

	if existing, ok := t.names[hash]; ok {
		if existing == name {
			return errors.Wrapf(errs.ErrTypeAlreadyRegistered, "type %q", name)
		}

		return errors.Wrapf(errs.ErrTypeNameCollision, "types %q and %q hash to %#x", existing, name, hash)
	}

	t.names[hash] = name
	t.order = append(t.order, name)

	return nil
}

// Forget removes the name tracked under hash, if any.
func (t *Tracker) Forget(hash uint64) {
	name, ok := t.names[hash]
	if !ok {
		return
	}
	delete(t.names, hash)

	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Names returns tracked names in registration order.
func (t *Tracker) Names() []string {
	return t.order
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return len(t.order)
}

// Reset clears all tracked names.
func (t *Tracker) Reset() {
	clear(t.names)
	t.order = t.order[:0]
}
