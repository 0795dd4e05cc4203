package serial

import (
	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/stream"
)

// RegionState is the read state of a DeferredRegion.
type RegionState uint8

const (
	RegionUnread  RegionState = iota // RegionUnread: Read has not been called.
	RegionPending                    // RegionPending: the region was skipped and awaits FinishRead.
	RegionDone                       // RegionDone: the region has been read.
)

func (s RegionState) String() string {
	switch s {
	case RegionUnread:
		return "Unread"
	case RegionPending:
		return "Pending"
	case RegionDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// DeferredRegion is a span of an object's fields that a reader can skip and
// materialize later. It is written as a forward reference to its own end,
// followed by the region's bytes.
//
// Typical use inside a Serializable:
//
//	func (n *Node) Serialize(s *serial.Serializer) {
//	    n.payload.Write(s, func(s *serial.Serializer) { s.WriteString(n.body) })
//	}
//
//	func (n *Node) Deserialize(d *serial.Deserializer) {
//	    n.payload.Read(d, func(d *serial.Deserializer) { n.body = d.ReadString() })
//	}
//
// The body is then read by an explicit n.payload.FinishRead().
type DeferredRegion struct {
	state RegionState
	d     *Deserializer
	start stream.Label
	read  func(d *Deserializer)
}

// Write writes the region produced by fn.
func (r *DeferredRegion) Write(s *Serializer, fn func(s *Serializer)) {
	ref := s.GetForwardReference()
	s.WriteForwardReference(ref)
	fn(s)
	s.DefineForwardReference(ref)
}

// Read records the region's position and skips its bytes. fn runs on FinishRead.
func (r *DeferredRegion) Read(d *Deserializer, fn func(d *Deserializer)) {
	if r.state != RegionUnread {
		d.Fail(errors.Wrapf(errs.ErrFormat, "deferred region read twice (state %s)", r.state))
		return
	}

	end := d.ResolveForwardReference(d.ReadForwardReference())
	start := d.Current()
	if d.Err() != nil {
		return
	}
	if end < start {
		d.Fail(errs.NewFormatError(int64(start), errors.Wrapf(errs.ErrInvalidLabel, "deferred region ends at %s", end)))
		return
	}

	r.d = d
	r.start = start
	r.read = fn
	r.state = RegionPending
	d.Goto(end)
}

// FinishRead reads a pending region. The read position of the deserializer
// is restored afterwards. Calls after the first are no-ops.
func (r *DeferredRegion) FinishRead() error {
	switch r.state {
	case RegionDone:
		return nil
	case RegionUnread:
		return errors.Wrap(errs.ErrFormat, "deferred region finished before it was read")
	}

	d := r.d
	if d.closed {
		return errors.Wrap(errs.ErrClosed, "deferred region outlived its deserializer")
	}

	saved := d.Current()
	d.Goto(r.start)
	r.read(d)
	d.Goto(saved)

	r.state = RegionDone
	r.d = nil
	r.read = nil

	return d.Err()
}

// State returns the region's read state.
func (r *DeferredRegion) State() RegionState {
	return r.state
}

// IsDone reports whether the region has been read.
func (r *DeferredRegion) IsDone() bool {
	return r.state == RegionDone
}
