package serial

import (
	"math"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/stream"
)

type deferredObject struct {
	obj Serializable
	ref ForwardReference
}

// Serializer writes one object graph to a stream.Writer.
//
// NewSerializer performs the whole write pass: the signature, the entry
// object, every deferred object, and the trailer. Methods other than Close
// and Err are meant to be called from Serialize callbacks.
type Serializer struct {
	w      stream.Writer
	tracer Tracer

	objects  map[Serializable]stream.Label
	types    map[string]*SerializationType
	forward  forwardTable
	deferred map[Serializable]ForwardReference
	queue    []deferredObject

	err    error
	closed bool
}

// NewSerializer writes entry and everything reachable from it to w.
//
// On failure w is closed before the error is returned. On success the caller
// owns the Serializer and must Close it, which closes w.
//
// Parameters:
//   - w: destination stream
//   - entry: root of the object graph, must not be nil
//   - opts: WithTracer applies
//
// Returns:
//   - *Serializer: the finished serializer
//   - error: the first error of the write pass
func NewSerializer(w stream.Writer, entry Serializable, opts ...Option) (*Serializer, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	s := &Serializer{
		w:        w,
		tracer:   cfg.tracer,
		objects:  make(map[Serializable]stream.Label),
		types:    make(map[string]*SerializationType),
		deferred: make(map[Serializable]ForwardReference),
	}

	if err := s.run(entry); err != nil {
		_ = w.Close()
		s.closed = true

		return nil, err
	}

	return s, nil
}

// Serialize writes entry to w and closes w.
func Serialize(w stream.Writer, entry Serializable, opts ...Option) error {
	s, err := NewSerializer(w, entry, opts...)
	if err != nil {
		return err
	}

	return s.Close()
}

func (s *Serializer) run(entry Serializable) error {
	if isNil(entry) {
		return errors.Wrap(errs.ErrNotSerializable, "nil entry object")
	}

	s.writeSignature()
	s.Write(entry)
	s.writeDeferred()
	s.writeTrailer()

	if err := s.Err(); err != nil {
		return err
	}

	return s.w.Flush()
}

func (s *Serializer) writeSignature() {
	s.w.WriteInt32(int32(len(Signature)))
	s.w.WriteBytes([]byte(Signature))
	if pad := (4 - len(Signature)%4) % 4; pad > 0 {
		s.w.WriteZeros(pad)
	}
}

// writeDeferred is the fixpoint loop: writing one deferred object may queue more.
func (s *Serializer) writeDeferred() {
	for i := 0; i < len(s.queue) && s.ok(); i++ {
		q := s.queue[i]
		if s.forward.lookup(q.ref).IsValid() {
			continue
		}
		s.writeTag(format.TagForwardDefinition)
		s.w.WriteInt32(int32(q.ref))
		s.writeDefinition(q.obj, false, q.ref)
	}
}

func (s *Serializer) writeTrailer() {
	if !s.ok() {
		return
	}
	// Unbalanced end tag terminates the top-level object list.
	s.writeTag(format.TagEndObject)

	if ref := s.forward.firstUnresolved(); ref != InvalidForwardReference {
		s.Fail(errors.Wrapf(errs.ErrForwardReferenceUnresolved, "reference %d of %d", ref, s.forward.len()))
		return
	}

	table := s.w.Label()
	s.w.WriteInt32(int32(s.forward.len()))
	for _, l := range s.forward.all() {
		s.w.WriteLabel(l)
	}

	tr := s.w.Label()
	s.trace("trailer", tr, "")
	s.WritePrivate(&trailer{table: table})
	s.w.WriteSuffixLabel(tr)
}

func (s *Serializer) ok() bool {
	return s.err == nil && s.w.Err() == nil
}

// Err returns the first error of the serializer or its writer.
func (s *Serializer) Err() error {
	if s.err != nil {
		return s.err
	}

	return s.w.Err()
}

// Fail records err as the serializer's error unless one is already set.
func (s *Serializer) Fail(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

// Close closes the underlying writer.
func (s *Serializer) Close() error {
	if s.closed {
		return s.Err()
	}
	s.closed = true
	if err := s.w.Close(); err != nil {
		s.Fail(err)
	}

	return s.Err()
}

// Writer returns the underlying stream writer.
func (s *Serializer) Writer() stream.Writer {
	return s.w
}

// Label returns the position of the next write.
func (s *Serializer) Label() stream.Label {
	return s.w.Label()
}

func (s *Serializer) trace(event string, label stream.Label, typeName string) {
	if s.tracer.Enabled() {
		s.tracer.Event(event, label, typeName)
	}
}

func (s *Serializer) writeTag(tag format.Tag) {
	s.w.WriteUint8(uint8(tag))
}

// checkIdentity rejects objects that cannot be used as intern table keys.
func (s *Serializer) checkIdentity(obj Serializable) bool {
	if t := reflect.TypeOf(obj); !t.Comparable() {
		s.Fail(errors.Wrapf(errs.ErrNotSerializable, "type %s is not comparable", t))
		return false
	}

	return true
}

// Write writes a reference to obj: a null tag, a back-reference to an object
// already written, or the object's definition in place.
func (s *Serializer) Write(obj Serializable) {
	if !s.ok() {
		return
	}
	if isNil(obj) {
		s.writeTag(format.TagNullReference)
		return
	}
	if !s.checkIdentity(obj) {
		return
	}
	if label, ok := s.objects[obj]; ok {
		s.writeTag(format.TagObjectReference)
		s.w.WriteLabel(label)

		return
	}
	// A deferred object keeps its single definition in the forward definition list.
	if ref, ok := s.deferred[obj]; ok {
		s.writeForwardObject(obj, ref)
		return
	}
	s.writeDefinition(obj, false, InvalidForwardReference)
}

// WriteDefered writes a reference to obj without defining it here. The
// definition is written after the entry object, before the trailer.
func (s *Serializer) WriteDefered(obj Serializable) {
	if !s.ok() {
		return
	}
	if isNil(obj) {
		s.writeTag(format.TagNullReference)
		return
	}
	if !s.checkIdentity(obj) {
		return
	}
	if label, ok := s.objects[obj]; ok {
		s.writeTag(format.TagObjectReference)
		s.w.WriteLabel(label)

		return
	}

	ref, ok := s.deferred[obj]
	if !ok {
		ref = s.forward.allocate()
		s.deferred[obj] = ref
		s.queue = append(s.queue, deferredObject{obj: obj, ref: ref})
	}
	s.writeForwardObject(obj, ref)
}

// WritePrivate writes the definition of obj without entering it into the
// intern table. obj must not be reachable through any other reference.
func (s *Serializer) WritePrivate(obj Serializable) {
	if !s.ok() {
		return
	}
	if isNil(obj) {
		s.writeTag(format.TagNullReference)
		return
	}
	s.writeDefinition(obj, true, InvalidForwardReference)
}

func (s *Serializer) writeForwardObject(obj Serializable, ref ForwardReference) {
	s.trace("forward reference", s.w.Label(), obj.TypeName())
	s.writeTag(format.TagForwardReference)
	s.w.WriteInt32(int32(ref))
	s.writeTypeRef(obj)
}

func (s *Serializer) writeDefinition(obj Serializable, private bool, ref ForwardReference) {
	label := s.w.Label()
	if private {
		s.writeTag(format.TagBeginPrivateObject)
	} else {
		s.writeTag(format.TagBeginObject)
		s.objects[obj] = label
	}
	if ref != InvalidForwardReference {
		s.Fail(s.forward.define(ref, label))
	}
	s.trace("begin object", label, obj.TypeName())

	s.writeTypeRef(obj)
	if !s.ok() {
		return
	}
	obj.Serialize(s)

	s.writeTag(format.TagEndObject)
	s.trace("end object", s.w.Label(), obj.TypeName())
}

func (s *Serializer) writeTypeRef(obj Serializable) {
	if _, ok := obj.(*SerializationType); ok {
		s.writeTag(format.TagNullReference)
		return
	}

	name := obj.TypeName()
	t, ok := s.types[name]
	if !ok {
		if name == "" {
			s.Fail(errors.Wrapf(errs.ErrInvalidTypeName, "empty type name for %T", obj))
			return
		}
		version, minReader := versionsOf(obj)
		t = NewSerializationType(name, version, minReader)
		s.types[name] = t
	}
	s.Write(t)
}

// GetForwardReference allocates an unresolved forward reference.
func (s *Serializer) GetForwardReference() ForwardReference {
	return s.forward.allocate()
}

// DefineForwardReference resolves ref to the current position.
func (s *Serializer) DefineForwardReference(ref ForwardReference) {
	s.DefineForwardReferenceAt(ref, s.w.Label())
}

// DefineForwardReferenceAt resolves ref to label. Redefining ref with the same
// label is a no-op; a different label fails with errs.ErrForwardReferenceRedefined.
func (s *Serializer) DefineForwardReferenceAt(ref ForwardReference, label stream.Label) error {
	err := s.forward.define(ref, label)
	s.Fail(err)

	return err
}

// WriteForwardReference writes ref as an int32 index.
func (s *Serializer) WriteForwardReference(ref ForwardReference) {
	s.w.WriteInt32(int32(ref))
}

func (s *Serializer) WriteUint8(v uint8) { s.w.WriteUint8(v) }
func (s *Serializer) WriteBool(v bool) { s.w.WriteBool(v) }
func (s *Serializer) WriteInt16(v int16) { s.w.WriteInt16(v) }
func (s *Serializer) WriteUint16(v uint16) { s.w.WriteUint16(v) }
func (s *Serializer) WriteInt32(v int32) { s.w.WriteInt32(v) }
func (s *Serializer) WriteUint32(v uint32) { s.w.WriteUint32(v) }
func (s *Serializer) WriteInt64(v int64) { s.w.WriteInt64(v) }
func (s *Serializer) WriteUint64(v uint64) { s.w.WriteUint64(v) }
func (s *Serializer) WriteFloat32(v float32) { s.w.WriteFloat32(v) }
func (s *Serializer) WriteFloat64(v float64) { s.w.WriteFloat64(v) }
func (s *Serializer) WriteString(v string) { s.w.WriteString(v) }
func (s *Serializer) WriteNullableString(v *string) { s.w.WriteNullableString(v) }
func (s *Serializer) WriteBytes(p []byte) { s.w.WriteBytes(p) }
func (s *Serializer) WriteLabel(l stream.Label) { s.w.WriteLabel(l) }

// WriteTaggedByte writes v as a skippable tagged field.
func (s *Serializer) WriteTaggedByte(v uint8) {
	s.writeTag(format.TagByte)
	s.w.WriteUint8(v)
}

// WriteTaggedBool writes v as a tagged byte.
func (s *Serializer) WriteTaggedBool(v bool) {
	s.writeTag(format.TagByte)
	s.w.WriteBool(v)
}

func (s *Serializer) WriteTaggedInt16(v int16) {
	s.writeTag(format.TagInt16)
	s.w.WriteInt16(v)
}

func (s *Serializer) WriteTaggedInt32(v int32) {
	s.writeTag(format.TagInt32)
	s.w.WriteInt32(v)
}

func (s *Serializer) WriteTaggedInt64(v int64) {
	s.writeTag(format.TagInt64)
	s.w.WriteInt64(v)
}

func (s *Serializer) WriteTaggedString(v string) {
	s.writeTag(format.TagString)
	s.w.WriteString(v)
}

// WriteTaggedBlob writes p as an opaque, skippable byte region.
func (s *Serializer) WriteTaggedBlob(p []byte) {
	if len(p) > math.MaxInt32 {
		s.Fail(errors.Wrapf(errs.ErrCapacityExceeded, "blob of %d bytes", len(p)))
		return
	}
	s.writeTag(format.TagBlob)
	s.w.WriteInt32(int32(len(p)))
	s.w.WriteBytes(p)
}

// WriteTaggedObject writes a reference to obj inside a skip region, so
// readers that do not expect the field can jump over it.
func (s *Serializer) WriteTaggedObject(obj Serializable) {
	s.writeTag(format.TagSkipRegion)
	ref := s.GetForwardReference()
	s.WriteForwardReference(ref)
	s.Write(obj)
	s.DefineForwardReference(ref)
}
