package serial

import (
	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/stream"
)

// Deserializer materializes an object graph from a stream.Reader.
//
// By default objects are read lazily: the entry object is read in place and
// forward references are resolved by seeking, using the forward reference
// table found through the stream's suffix label. WithEagerRead instead reads
// all forward definitions in stream order right after the entry object.
//
// Every object is cached by the label of its definition, so each definition
// is materialized once per session and shared references keep their identity.
type Deserializer struct {
	r   stream.Reader
	cfg *config

	objects map[stream.Label]Serializable
	// ends maps the label of each fully read definition to the label just past its end tag.
	ends map[stream.Label]stream.Label

	forward     forwardTable
	tableLoaded bool
	// stash holds instances created for forward references whose definition has not been read.
	stash map[ForwardReference]Serializable

	current *SerializationType

	entry     Serializable
	entryRead bool

	err    error
	closed bool
}

// NewDeserializer validates the stream signature and prepares to read.
//
// On failure r is closed before the error is returned.
//
// Parameters:
//   - r: source stream, positioned at its start
//   - opts: WithRegistry, WithFactory, WithDefaultFactory, WithEagerRead and WithTracer apply
//
// Returns:
//   - *Deserializer: the deserializer; call GetEntryObject to read the graph
//   - error: errs.ErrBadSignature for foreign input, or an option error
func NewDeserializer(r stream.Reader, opts ...Option) (*Deserializer, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	d := &Deserializer{
		r:       r,
		cfg:     cfg,
		objects: make(map[stream.Label]Serializable),
		ends:    make(map[stream.Label]stream.Label),
		stash:   make(map[ForwardReference]Serializable),
	}

	if err := d.checkSignature(); err != nil {
		_ = r.Close()
		d.closed = true

		return nil, err
	}

	return d, nil
}

// Deserialize reads the entry object of r and closes r.
func Deserialize(r stream.Reader, opts ...Option) (Serializable, error) {
	d, err := NewDeserializer(r, opts...)
	if err != nil {
		return nil, err
	}

	entry, err := d.GetEntryObject()
	closeErr := d.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	return entry, nil
}

func (d *Deserializer) checkSignature() error {
	n := d.r.ReadInt32()
	if d.r.Err() == nil && n == int32(len(Signature)) {
		sig := d.r.ReadBytes(len(Signature))
		if d.r.Err() == nil && string(sig) == Signature {
			if pad := (4 - len(Signature)%4) % 4; pad > 0 {
				d.r.Skip(int64(pad))
			}
			if d.r.Err() == nil {
				return nil
			}
		}
	}

	return errs.NewFormatError(0, errs.ErrBadSignature)
}

// GetEntryObject returns the root of the graph, reading it on the first call.
func (d *Deserializer) GetEntryObject() (Serializable, error) {
	if d.entryRead {
		return d.entry, d.Err()
	}
	d.entryRead = true

	d.entry = d.ReadObject()
	if d.cfg.eager {
		d.readForwardDefinitions()
	}
	if err := d.Err(); err != nil {
		d.entry = nil
		return nil, err
	}

	return d.entry, nil
}

// EntryAs returns the entry object as T.
func EntryAs[T Serializable](d *Deserializer) (T, error) {
	var zero T
	entry, err := d.GetEntryObject()
	if err != nil {
		return zero, err
	}
	t, ok := entry.(T)
	if !ok {
		return zero, errors.Wrapf(errs.ErrTypeMismatch, "entry is %T, want %T", entry, zero)
	}

	return t, nil
}

// readForwardDefinitions scans the top-level list after the entry object up
// to the unbalanced end tag, reading every forward definition in order.
func (d *Deserializer) readForwardDefinitions() {
	for d.ok() {
		start := d.r.Current()
		switch tag := d.readTag(); tag {
		case format.TagEndObject:
			for ref := range d.stash {
				d.Fail(errors.Wrapf(errs.ErrForwardReferenceUnresolved, "reference %d", ref))
			}

			return
		case format.TagForwardDefinition:
			ref := ForwardReference(d.r.ReadInt32())
			label := d.r.Current()
			if err := d.forward.set(ref, label, d.forwardLimit()); err != nil {
				d.Fail(errs.NewFormatError(int64(start), err))
				return
			}
			adopt := d.stash[ref]
			delete(d.stash, ref)
			d.readDefinition(label, adopt)
		default:
			if d.ok() {
				d.Fail(d.unexpected(start, tag))
			}

			return
		}
	}
}

func (d *Deserializer) ok() bool {
	return d.err == nil && d.r.Err() == nil
}

// Err returns the first error of the deserializer or its reader.
func (d *Deserializer) Err() error {
	if d.err != nil {
		return d.err
	}

	return d.r.Err()
}

// Fail records err as the deserializer's error unless one is already set.
func (d *Deserializer) Fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

// Close closes the underlying reader.
func (d *Deserializer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	return d.r.Close()
}

// Reader returns the underlying stream reader.
func (d *Deserializer) Reader() stream.Reader {
	return d.r
}

// Current returns the read position.
func (d *Deserializer) Current() stream.Label {
	return d.r.Current()
}

// Goto moves the read position to l.
func (d *Deserializer) Goto(l stream.Label) {
	d.r.Goto(l)
}

// VersionBeingRead returns the written version of the type whose Deserialize
// callback is running, or 0 outside a callback.
func (d *Deserializer) VersionBeingRead() int32 {
	if d.current == nil {
		return 0
	}

	return d.current.version
}

// TypeBeingRead returns the descriptor of the type whose Deserialize callback is running.
func (d *Deserializer) TypeBeingRead() *SerializationType {
	return d.current
}

func (d *Deserializer) trace(event string, label stream.Label, typeName string) {
	if d.cfg.tracer.Enabled() {
		d.cfg.tracer.Event(event, label, typeName)
	}
}

func (d *Deserializer) unexpected(at stream.Label, tag format.Tag) error {
	return errs.NewFormatError(int64(at), errors.Wrapf(errs.ErrUnexpectedTag, "%s", tag))
}

func (d *Deserializer) readTag() format.Tag {
	at := d.r.Current()
	tag := format.Tag(d.r.ReadUint8())
	if !d.ok() {
		return format.TagError
	}
	if !tag.IsValid() {
		d.Fail(errs.NewFormatError(int64(at), errors.Wrapf(errs.ErrInvalidTag, "tag %d", uint8(tag))))
		return format.TagError
	}

	return tag
}

// ReadObject reads an object reference and returns the object it denotes,
// materializing it if needed. It returns nil for a null reference or after an error.
func (d *Deserializer) ReadObject() Serializable {
	for d.ok() {
		start := d.r.Current()
		switch tag := d.readTag(); tag {
		case format.TagNullReference:
			return nil
		case format.TagObjectReference:
			return d.objectAt(d.r.ReadLabel())
		case format.TagForwardReference:
			return d.readForwardObject()
		case format.TagBlob:
			d.skipBlob()
		case format.TagPadding:
		case format.TagBeginObject, format.TagBeginPrivateObject:
			d.r.Goto(start)
			return d.readDefinition(start, nil)
		default:
			if d.ok() {
				d.Fail(d.unexpected(start, tag))
			}

			return nil
		}
	}

	return nil
}

// ReadAs reads an object reference and returns it as T. A null reference
// yields the zero T; an object of another type fails with errs.ErrTypeMismatch.
func ReadAs[T Serializable](d *Deserializer) T {
	var zero T
	obj := d.ReadObject()
	if obj == nil {
		return zero
	}
	t, ok := obj.(T)
	if !ok {
		d.Fail(errors.Wrapf(errs.ErrTypeMismatch, "got %T, want %T", obj, zero))
		return zero
	}

	return t
}

// objectAt returns the object defined at label, reading it there if needed.
func (d *Deserializer) objectAt(label stream.Label) Serializable {
	if !d.ok() {
		return nil
	}
	if obj, ok := d.objects[label]; ok {
		return obj
	}
	if !label.IsValid() || int64(label) >= d.r.Length() {
		d.Fail(errs.NewFormatError(int64(d.r.Current()), errors.Wrapf(errs.ErrInvalidLabel, "object reference %s", label)))
		return nil
	}

	return d.readDefinitionAt(label, nil)
}

// readDefinitionAt reads the definition at label and restores the read position.
func (d *Deserializer) readDefinitionAt(label stream.Label, adopt Serializable) Serializable {
	saved := d.r.Current()
	d.r.Goto(label)
	obj := d.readDefinition(label, adopt)
	d.r.Goto(saved)

	return obj
}

func (d *Deserializer) readForwardObject() Serializable {
	ref := ForwardReference(d.r.ReadInt32())
	typ := d.readType()
	if !d.ok() {
		return nil
	}

	if label := d.forwardLabel(ref); label.IsValid() {
		if obj, ok := d.objects[label]; ok {
			return obj
		}
		adopt := d.stash[ref]
		delete(d.stash, ref)

		return d.readDefinitionAt(label, adopt)
	}

	if !d.cfg.eager {
		d.Fail(errors.Wrapf(errs.ErrForwardReferenceUnresolved, "reference %d", ref))
		return nil
	}
	if obj, ok := d.stash[ref]; ok {
		return obj
	}
	if typ == nil {
		d.Fail(errs.NewFormatError(int64(d.r.Current()), errors.Wrap(errs.ErrFormat, "forward reference without type")))
		return nil
	}
	obj := d.create(typ)
	if obj != nil {
		d.stash[ref] = obj
	}

	return obj
}

// forwardLabel returns the known label of ref. In lazy mode it loads the
// trailer table on first use; in eager mode it only reports labels already seen.
func (d *Deserializer) forwardLabel(ref ForwardReference) stream.Label {
	if l := d.forward.lookup(ref); l.IsValid() || d.cfg.eager {
		return l
	}
	d.loadForwardTable()

	return d.forward.lookup(ref)
}

// readDefinition reads the object definition starting at label, which must be
// the current position. adopt, if set, is filled instead of a new instance.
func (d *Deserializer) readDefinition(label stream.Label, adopt Serializable) Serializable {
	tag := d.readTag()
	if !d.ok() {
		return nil
	}
	if !tag.IsBeginObject() {
		d.Fail(d.unexpected(label, tag))
		return nil
	}

	if cached, ok := d.objects[label]; ok {
		// Already materialized through a reference; skip the bytes.
		end, done := d.ends[label]
		if !done {
			d.Fail(errs.NewFormatError(int64(label), errors.Wrap(errs.ErrFormat, "object definition re-entered")))
			return nil
		}
		d.r.Goto(end)

		return cached
	}

	typ := d.readType()
	if !d.ok() {
		return nil
	}

	var obj Serializable
	switch {
	case typ == nil:
		obj = &SerializationType{}
	case adopt != nil:
		obj = adopt
	default:
		obj = d.create(typ)
	}
	if obj == nil {
		return nil
	}
	if !d.checkVersion(typ, obj) {
		return nil
	}

	d.objects[label] = obj
	name := serializationTypeName
	if typ != nil {
		name = typ.fullName
	}
	d.trace("begin object", label, name)

	prev := d.current
	d.current = typ
	obj.Deserialize(d)
	d.current = prev

	d.FindEndTag()
	if d.ok() {
		d.ends[label] = d.r.Current()
		d.trace("end object", d.r.Current(), name)
	}

	return obj
}

// readType reads a type reference: nil for the descriptor of descriptors.
func (d *Deserializer) readType() *SerializationType {
	obj := d.ReadObject()
	if obj == nil {
		return nil
	}
	t, ok := obj.(*SerializationType)
	if !ok {
		d.Fail(errs.NewFormatError(int64(d.r.Current()),
			errors.Wrapf(errs.ErrTypeMismatch, "type reference resolved to %T", obj)))

		return nil
	}

	return t
}

// checkVersion gates types written with a positive minimum reader version;
// types written without one are read by any reader.
func (d *Deserializer) checkVersion(typ *SerializationType, obj Serializable) bool {
	if typ == nil || typ.minimumReaderVersion <= 0 {
		return true
	}

	var readerVersion int32
	if v, ok := obj.(Versioned); ok {
		readerVersion = v.Version()
		if minRead := v.MinimumVersionCanRead(); typ.version < minRead {
			d.Fail(&errs.VersionError{TypeName: typ.fullName, Required: minRead, Actual: typ.version})
			return false
		}
	}
	if typ.minimumReaderVersion > readerVersion {
		d.Fail(&errs.VersionError{
			TypeName:     typ.fullName,
			Required:     typ.minimumReaderVersion,
			Actual:       readerVersion,
			ReaderTooOld: true,
		})

		return false
	}

	return true
}

// create instantiates typ: per-name overrides first, then the default
// factory, then the registry.
func (d *Deserializer) create(typ *SerializationType) Serializable {
	obj, found := d.instantiate(typ)
	if !found {
		d.Fail(errors.Wrapf(errs.ErrMissingFactory, "type %q", typ.fullName))
		return nil
	}
	if isNil(obj) {
		d.Fail(errors.Wrapf(errs.ErrNotSerializable, "factory for %q returned nil", typ.fullName))
		return nil
	}

	return obj
}

func (d *Deserializer) instantiate(typ *SerializationType) (Serializable, bool) {
	name := typ.fullName
	if name == trailerTypeName {
		return &trailer{}, true
	}
	if f, ok := d.cfg.factories[name]; ok {
		return f(), true
	}
	if df := d.cfg.defaultFactory; df != nil {
		if obj := df(typ); !isNil(obj) {
			return obj, true
		}
	}
	if f, ok := d.cfg.registry.Lookup(name); ok {
		return f(), true
	}

	return nil, false
}

// loadForwardTable reads the forward reference table through the suffix label.
func (d *Deserializer) loadForwardTable() {
	if d.tableLoaded || !d.ok() {
		return
	}
	d.tableLoaded = true

	saved := d.r.Current()
	defer d.r.Goto(saved)

	d.r.GotoSuffixLabel()
	tr, ok := d.ReadObject().(*trailer)
	if !d.ok() {
		return
	}
	if !ok {
		d.Fail(errs.NewFormatError(d.r.Length(), errors.Wrap(errs.ErrFormat, "suffix label does not point at a trailer")))
		return
	}

	d.r.Goto(tr.table)
	count := d.r.ReadInt32()
	if !d.ok() {
		return
	}
	if count < 0 || int64(count)*int64(d.r.LabelWidth()) > d.r.Length()-int64(d.r.Current()) {
		d.Fail(errs.NewFormatError(int64(tr.table), errors.Wrapf(errs.ErrFormat, "forward table of %d entries", count)))
		return
	}
	if known := d.forward.len(); known > int(count) {
		d.Fail(errs.NewFormatError(int64(tr.table),
			errors.Wrapf(errs.ErrInvalidForwardReference, "reference %d, table of %d entries", known-1, count)))

		return
	}
	d.forward.grow(int(count))
	for i := range count {
		l := d.r.ReadLabel()
		if l.IsValid() {
			d.Fail(d.forward.set(ForwardReference(i), l, int(count)))
		}
	}
}

// forwardLimit bounds the forward reference indices a stream can hold: the
// loaded table's count, or else what fits in the stream's bytes.
func (d *Deserializer) forwardLimit() int {
	if d.tableLoaded {
		return d.forward.len()
	}

	return int(d.r.Length() / minForwardDefinitionSize)
}

// ReadForwardReference reads a raw forward reference index.
func (d *Deserializer) ReadForwardReference() ForwardReference {
	return ForwardReference(d.r.ReadInt32())
}

// ResolveForwardReference returns the label ref was defined at, loading the
// forward reference table if necessary.
func (d *Deserializer) ResolveForwardReference(ref ForwardReference) stream.Label {
	if !d.ok() {
		return stream.InvalidLabel
	}
	l := d.forward.lookup(ref)
	if !l.IsValid() {
		d.loadForwardTable()
		l = d.forward.lookup(ref)
	}
	if !l.IsValid() && d.ok() {
		d.Fail(errors.Wrapf(errs.ErrForwardReferenceUnresolved, "reference %d", ref))
	}

	return l
}

// FindEndTag skips tagged fields the current callback did not read, up to and
// including the end tag of the current object.
func (d *Deserializer) FindEndTag() {
	for d.ok() {
		start := d.r.Current()
		switch tag := d.readTag(); tag {
		case format.TagEndObject:
			return
		case format.TagByte, format.TagInt16, format.TagInt32, format.TagInt64:
			size, _ := tag.ScalarSize()
			d.r.Skip(int64(size))
		case format.TagString:
			if n := d.r.ReadInt32(); n > 0 {
				d.r.Skip(int64(n))
			}
		case format.TagBlob:
			d.skipBlob()
		case format.TagPadding:
		case format.TagSkipRegion:
			end := d.ResolveForwardReference(d.ReadForwardReference())
			if d.ok() {
				if end <= start {
					d.Fail(errs.NewFormatError(int64(start), errors.Wrapf(errs.ErrInvalidLabel, "skip region ends at %s", end)))
					return
				}
				d.r.Goto(end)
			}
		default:
			if d.ok() {
				d.Fail(d.unexpected(start, tag))
			}

			return
		}
	}
}

func (d *Deserializer) skipBlob() {
	at := d.r.Current()
	n := d.r.ReadInt32()
	if n < 0 {
		d.Fail(errs.NewFormatError(int64(at), errors.Wrapf(errs.ErrNegativeLength, "blob length %d", n)))
		return
	}
	d.r.Skip(int64(n))
}

// peekTag consumes the next tag if it equals want. Otherwise the position is unchanged.
func (d *Deserializer) peekTag(want format.Tag) bool {
	if !d.ok() || int64(d.r.Current()) >= d.r.Length() {
		return false
	}
	if tag := format.Tag(d.r.ReadUint8()); tag == want {
		return true
	}
	d.r.Goto(d.r.Current().Add(-1))

	return false
}

func (d *Deserializer) ReadUint8() uint8 { return d.r.ReadUint8() }
func (d *Deserializer) ReadBool() bool { return d.r.ReadBool() }
func (d *Deserializer) ReadInt16() int16 { return d.r.ReadInt16() }
func (d *Deserializer) ReadUint16() uint16 { return d.r.ReadUint16() }
func (d *Deserializer) ReadInt32() int32 { return d.r.ReadInt32() }
func (d *Deserializer) ReadUint32() uint32 { return d.r.ReadUint32() }
func (d *Deserializer) ReadInt64() int64 { return d.r.ReadInt64() }
func (d *Deserializer) ReadUint64() uint64 { return d.r.ReadUint64() }
func (d *Deserializer) ReadFloat32() float32 { return d.r.ReadFloat32() }
func (d *Deserializer) ReadFloat64() float64 { return d.r.ReadFloat64() }
func (d *Deserializer) ReadString() string { return d.r.ReadString() }
func (d *Deserializer) ReadNullableString() *string { return d.r.ReadNullableString() }
func (d *Deserializer) ReadBytes(n int) []byte { return d.r.ReadBytes(n) }
func (d *Deserializer) ReadLabel() stream.Label { return d.r.ReadLabel() }

// TryReadTaggedByte reads a tagged byte field if one is next.
func (d *Deserializer) TryReadTaggedByte() (uint8, bool) {
	if !d.peekTag(format.TagByte) {
		return 0, false
	}

	return d.r.ReadUint8(), d.ok()
}

func (d *Deserializer) TryReadTaggedBool() (bool, bool) {
	if !d.peekTag(format.TagByte) {
		return false, false
	}

	return d.r.ReadBool(), d.ok()
}

func (d *Deserializer) TryReadTaggedInt16() (int16, bool) {
	if !d.peekTag(format.TagInt16) {
		return 0, false
	}

	return d.r.ReadInt16(), d.ok()
}

func (d *Deserializer) TryReadTaggedInt32() (int32, bool) {
	if !d.peekTag(format.TagInt32) {
		return 0, false
	}

	return d.r.ReadInt32(), d.ok()
}

func (d *Deserializer) TryReadTaggedInt64() (int64, bool) {
	if !d.peekTag(format.TagInt64) {
		return 0, false
	}

	return d.r.ReadInt64(), d.ok()
}

func (d *Deserializer) TryReadTaggedString() (string, bool) {
	if !d.peekTag(format.TagString) {
		return "", false
	}

	return d.r.ReadString(), d.ok()
}

// TryReadTaggedBlob reads a tagged blob if one is next.
func (d *Deserializer) TryReadTaggedBlob() ([]byte, bool) {
	if !d.peekTag(format.TagBlob) {
		return nil, false
	}
	n := d.r.ReadInt32()
	if n < 0 {
		d.Fail(errors.Wrapf(errs.ErrNegativeLength, "blob length %d", n))
		return nil, false
	}

	return d.r.ReadBytes(int(n)), d.ok()
}

// TryReadTaggedObject reads a tagged object field if one is next. The object may be nil.
func (d *Deserializer) TryReadTaggedObject() (Serializable, bool) {
	if !d.peekTag(format.TagSkipRegion) {
		return nil, false
	}
	d.ReadForwardReference()
	obj := d.ReadObject()

	return obj, d.ok()
}

// TryReadTaggedObject reads a tagged object field as T if one is next.
func TryReadTaggedObject[T Serializable](d *Deserializer) (T, bool) {
	var zero T
	obj, ok := d.TryReadTaggedObject()
	if !ok || obj == nil {
		return zero, ok
	}
	t, isT := obj.(T)
	if !isT {
		d.Fail(errors.Wrapf(errs.ErrTypeMismatch, "got %T, want %T", obj, zero))
		return zero, false
	}

	return t, true
}
