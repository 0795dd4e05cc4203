package serial

import (
	"fmt"

	"github.com/arloliu/fastserial/stream"
)

const (
	serializationTypeName = "fastserial.SerializationType"
	trailerTypeName       = "fastserial.Trailer"
)

// SerializationType describes one run-time type in a stream.
//
// Descriptors are ordinary interned objects: the first object of a type
// writes the descriptor in place and later objects refer back to it. The
// descriptor of SerializationType itself is written as a null reference.
type SerializationType struct {
	version              int32
	minimumReaderVersion int32
	fullName             string
}

var _ Serializable = (*SerializationType)(nil)

// NewSerializationType creates a descriptor.
func NewSerializationType(fullName string, version, minimumReaderVersion int32) *SerializationType {
	return &SerializationType{
		version:              version,
		minimumReaderVersion: minimumReaderVersion,
		fullName:             fullName,
	}
}

// FullName returns the registered type name.
func (t *SerializationType) FullName() string {
	return t.fullName
}

// Version returns the version the stream was written with.
func (t *SerializationType) Version() int32 {
	return t.version
}

// MinimumReaderVersion returns the oldest reader version able to read this type.
func (t *SerializationType) MinimumReaderVersion() int32 {
	return t.minimumReaderVersion
}

func (t *SerializationType) String() string {
	return fmt.Sprintf("%s(v%d, reader>=%d)", t.fullName, t.version, t.minimumReaderVersion)
}

func (t *SerializationType) TypeName() string {
	return serializationTypeName
}

func (t *SerializationType) Serialize(s *Serializer) {
	s.WriteInt32(t.version)
	s.WriteInt32(t.minimumReaderVersion)
	s.WriteString(t.fullName)
}

func (t *SerializationType) Deserialize(d *Deserializer) {
	t.version = d.ReadInt32()
	t.minimumReaderVersion = d.ReadInt32()
	t.fullName = d.ReadString()
}

// trailer is the private object at the end of a stream that locates the forward reference table.
type trailer struct {
	table stream.Label
}

func (t *trailer) TypeName() string {
	return trailerTypeName
}

func (t *trailer) Serialize(s *Serializer) {
	s.WriteLabel(t.table)
}

func (t *trailer) Deserialize(d *Deserializer) {
	t.table = d.ReadLabel()
}
