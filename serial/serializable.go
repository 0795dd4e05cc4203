package serial

import (
	"reflect"
)

// Serializable is implemented by every object that can be part of a graph.
type Serializable interface {
	// TypeName returns the name the type is registered under. It must be
	// stable across program versions.
	TypeName() string
	// Serialize writes the object's fields.
	Serialize(s *Serializer)
	// Deserialize reads the fields written by Serialize.
	Deserialize(d *Deserializer)
}

// Versioned is implemented by types whose serialized layout changes over time.
// Types that do not implement it are version 0 and always compatible.
type Versioned interface {
	// Version is the format version this program writes.
	Version() int32
	// MinimumVersionCanRead is the oldest written version this program can read.
	MinimumVersionCanRead() int32
	// MinimumReaderVersion is the oldest reader version that can read what this program writes.
	MinimumReaderVersion() int32
}

// Factory creates an empty instance of a registered type.
type Factory func() Serializable

func isNil(obj Serializable) bool {
	if obj == nil {
		return true
	}

	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func versionsOf(obj Serializable) (version, minReader int32) {
	if v, ok := obj.(Versioned); ok {
		return v.Version(), v.MinimumReaderVersion()
	}

	return 0, 0
}
