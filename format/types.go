package format

type (
	// Tag is the single-byte discriminator that prefixes every element of a serialized object graph.
	Tag uint8
	// LabelWidth is the on-disk width in bytes of an encoded stream label.
	LabelWidth uint8
	// CompressionType identifies the codec applied to a packed payload.
	CompressionType uint8
)

const (
	TagError              Tag = 0  // TagError is reserved and never written.
	TagNullReference      Tag = 1  // TagNullReference encodes a nil object reference.
	TagObjectReference    Tag = 2  // TagObjectReference is followed by the label of an already written object.
	TagForwardReference   Tag = 3  // TagForwardReference is followed by a forward index and the object's type.
	TagBeginObject        Tag = 4  // TagBeginObject starts an interned object definition.
	TagBeginPrivateObject Tag = 5  // TagBeginPrivateObject starts an object definition that is never aliased.
	TagEndObject          Tag = 6  // TagEndObject closes a definition; unbalanced at top level it ends the graph.
	TagForwardDefinition  Tag = 7  // TagForwardDefinition precedes the definition of a deferred object.
	TagByte               Tag = 8  // TagByte prefixes a tagged 1-byte scalar.
	TagInt16              Tag = 9  // TagInt16 prefixes a tagged 2-byte scalar.
	TagInt32              Tag = 10 // TagInt32 prefixes a tagged 4-byte scalar.
	TagInt64              Tag = 11 // TagInt64 prefixes a tagged 8-byte scalar.
	TagSkipRegion         Tag = 12 // TagSkipRegion wraps a tagged object behind a forward reference to its end.
	TagString             Tag = 13 // TagString prefixes a tagged length-prefixed string.
	TagBlob               Tag = 14 // TagBlob prefixes an opaque int32-length byte region.
	TagPadding            Tag = 15 // TagPadding is a single filler byte.
	TagLimit              Tag = 16 // TagLimit is the exclusive upper bound of valid tags.
)

const (
	LabelWidth32 LabelWidth = 4 // LabelWidth32 encodes labels as uint32 (default).
	LabelWidth64 LabelWidth = 8 // LabelWidth64 encodes labels as uint64.
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionLZ   CompressionType = 0x5 // CompressionLZ represents the built-in hash-chain LZ compressor.
)

var tagNames = [...]string{
	TagError:              "Error",
	TagNullReference:      "NullReference",
	TagObjectReference:    "ObjectReference",
	TagForwardReference:   "ForwardReference",
	TagBeginObject:        "BeginObject",
	TagBeginPrivateObject: "BeginPrivateObject",
	TagEndObject:          "EndObject",
	TagForwardDefinition:  "ForwardDefinition",
	TagByte:               "Byte",
	TagInt16:              "Int16",
	TagInt32:              "Int32",
	TagInt64:              "Int64",
	TagSkipRegion:         "SkipRegion",
	TagString:             "String",
	TagBlob:               "Blob",
	TagPadding:            "Padding",
	TagLimit:              "Limit",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}

	return "Unknown"
}

// IsValid reports whether t may appear in a stream.
func (t Tag) IsValid() bool {
	return t > TagError && t < TagLimit
}

// ScalarSize returns the payload size of a fixed-width tagged scalar.
// The second result is false for tags that are not fixed-width scalars.
func (t Tag) ScalarSize() (int, bool) {
	switch t { //nolint: exhaustive
	case TagByte:
		return 1, true
	case TagInt16:
		return 2, true
	case TagInt32:
		return 4, true
	case TagInt64:
		return 8, true
	default:
		return 0, false
	}
}

// IsBeginObject reports whether t starts an object definition.
func (t Tag) IsBeginObject() bool {
	return t == TagBeginObject || t == TagBeginPrivateObject
}

func (w LabelWidth) String() string {
	switch w {
	case LabelWidth32:
		return "32-bit"
	case LabelWidth64:
		return "64-bit"
	default:
		return "Unknown"
	}
}

// IsValid reports whether w is a supported label width.
func (w LabelWidth) IsValid() bool {
	return w == LabelWidth32 || w == LabelWidth64
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionLZ:
		return "LZ"
	default:
		return "Unknown"
	}
}
