// Package fastserial is a binary object-graph serialization framework.
//
// A graph of objects implementing serial.Serializable is written to a byte
// stream once per object: shared and cyclic references are preserved, types
// are described in the stream itself, and later versions of a type can add
// fields that older readers skip. Reading is lazy by default and jumps
// through the stream as references are followed.
//
// # Core Features
//
//   - Identity-preserving object graphs (shared and cyclic references)
//   - Forward references resolved through a trailer located by a suffix label
//   - Forward and backward compatible type evolution with tagged fields
//   - Memory, segmented, io.Writer, memory-mapped and block-cached streams
//   - 32-bit or 64-bit stream labels
//   - A built-in LZ compressor plus Zstd, S2 and LZ4 for packed payloads
//   - xxHash64 checksums on packed payloads
//
// # Basic Usage
//
// Defining and registering a type:
//
//	type Person struct {
//	    Name   string
//	    Friend *Person
//	}
//
//	func (p *Person) TypeName() string { return "example.Person" }
//
//	func (p *Person) Serialize(s *serial.Serializer) {
//	    s.WriteString(p.Name)
//	    s.Write(p.Friend)
//	}
//
//	func (p *Person) Deserialize(d *serial.Deserializer) {
//	    p.Name = d.ReadString()
//	    p.Friend = serial.ReadAs[*Person](d)
//	}
//
//	serial.MustRegister("example.Person", func() serial.Serializable { return &Person{} })
//
// Writing and reading a graph:
//
//	alice := &Person{Name: "alice"}
//	alice.Friend = &Person{Name: "bob", Friend: alice}
//
//	data, _ := fastserial.Marshal(alice)
//	obj, _ := fastserial.Unmarshal(data)
//	fmt.Println(obj.(*Person).Friend.Friend == obj) // true
//
// Compressed payloads:
//
//	packed, _ := fastserial.MarshalCompressed(alice,
//	    fastserial.WithCompression(format.CompressionZstd))
//	obj, _ = fastserial.Unmarshal(packed) // packed input is detected
//
// # Package Structure
//
// This package provides convenient top-level wrappers. For streaming, file
// access, lazy deferred regions and fine-grained control, use the serial and
// stream packages directly.
package fastserial

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/compress"
	"github.com/arloliu/fastserial/endian"
	"github.com/arloliu/fastserial/errs"
	"github.com/arloliu/fastserial/format"
	"github.com/arloliu/fastserial/internal/hash"
	"github.com/arloliu/fastserial/serial"
	"github.com/arloliu/fastserial/stream"
)

// PackMagic opens every packed payload.
const PackMagic = "FSZ\x01"

// MaxUnpackedSize bounds the raw size a packed header may declare.
const MaxUnpackedSize = 1 << 32

// packHeaderMin is magic, compression byte, 1-byte uvarint and checksum.
const packHeaderMin = len(PackMagic) + 1 + 1 + 8

// Marshal serializes the graph reachable from entry.
//
// Parameters:
//   - entry: root of the object graph
//   - opts: WithLabelWidth, WithStreamOptions and WithSerialOptions apply
//
// Returns:
//   - []byte: the serialized stream
//   - error: an option error or the first serialization error
func Marshal(entry serial.Serializable, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	w, err := stream.NewMemoryWriter(cfg.streamOptions()...)
	if err != nil {
		return nil, err
	}
	defer w.Release()

	if err := serial.Serialize(w, entry, cfg.serialOpts...); err != nil {
		return nil, err
	}

	return bytes.Clone(w.Bytes()), nil
}

// Unmarshal deserializes the entry object of data. Packed payloads produced by
// Pack or MarshalCompressed are unpacked first.
//
// The returned graph does not alias data.
func Unmarshal(data []byte, opts ...Option) (serial.Serializable, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	if IsPacked(data) {
		if data, err = unpack(data); err != nil {
			return nil, err
		}
	}

	return unmarshal(data, cfg)
}

func unmarshal(data []byte, cfg *config) (serial.Serializable, error) {
	r, err := stream.NewMemoryReader(data, cfg.streamOptions()...)
	if err != nil {
		return nil, err
	}

	return serial.Deserialize(r, cfg.serialOpts...)
}

// MarshalCompressed serializes entry and packs the result.
// WithCompression and WithCompressionLevel select the codec.
func MarshalCompressed(entry serial.Serializable, opts ...Option) ([]byte, error) {
	raw, err := Marshal(entry, opts...)
	if err != nil {
		return nil, err
	}

	return Pack(raw, opts...)
}

// UnmarshalCompressed unpacks data and deserializes its entry object.
// Unlike Unmarshal it rejects input that is not packed.
func UnmarshalCompressed(data []byte, opts ...Option) (serial.Serializable, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	raw, err := unpack(data)
	if err != nil {
		return nil, err
	}

	return unmarshal(raw, cfg)
}

// IsPacked reports whether data starts with the packed payload magic.
func IsPacked(data []byte) bool {
	return len(data) >= len(PackMagic) && string(data[:len(PackMagic)]) == PackMagic
}

// Pack compresses payload into a self-describing envelope:
//
//	magic "FSZ\x01" | compression byte | uvarint raw size | xxHash64(raw) LE | compressed bytes
//
// Parameters:
//   - payload: bytes to pack, usually a serialized stream
//   - opts: WithCompression and WithCompressionLevel apply
//
// Returns:
//   - []byte: the packed envelope
//   - error: an option error or a codec failure
func Pack(payload []byte, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	codec, err := compress.CreateCodec(cfg.compression, cfg.level)
	if err != nil {
		return nil, err
	}
	compressed, err := codec.Compress(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "pack with %s", cfg.compression)
	}

	engine := endian.GetLittleEndianEngine()
	out := make([]byte, 0, packHeaderMin+binary.MaxVarintLen64+len(compressed))
	out = append(out, PackMagic...)
	out = append(out, byte(cfg.compression))
	out = binary.AppendUvarint(out, uint64(len(payload)))
	out = engine.AppendUint64(out, hash.Checksum(payload))
	out = append(out, compressed...)

	return out, nil
}

// Unpack restores the payload of a packed envelope and verifies its checksum.
func Unpack(packed []byte) ([]byte, error) {
	return unpack(packed)
}

type packHeader struct {
	compression format.CompressionType
	rawSize     uint64
	checksum    uint64
	payload     []byte
}

func parsePackHeader(packed []byte) (packHeader, error) {
	var h packHeader
	if len(packed) < packHeaderMin || !IsPacked(packed) {
		return h, errors.Wrap(errs.ErrBadEnvelope, "missing magic")
	}

	pos := len(PackMagic)
	h.compression = format.CompressionType(packed[pos])
	pos++

	size, n := binary.Uvarint(packed[pos:])
	if n <= 0 {
		return h, errors.Wrap(errs.ErrBadEnvelope, "raw size")
	}
	if size > MaxUnpackedSize {
		return h, errors.Wrapf(errs.ErrCapacityExceeded, "declared raw size %d", size)
	}
	h.rawSize = size
	pos += n

	if len(packed)-pos < 8 {
		return h, errors.Wrap(errs.ErrBadEnvelope, "checksum")
	}
	h.checksum = endian.GetLittleEndianEngine().Uint64(packed[pos:])
	h.payload = packed[pos+8:]

	return h, nil
}

func unpack(packed []byte) ([]byte, error) {
	h, err := parsePackHeader(packed)
	if err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(h.compression)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrBadEnvelope, "compression byte %#x", byte(h.compression))
	}
	raw, err := codec.Decompress(h.payload)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", h.compression)
	}
	if uint64(len(raw)) != h.rawSize {
		return nil, errors.Wrapf(errs.ErrSizeMismatch, "unpacked %d bytes, header says %d", len(raw), h.rawSize)
	}
	if hash.Checksum(raw) != h.checksum {
		return nil, errs.ErrChecksumMismatch
	}

	return raw, nil
}

// Inspect reports the codec and sizes of a packed envelope without decompressing it.
func Inspect(packed []byte) (compress.CompressionStats, error) {
	h, err := parsePackHeader(packed)
	if err != nil {
		return compress.CompressionStats{}, err
	}

	return compress.CompressionStats{
		Algorithm:      h.compression,
		OriginalSize:   int64(h.rawSize),
		CompressedSize: int64(len(h.payload)),
	}, nil
}

// WriteFile serializes entry into the file at path, creating or truncating it.
// The stream is written through a buffered stream.IOWriter.
func WriteFile(path string, entry serial.Serializable, opts ...Option) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	w, err := stream.NewIOWriter(f, cfg.streamOptions()...)
	if err != nil {
		_ = f.Close()
		return err
	}

	return serial.Serialize(w, entry, cfg.serialOpts...)
}

// ReadFile deserializes the entry object of the stream file at path.
// The file is memory-mapped where the platform supports it.
func ReadFile(path string, opts ...Option) (serial.Serializable, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	r, err := stream.OpenMappedFile(path, cfg.streamOptions()...)
	if err != nil {
		return nil, err
	}

	return serial.Deserialize(r, cfg.serialOpts...)
}
