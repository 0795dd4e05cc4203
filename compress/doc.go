// Package compress provides the byte-payload codecs used by fastserial envelopes.
//
// A serialized object graph is a flat byte stream, so compression is an
// orthogonal transform applied to the whole payload before it is stored or
// after it is loaded. The serializer never depends on it.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
//   - None (format.CompressionNone): returns data unchanged
//   - Zstd (format.CompressionZstd): best ratio, moderate speed
//   - S2 (format.CompressionS2): balanced ratio and speed
//   - LZ4 (format.CompressionLZ4): fastest decompression
//   - LZ (format.CompressionLZ): the built-in hash-chain compressor
//
// # The LZ compressor
//
// CompressLZ and DecompressLZ are a stateless function pair. The encoder finds
// matches with a hash chain over 4-byte prefixes inside a 128KiB window; the
// chain depth grows with the level (1-9), and levels 5 and above defer a match
// by one byte when the next position yields a longer one.
//
// Each sequence starts with a token byte:
//
//	bit 7-5  literal run length, 7 means a LEB128 extension follows the token
//	bit 4-1  match length - 4, 15 means a LEB128 extension follows the literals
//	bit 0    bit 16 of the match distance
//
// The token is followed by the literal bytes, the optional match length
// extension and a 2-byte little-endian distance. The last sequence may end
// right after its literals.
//
// The decoder checks both cursors before every copy. Malformed input yields
// DecompressFailed and errs.ErrOverrun; it never reads or writes out of bounds.
//
//	compressed, err := compress.CompressLZ(data, 5)
//	original, err := compress.DecompressLZ(compressed, len(data))
//
// LZCompressor wraps the pair as a Codec by prefixing the payload with its
// uvarint-encoded decompressed size.
//
// # Build tags
//
// Zstd uses the pure-Go github.com/klauspost/compress/zstd by default. Building
// with the gozstd tag (requires cgo) switches to github.com/valyala/gozstd.
//
// # Thread Safety
//
// All codecs in this package are stateless values and safe for concurrent use.
package compress
