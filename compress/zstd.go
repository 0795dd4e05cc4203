package compress

// ZstdCompressor provides Zstandard compression for serialized payloads.
//
// It gives the best ratio of the built-in codecs and suits archived or
// network-bound object graphs, where payloads are written once and read rarely.
//
// Performance characteristics:
//   - Compression: ~5-20 ns/byte
//   - Decompression: ~2-5 ns/byte
//   - Memory usage: pooled encoders and decoders
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(payload)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
