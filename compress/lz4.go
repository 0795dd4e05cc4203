package compress

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4/v4"
)

// lz4MaxDecodedSize bounds the adaptive output buffer of LZ4Compressor.Decompress.
const lz4MaxDecodedSize = 128 * 1024 * 1024

// lz4CompressorPool pools lz4.Compressor instances; each holds a reusable hash table.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor compresses payloads as a single raw LZ4 block.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress compresses the input data using LZ4 block compression.
//
// Parameters:
//   - data: Input data to compress
//
// Returns:
//   - []byte: Compressed data (nil if input is empty)
//   - error: Compression error if any
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 compression failed")
	}

	return dst[:n], nil
}

// Decompress decompresses an LZ4 block whose decoded size is unknown.
//
// The output buffer starts at 4x the compressed size and doubles on
// ErrInvalidSourceShortBuffer, up to 128MiB.
//
// Returns:
//   - []byte: Decompressed data (nil if input is empty)
//   - error: decompression error, or ErrInvalidSourceShortBuffer past the size limit
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	bufSize := min(len(data)*4, lz4MaxDecodedSize)
	for bufSize <= lz4MaxDecodedSize {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) || bufSize >= lz4MaxDecodedSize {
			return nil, errors.Wrap(err, "lz4 decompression failed")
		}
		bufSize = min(bufSize*2, lz4MaxDecodedSize)
	}

	return nil, lz4.ErrInvalidSourceShortBuffer
}
