package compress

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"

	"github.com/arloliu/fastserial/errs"
)

const (
	// LZMinLevel and LZMaxLevel bound the LZ compression level.
	LZMinLevel = 1
	LZMaxLevel = 9
	// DefaultLZLevel balances chain depth against speed and enables lazy matching.
	DefaultLZLevel = 5

	// DecompressFailed is the byte count DecompressLZTo reports for malformed input.
	DecompressFailed = -1

	// LZMinMatch is the shortest match the encoder emits.
	LZMinMatch = 4
	// LZWindowSize is the maximum backward distance plus one.
	LZWindowSize = 1 << 17

	lzWindowMask  = LZWindowSize - 1
	lzMaxDistance = LZWindowSize - 1
	lzMaxHashLog  = 19
	lzMinHashLog  = 10
	lzLazyLevel   = 5

	// A minimum-length match after a literal run longer than this costs more than it saves.
	lzLongLiteralRun = 7 + 128

	lzLiteralField  = 7
	lzMatchField    = 15
	lzMaxLengthBits = 31

	// lzMaxDecodedSize bounds the size prefix LZCompressor.Decompress accepts.
	lzMaxDecodedSize = 1 << 30
)

// lzChainDepth is the number of hash chain candidates probed per level.
var lzChainDepth = [LZMaxLevel + 1]int{0, 1, 2, 4, 8, 16, 32, 64, 256, 4096}

// lzMatcher is the hash-chain match finder. head maps a 4-byte prefix hash to
// the newest position with that hash; prev links each window slot to the
// previous position with the same hash.
type lzMatcher struct {
	head    []int32
	prev    []int32
	hashLog uint
	depth   int
}

func newLZMatcher(srcLen int, level int) *lzMatcher {
	// Small inputs get a smaller table; the format is unchanged but matches may differ.
	hashLog := uint(bits.Len(uint(srcLen))) + 1
	hashLog = max(lzMinHashLog, min(hashLog, lzMaxHashLog))

	m := &lzMatcher{
		head:    make([]int32, 1<<hashLog),
		prev:    make([]int32, min(srcLen, LZWindowSize)),
		hashLog: hashLog,
		depth:   lzChainDepth[level],
	}
	for i := range m.head {
		m.head[i] = -1
	}

	return m
}

func (m *lzMatcher) hash(v uint32) uint32 {
	return (v * 2654435761) >> (32 - m.hashLog)
}

func (m *lzMatcher) insert(src []byte, pos int) {
	if pos+LZMinMatch > len(src) {
		return
	}
	h := m.hash(binary.LittleEndian.Uint32(src[pos:]))
	m.prev[pos&lzWindowMask] = m.head[h]
	m.head[h] = int32(pos)
}

// longest returns the longest match for pos among the chained candidates.
func (m *lzMatcher) longest(src []byte, pos int) (length, distance int) {
	if pos+LZMinMatch > len(src) {
		return 0, 0
	}
	prefix := binary.LittleEndian.Uint32(src[pos:])
	limit := len(src) - pos
	cand := m.head[m.hash(prefix)]

	for depth := m.depth; cand >= 0 && depth > 0; depth-- {
		dist := pos - int(cand)
		if dist > lzMaxDistance {
			break
		}
		if binary.LittleEndian.Uint32(src[cand:]) == prefix {
			n := LZMinMatch + commonPrefix(src[int(cand)+LZMinMatch:], src[pos+LZMinMatch:])
			if n > length {
				length, distance = n, dist
				if n == limit {
					break
				}
			}
		}
		cand = m.prev[int(cand)&lzWindowMask]
	}

	return length, distance
}

// commonPrefix returns the number of leading bytes a and b share, bounded by len(b).
func commonPrefix(a, b []byte) int {
	n := 0
	for n+8 <= len(b) && n+8 <= len(a) {
		if x := binary.LittleEndian.Uint64(a[n:]) ^ binary.LittleEndian.Uint64(b[n:]); x != 0 {
			return n + bits.TrailingZeros64(x)>>3
		}
		n += 8
	}
	for n < len(b) && n < len(a) && a[n] == b[n] {
		n++
	}

	return n
}

// CompressLZ compresses src with the built-in hash-chain LZ compressor.
//
// Each call allocates its own match tables, so concurrent calls are safe.
// The hash table holds 2^19 heads for inputs of 128KiB and more and shrinks
// with the input down to 2^10. Any table size decodes with DecompressLZ, but
// the matches found, and so the compressed bytes, can differ from a
// compressor that always uses the full table.
//
// Parameters:
//   - src: data to compress
//   - level: 1 (fastest) to 9 (deepest search); levels >= 5 use lazy matching
//
// Returns:
//   - []byte: compressed stream (empty for empty input)
//   - error: errs.ErrInvalidLevel for a level outside 1-9
func CompressLZ(src []byte, level int) ([]byte, error) {
	if level < LZMinLevel || level > LZMaxLevel {
		return nil, errors.Wrapf(errs.ErrInvalidLevel, "level %d", level)
	}
	if len(src) == 0 {
		return []byte{}, nil
	}

	m := newLZMatcher(len(src), level)
	lazy := level >= lzLazyLevel
	dst := make([]byte, 0, len(src)+len(src)/64+16)

	anchor, pos := 0, 0
	last := len(src) - LZMinMatch
	for pos <= last {
		length, dist := m.longest(src, pos)
		if length == LZMinMatch && pos-anchor > lzLongLiteralRun {
			length = 0
		}
		if length < LZMinMatch {
			m.insert(src, pos)
			pos++

			continue
		}

		m.insert(src, pos)
		if lazy && pos+1 <= last {
			if next, _ := m.longest(src, pos+1); next > length {
				pos++
				continue
			}
		}

		dst = appendLZSequence(dst, src[anchor:pos], length, dist)
		end := pos + length
		for p := pos + 1; p < end && p <= last; p++ {
			m.insert(src, p)
		}
		pos, anchor = end, end
	}

	if anchor < len(src) {
		dst = appendLZLiterals(dst, src[anchor:])
	}

	return dst, nil
}

// appendLZSequence appends a token, literals, and a match of length bytes at distance dist.
func appendLZSequence(dst, literals []byte, length, dist int) []byte {
	matchField := min(length-LZMinMatch, lzMatchField)
	token := byte(min(len(literals), lzLiteralField)<<5) | byte(matchField<<1) | byte(dist>>16)

	dst = append(dst, token)
	if len(literals) >= lzLiteralField {
		dst = appendLZLength(dst, len(literals)-lzLiteralField)
	}
	dst = append(dst, literals...)
	if matchField == lzMatchField {
		dst = appendLZLength(dst, length-LZMinMatch-lzMatchField)
	}

	return append(dst, byte(dist), byte(dist>>8))
}

// appendLZLiterals appends the final, match-less sequence.
func appendLZLiterals(dst, literals []byte) []byte {
	dst = append(dst, byte(min(len(literals), lzLiteralField)<<5))
	if len(literals) >= lzLiteralField {
		dst = appendLZLength(dst, len(literals)-lzLiteralField)
	}

	return append(dst, literals...)
}

// appendLZLength appends n in 7-bit groups, least significant first, with 0x80 as the continuation bit.
func appendLZLength(dst []byte, n int) []byte {
	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}

	return append(dst, byte(n))
}

// readLZLength decodes an appendLZLength value from src.
// ok is false if src ends early or the value does not fit in 31 bits.
func readLZLength(src []byte) (n, size int, ok bool) {
	var shift uint
	for size < len(src) {
		b := src[size]
		size++
		if shift >= lzMaxLengthBits {
			return 0, 0, false
		}
		n |= int(b&0x7F) << shift
		if n > math.MaxInt32 {
			return 0, 0, false
		}
		if b < 0x80 {
			return n, size, true
		}
		shift += 7
	}

	return 0, 0, false
}

// DecompressLZ decompresses src, which must expand to exactly size bytes.
//
// Returns:
//   - []byte: decompressed data
//   - error: errs.ErrOverrun for malformed input, errs.ErrSizeMismatch if
//     the stream decodes to fewer than size bytes
func DecompressLZ(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(errs.ErrNegativeLength, "decompressed size %d", size)
	}

	dst := make([]byte, size)
	n, err := DecompressLZTo(dst, src)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, errors.Wrapf(errs.ErrSizeMismatch, "decoded %d bytes, expected %d", n, size)
	}

	return dst, nil
}

// DecompressLZTo decompresses src into dst and returns the number of bytes written.
//
// Every read from src and every write to dst is bounds checked first; on
// malformed input it returns DecompressFailed and an error matching
// errs.ErrOverrun. dst may hold partial output in that case.
func DecompressLZTo(dst, src []byte) (int, error) {
	ip, op := 0, 0
	for ip < len(src) {
		token := src[ip]
		ip++

		lit := int(token >> 5)
		if lit == lzLiteralField {
			ext, n, ok := readLZLength(src[ip:])
			if !ok {
				return lzOverrun("literal length", ip)
			}
			ip += n
			lit += ext
		}
		if lit > len(src)-ip || lit > len(dst)-op {
			return lzOverrun("literal run", ip)
		}
		op += copy(dst[op:], src[ip:ip+lit])
		ip += lit
		if ip == len(src) {
			break
		}

		length := int(token>>1) & lzMatchField
		if length == lzMatchField {
			ext, n, ok := readLZLength(src[ip:])
			if !ok {
				return lzOverrun("match length", ip)
			}
			ip += n
			length += ext
		}
		length += LZMinMatch

		if len(src)-ip < 2 {
			return lzOverrun("match distance", ip)
		}
		dist := int(src[ip]) | int(src[ip+1])<<8 | int(token&1)<<16
		ip += 2
		if dist == 0 || dist > op {
			return lzOverrun("match distance", ip)
		}
		if length > len(dst)-op {
			return lzOverrun("match length", ip)
		}

		from := op - dist
		if dist >= length {
			op += copy(dst[op:op+length], dst[from:from+length])
			continue
		}
		// Overlapping match repeats the last dist bytes.
		for i := range length {
			dst[op+i] = dst[from+i]
		}
		op += length
	}

	return op, nil
}

func lzOverrun(what string, offset int) (int, error) {
	return DecompressFailed, errors.Wrapf(errs.ErrOverrun, "%s at input offset %d", what, offset)
}

// LZCompressor is a Codec over CompressLZ. Its output is the uvarint
// decompressed size followed by the LZ stream.
type LZCompressor struct {
	level int
}

var _ Codec = (*LZCompressor)(nil)

// NewLZCompressor creates an LZ codec compressing at the given level (1-9).
func NewLZCompressor(level int) (LZCompressor, error) {
	if level < LZMinLevel || level > LZMaxLevel {
		return LZCompressor{}, errors.Wrapf(errs.ErrInvalidLevel, "level %d", level)
	}

	return LZCompressor{level: level}, nil
}

// Level returns the compression level.
func (c LZCompressor) Level() int {
	return c.level
}

// Compress compresses data and prefixes it with its length.
func (c LZCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	body, err := CompressLZ(data, c.level)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, binary.MaxVarintLen64+len(body))
	out = binary.AppendUvarint(out, uint64(len(data)))

	return append(out, body...), nil
}

// Decompress reads the length prefix and decompresses the rest.
func (c LZCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	size, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, errors.Wrap(errs.ErrOverrun, "lz size prefix")
	}
	if size > lzMaxDecodedSize {
		return nil, errors.Wrapf(errs.ErrCapacityExceeded, "lz payload of %d bytes", size)
	}

	return DecompressLZ(data[n:], int(size))
}
