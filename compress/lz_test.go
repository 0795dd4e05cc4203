package compress

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fastserial/errs"
)

func lzInputs(n int, rng *rand.Rand) map[string][]byte {
	distinct := make([]byte, n)
	for i := range distinct {
		distinct[i] = byte(i)
	}
	lowEntropy := make([]byte, n)
	for i := range lowEntropy {
		lowEntropy[i] = byte(rng.IntN(4))
	}
	random := make([]byte, n)
	for i := range random {
		random[i] = byte(rng.IntN(256))
	}

	return map[string][]byte{
		"zeros":       make([]byte, n),
		"distinct":    distinct,
		"repetitive":  bytes.Repeat([]byte("abc"), n)[:n],
		"low_entropy": lowEntropy,
		"random":      random,
	}
}

func TestLZ_RoundTripAllSizesAndLevels(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for n := 0; n <= 300; n++ {
		for name, data := range lzInputs(n, rng) {
			for level := LZMinLevel; level <= LZMaxLevel; level++ {
				compressed, err := CompressLZ(data, level)
				require.NoError(t, err)

				decompressed, err := DecompressLZ(compressed, len(data))
				require.NoError(t, err, "%s n=%d level=%d", name, n, level)
				require.Equal(t, data, decompressed, "%s n=%d level=%d", name, n, level)
			}
		}
	}
}

func TestLZ_RoundTripLarge(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	block := make([]byte, 1000)
	for i := range block {
		block[i] = byte(rng.IntN(256))
	}
	// Beyond the window the second copy of far must be stored as literals.
	far := make([]byte, LZWindowSize+10_000)
	for i := range far {
		far[i] = byte(rng.IntN(256))
	}
	far = append(far, far[:5000]...)

	inputs := map[string][]byte{
		"repeated_block": bytes.Repeat(block, 150),
		"zeros_1mb":      make([]byte, 1<<20),
		"beyond_window":  far,
	}

	for name, data := range inputs {
		for _, level := range []int{1, 5, 9} {
			compressed, err := CompressLZ(data, level)
			require.NoError(t, err)

			decompressed, err := DecompressLZ(compressed, len(data))
			require.NoError(t, err, "%s level=%d", name, level)
			require.True(t, bytes.Equal(data, decompressed), "%s level=%d", name, level)

			if name != "beyond_window" {
				require.Less(t, len(compressed), len(data)/10, "%s level=%d", name, level)
			}
		}
	}
}

func TestLZ_HashTableSizing(t *testing.T) {
	for _, tc := range []struct {
		srcLen int
		heads  int
	}{
		{0, 1 << lzMinHashLog},
		{100, 1 << lzMinHashLog},
		{4096, 1 << 14},
		{1 << 17, 1 << lzMaxHashLog},
		{1 << 22, 1 << lzMaxHashLog},
	} {
		require.Len(t, newLZMatcher(tc.srcLen, 1).head, tc.heads, "srcLen %d", tc.srcLen)
	}

	// Inputs on both sides of the sizing boundary decode with the same decoder.
	rng := rand.New(rand.NewPCG(7, 7))
	for _, n := range []int{1<<17 - 1, 1 << 17} {
		src := make([]byte, n)
		for i := range src {
			src[i] = byte(rng.IntN(16))
		}
		packed, err := CompressLZ(src, 6)
		require.NoError(t, err)
		got, err := DecompressLZ(packed, len(src))
		require.NoError(t, err)
		require.True(t, bytes.Equal(src, got))
	}
}

func TestLZ_TokenFormat(t *testing.T) {
	// Literal-only stream: token with literal length 3 and no match.
	compressed, err := CompressLZ([]byte("xyz"), 1)
	require.NoError(t, err)
	require.Equal(t, []byte{3 << 5, 'x', 'y', 'z'}, compressed)

	// 4 literals, then a 20-byte match at distance 4, then nothing.
	data := bytes.Repeat([]byte("abcd"), 6)
	compressed, err = CompressLZ(data, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{4<<5 | 15<<1, 'a', 'b', 'c', 'd', 1, 4, 0}, compressed)
}

func TestLZ_LongLiteralRunExtension(t *testing.T) {
	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i)
	}
	compressed, err := CompressLZ(data, 9)
	require.NoError(t, err)
	// 7 in the token, then 193 as LEB128 (0xC1 0x01).
	require.Equal(t, []byte{7 << 5, 0xC1, 0x01}, compressed[:3])
	require.Len(t, compressed, 203)
}

func TestLZ_InvalidLevel(t *testing.T) {
	for _, level := range []int{-1, 0, 10} {
		_, err := CompressLZ([]byte("data"), level)
		require.ErrorIs(t, err, errs.ErrInvalidLevel)

		_, err = NewLZCompressor(level)
		require.ErrorIs(t, err, errs.ErrInvalidLevel)
	}
}

func TestLZ_EmptyInput(t *testing.T) {
	compressed, err := CompressLZ(nil, 5)
	require.NoError(t, err)
	require.Empty(t, compressed)

	out, err := DecompressLZ(compressed, 0)
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = DecompressLZ(nil, -1)
	require.ErrorIs(t, err, errs.ErrNegativeLength)
}

func TestLZ_TruncatedInputFails(t *testing.T) {
	data := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 50)
	compressed, err := CompressLZ(data, 6)
	require.NoError(t, err)

	for cut := 0; cut < len(compressed); cut++ {
		_, err := DecompressLZ(compressed[:cut], len(data))
		require.Error(t, err, "cut=%d", cut)
	}
}

func TestLZ_CorruptInputNeverOverruns(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	data := bytes.Repeat([]byte("serialized object graph payload "), 40)
	compressed, err := CompressLZ(data, 5)
	require.NoError(t, err)

	for range 2000 {
		corrupt := bytes.Clone(compressed)
		for range 1 + rng.IntN(4) {
			corrupt[rng.IntN(len(corrupt))] = byte(rng.IntN(256))
		}

		// A guard region after the output detects writes past len(dst).
		backing := make([]byte, len(data)+64)
		for i := range backing {
			backing[i] = 0xEE
		}
		dst := backing[:len(data):len(data)]

		n, err := DecompressLZTo(dst, corrupt)
		if err != nil {
			require.Equal(t, DecompressFailed, n)
			require.ErrorIs(t, err, errs.ErrOverrun)
		} else {
			require.LessOrEqual(t, n, len(dst))
		}
		require.Equal(t, bytes.Repeat([]byte{0xEE}, 64), backing[len(data):])
	}
}

func TestLZ_SmallOutputBuffer(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10)
	compressed, err := CompressLZ(data, 5)
	require.NoError(t, err)

	n, err := DecompressLZTo(make([]byte, 50), compressed)
	require.Equal(t, DecompressFailed, n)
	require.ErrorIs(t, err, errs.ErrOverrun)

	_, err = DecompressLZ(compressed, len(data)+1)
	require.ErrorIs(t, err, errs.ErrSizeMismatch)
}

func TestLZ_MalformedLengths(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{"unterminated_literal_length", []byte{7 << 5, 0x80, 0x80}},
		{"oversized_literal_length", []byte{7 << 5, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}},
		{"literals_past_input", []byte{3 << 5, 'a'}},
		{"missing_distance", []byte{1<<5 | 1<<1, 'a', 0x01}},
		{"zero_distance", []byte{1 << 5, 'a', 0, 0}},
		{"distance_before_start", []byte{1 << 5, 'a', 2, 0}},
		{"unterminated_match_length", []byte{1<<5 | 15<<1, 'a', 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := DecompressLZTo(make([]byte, 64), tt.src)
			require.Equal(t, DecompressFailed, n)
			require.ErrorIs(t, err, errs.ErrOverrun)
		})
	}
}

func TestLZCompressor_SizePrefix(t *testing.T) {
	codec, err := NewLZCompressor(3)
	require.NoError(t, err)
	require.Equal(t, 3, codec.Level())

	data := bytes.Repeat([]byte{1, 2, 3}, 100)
	compressed, err := codec.Compress(data)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAC, 0x02}, compressed[:2]) // uvarint(300)

	_, err = codec.Decompress([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F, 0x00})
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
}
