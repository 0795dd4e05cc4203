package endian

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/fastserial/format"
)

func TestGetLittleEndianEngine(t *testing.T) {
	require.Equal(t, binary.LittleEndian, GetLittleEndianEngine())
}

func TestPutLabel_RoundTrip(t *testing.T) {
	engine := GetLittleEndianEngine()

	tests := []struct {
		name  string
		value uint64
		width format.LabelWidth
		ok    bool
	}{
		{"zero 32", 0, format.LabelWidth32, true},
		{"small 32", 1024, format.LabelWidth32, true},
		{"max valid 32", math.MaxUint32 - 1, format.LabelWidth32, true},
		{"reserved 32", math.MaxUint32, format.LabelWidth32, false},
		{"overflow 32", 1 << 40, format.LabelWidth32, false},
		{"invalid 32", math.MaxUint64, format.LabelWidth32, true},
		{"large 64", 1 << 40, format.LabelWidth64, true},
		{"invalid 64", math.MaxUint64, format.LabelWidth64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 8)
			ok := PutLabel(engine, buf, tt.value, tt.width)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.value, Label(engine, buf, tt.width))
			}
		})
	}
}

func TestPutLabel_ByteLayout(t *testing.T) {
	buf := make([]byte, 4)
	require.True(t, PutLabel(GetLittleEndianEngine(), buf, 0x01020304, format.LabelWidth32))
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
}
