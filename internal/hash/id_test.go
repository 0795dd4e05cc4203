package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, TypeID(tt.data))
		})
	}
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, TypeID("test"), Checksum([]byte("test")))
	assert.NotEqual(t, Checksum([]byte("a")), Checksum([]byte("b")))
}
