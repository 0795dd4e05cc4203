package hash

import "github.com/cespare/xxhash/v2"

// TypeID computes the xxHash64 identifier of a serialization type name.
func TypeID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Checksum computes the xxHash64 of a payload.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
