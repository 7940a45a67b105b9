package kvstore

import "github.com/cespare/xxhash/v2"

// Fingerprint computes the stable 64-bit content hash stored alongside
// each JSON payload, letting subscribers detect no-op updates without
// re-parsing.
func Fingerprint(jsonBytes []byte) uint64 {
	return xxhash.Sum64(jsonBytes)
}
