package metadata

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// StorageHasher identifies the hashing scheme a storage entry's key(s)
// are run through before being appended to its module/storage prefix.
type StorageHasher uint8

const (
	StorageHasherIdentity StorageHasher = iota
	StorageHasherBlake2_128
	StorageHasherBlake2_256
	StorageHasherBlake2_128Concat
	StorageHasherTwox128
	StorageHasherTwox256
	StorageHasherTwox64Concat
)

// Hash applies hasher to bytes, reproducing the node's own storage key
// derivation exactly (Concat variants append the untransformed preimage
// after the digest, so storage iteration can recover the original key).
func Hash(hasher StorageHasher, bytes []byte) ([]byte, error) {
	switch hasher {
	case StorageHasherIdentity:
		return bytes, nil
	case StorageHasherBlake2_128:
		return blake2bSum(bytes, 16)
	case StorageHasherBlake2_256:
		return blake2bSum(bytes, 32)
	case StorageHasherBlake2_128Concat:
		sum, err := blake2bSum(bytes, 16)
		if err != nil {
			return nil, err
		}
		return append(sum, bytes...), nil
	case StorageHasherTwox128:
		return twox(bytes, 2), nil
	case StorageHasherTwox256:
		return twox(bytes, 4), nil
	case StorageHasherTwox64Concat:
		sum := twox(bytes, 1)
		return append(sum, bytes...), nil
	default:
		return nil, fmt.Errorf("metadata: unknown storage hasher %d", hasher)
	}
}

func blake2bSum(bytes []byte, size int) ([]byte, error) {
	h, err := blake2b.New(size, nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: blake2b-%d: %w", size*8, err)
	}
	if _, err := h.Write(bytes); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// twox reproduces Substrate's TwoX hash family: n independent xxHash64
// digests of bytes, seeded 0..n-1, concatenated. Twox128 is n=2 (16
// bytes), Twox256 is n=4 (32 bytes), Twox64Concat's prefix is n=1.
func twox(bytes []byte, n int) []byte {
	out := make([]byte, 0, n*8)
	for seed := uint64(0); seed < uint64(n); seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(bytes)
		var buf [8]byte
		sum := d.Sum64()
		for i := 0; i < 8; i++ {
			buf[i] = byte(sum)
			sum >>= 8
		}
		out = append(out, buf[:]...)
	}
	return out
}
