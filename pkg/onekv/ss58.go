package onekv

import (
	"bytes"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"

	"github.com/subvt-network/subvt/pkg/substrate"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ss58Prefix is the checksum domain separator every SS58 address is
// hashed under.
var ss58Prefix = []byte("SS58PRE")

func base58Decode(s string) ([]byte, error) {
	value := new(big.Int)
	radix := big.NewInt(58)
	for _, r := range s {
		idx := bytes.IndexRune([]byte(base58Alphabet), r)
		if idx < 0 {
			return nil, fmt.Errorf("onekv: invalid base58 character %q", r)
		}
		value.Mul(value, radix)
		value.Add(value, big.NewInt(int64(idx)))
	}
	decoded := value.Bytes()
	// Leading '1' characters encode leading zero bytes.
	for _, r := range s {
		if r != '1' {
			break
		}
		decoded = append([]byte{0}, decoded...)
	}
	return decoded, nil
}

// decodeSS58AccountID decodes an SS58 address to its 32-byte account
// id, verifying the embedded checksum. The network prefix is accepted
// as one or two bytes, covering every registered network format.
func decodeSS58AccountID(address string) (substrate.AccountID, error) {
	var id substrate.AccountID
	raw, err := base58Decode(address)
	if err != nil {
		return id, err
	}
	var prefixLen int
	switch {
	case len(raw) == 1+32+2:
		prefixLen = 1
	case len(raw) == 2+32+2:
		prefixLen = 2
	default:
		return id, fmt.Errorf("onekv: address %q decodes to %d bytes, want 35 or 36", address, len(raw))
	}
	body := raw[:prefixLen+32]
	checksum := raw[prefixLen+32:]

	hasher, err := blake2b.New512(nil)
	if err != nil {
		return id, err
	}
	hasher.Write(ss58Prefix)
	hasher.Write(body)
	digest := hasher.Sum(nil)
	if !bytes.Equal(checksum, digest[:2]) {
		return id, fmt.Errorf("onekv: address %q has a bad checksum", address)
	}
	copy(id[:], body[prefixLen:])
	return id, nil
}
