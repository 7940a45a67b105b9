package chain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// hexToBytes strips an optional "0x" prefix and decodes the rest.
func hexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("chain: decoding hex %q: %w", s, err)
	}
	return b, nil
}

func hexToHash(s string) (substrate.Hash, error) {
	b, err := hexToBytes(s)
	if err != nil {
		return substrate.Hash{}, err
	}
	var h substrate.Hash
	if len(b) != len(h) {
		return h, fmt.Errorf("chain: hash %q has %d bytes, want %d", s, len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

func hexToAccountID(s string) (substrate.AccountID, error) {
	b, err := hexToBytes(s)
	if err != nil {
		return substrate.AccountID{}, err
	}
	var id substrate.AccountID
	if len(b) != len(id) {
		return id, fmt.Errorf("chain: account id %q has %d bytes, want %d", s, len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

// bytesToHex renders b as a "0x"-prefixed lowercase hex string, the
// wire form every state_getStorage-family RPC takes its keys/values in.
func bytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// hexToUint64 parses a "0x..."-prefixed hex number, the form
// chain_getHeader reports block numbers in.
func hexToUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("chain: parsing hex number %q: %w", s, err)
	}
	return v, nil
}

func decodeWireHeader(raw BlockHeader) (*substrate.Header, error) {
	parent, err := hexToHash(raw.ParentHash)
	if err != nil {
		return nil, err
	}
	stateRoot, err := hexToHash(raw.StateRoot)
	if err != nil {
		return nil, err
	}
	extrinsicsRoot, err := hexToHash(raw.ExtrinsicsRoot)
	if err != nil {
		return nil, err
	}
	number, err := hexToUint64(raw.Number)
	if err != nil {
		return nil, err
	}
	return &substrate.Header{
		ParentHash:     parent,
		Number:         number,
		StateRoot:      stateRoot,
		ExtrinsicsRoot: extrinsicsRoot,
	}, nil
}
