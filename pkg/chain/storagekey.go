package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// storagePrefix is the first 32 bytes of every storage key for a given
// module/item pair: Twox128(moduleName) ++ Twox128(itemName).
func storagePrefix(module, item string) ([]byte, error) {
	modHash, err := metadata.Hash(metadata.StorageHasherTwox128, []byte(module))
	if err != nil {
		return nil, err
	}
	itemHash, err := metadata.Hash(metadata.StorageHasherTwox128, []byte(item))
	if err != nil {
		return nil, err
	}
	return append(modHash, itemHash...), nil
}

// plainStorageKey returns the full storage key for a plain (non-map)
// storage entry, ready for state_getStorage.
func plainStorageKey(module, item string) (string, error) {
	prefix, err := storagePrefix(module, item)
	if err != nil {
		return "", err
	}
	return bytesToHex(prefix), nil
}

// mapStorageKey returns the full storage key for a single-key map
// entry: prefix ++ hasher(encodedKey).
func mapStorageKey(md *metadata.Metadata, module, item string, encodedKey []byte) (string, error) {
	entry, err := storageEntry(md, module, item)
	if err != nil {
		return "", err
	}
	if len(entry.Hashers) < 1 {
		return "", fmt.Errorf("chain: %s.%s is not a map storage entry", module, item)
	}
	prefix, err := storagePrefix(module, item)
	if err != nil {
		return "", err
	}
	hashed, err := metadata.Hash(entry.Hashers[0], encodedKey)
	if err != nil {
		return "", err
	}
	return bytesToHex(append(prefix, hashed...)), nil
}

// doubleMapFirstKeyPrefix returns the key prefix identifying every
// second-key entry under one first-key value of a double map (e.g. one
// era's worth of Staking.ErasStakers entries), suitable as the prefix
// argument to state_getKeysPaged.
func doubleMapFirstKeyPrefix(md *metadata.Metadata, module, item string, encodedFirstKey []byte) (string, error) {
	entry, err := storageEntry(md, module, item)
	if err != nil {
		return "", err
	}
	if len(entry.Hashers) < 2 {
		return "", fmt.Errorf("chain: %s.%s is not a double map storage entry", module, item)
	}
	prefix, err := storagePrefix(module, item)
	if err != nil {
		return "", err
	}
	hashed, err := metadata.Hash(entry.Hashers[0], encodedFirstKey)
	if err != nil {
		return "", err
	}
	return bytesToHex(append(prefix, hashed...)), nil
}

func storageEntry(md *metadata.Metadata, module, item string) (*metadata.StorageMetadata, error) {
	mod, err := md.Module(module)
	if err != nil {
		return nil, err
	}
	entry, ok := mod.Storage[item]
	if !ok {
		return nil, fmt.Errorf("chain: %s.%s not found in runtime metadata", module, item)
	}
	return entry, nil
}

// encodeAccountID SCALE-encodes an AccountId32: it is fixed-width, so
// encoding is just the identity.
func encodeAccountID(id substrate.AccountID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// encodeU32 SCALE-encodes a fixed-width (non-compact) u32, the
// encoding storage map keys use for EraIndex/SessionIndex.
func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// accountIDFromStorageKey recovers the AccountId32 that was hashed
// into a Concat-hashed (or Identity-hashed) map key: Substrate always
// places the untransformed key bytes at the tail of the encoded key
// for these hashers, which is the only hasher family SubVT's account
// keyed storage uses.
func accountIDFromStorageKey(keyHex string) (substrate.AccountID, error) {
	b, err := hexToBytes(keyHex)
	if err != nil {
		return substrate.AccountID{}, err
	}
	if len(b) < 32 {
		return substrate.AccountID{}, fmt.Errorf("chain: storage key %q shorter than an account id", keyHex)
	}
	var id substrate.AccountID
	copy(id[:], b[len(b)-32:])
	return id, nil
}
