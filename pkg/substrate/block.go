// Package substrate holds the chain-domain data model shared by every
// SubVT component: blocks, eras, epochs, validator snapshots,
// nominations, network status, events and extrinsics.
package substrate

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// AccountID is a 32-byte SS58 account identifier.
type AccountID [32]byte

// Hash is a 32-byte block/state/storage hash.
type Hash [32]byte

// String renders a "0x"-prefixed lowercase hex string, the form every
// persisted validator snapshot and relational row addresses accounts
// by.
func (id AccountID) String() string { return "0x" + hex.EncodeToString(id[:]) }

func (id AccountID) MarshalJSON() ([]byte, error) { return json.Marshal(id.String()) }

func (id *AccountID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return fmt.Errorf("substrate: decoding account id %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return fmt.Errorf("substrate: account id %q has %d bytes, want %d", s, len(raw), len(id))
	}
	copy(id[:], raw)
	return nil
}

// ParseAccountID parses the "0x"-prefixed hex form String renders.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return id, fmt.Errorf("substrate: decoding account id %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("substrate: account id %q has %d bytes, want %d", s, len(raw), len(id))
	}
	copy(id[:], raw)
	return id, nil
}

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) MarshalJSON() ([]byte, error) { return json.Marshal(h.String()) }

func (h *Hash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return fmt.Errorf("substrate: decoding hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("substrate: hash %q has %d bytes, want %d", s, len(raw), len(h))
	}
	copy(h[:], raw)
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Block is a decoded block header plus its extrinsics root. Blocks are
// created once on ingest and never mutated or deleted.
type Block struct {
	Hash            Hash
	Number          uint64
	ParentHash      Hash
	StateRoot       Hash
	ExtrinsicsRoot  Hash
	TimestampMillis uint64
	AuthorAccountID *AccountID
}

// Header is the subset of block data returned by chain_getHeader,
// before the block's timestamp and author are known.
type Header struct {
	ParentHash     Hash
	Number         uint64
	StateRoot      Hash
	ExtrinsicsRoot Hash
}

// Time returns the block timestamp as a time.Time.
func (b *Block) Time() time.Time {
	return time.UnixMilli(int64(b.TimestampMillis))
}
