package chain

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// wireBlock is chain_getBlock's result shape: a header plus the
// block's extrinsics as opaque SCALE-encoded hex strings.
type wireBlock struct {
	Block struct {
		Header     BlockHeader `json:"header"`
		Extrinsics []string    `json:"extrinsics"`
	} `json:"block"`
}

// RawExtrinsics fetches the block's extrinsics at hash as opaque,
// still-SCALE-encoded hex strings, ready for DecodeExtrinsics.
func (c *Client) RawExtrinsics(ctx context.Context, hash substrate.Hash) ([]string, error) {
	var wb wireBlock
	if err := c.Call(ctx, "chain_getBlock", []any{bytesToHex(hash[:])}, &wb); err != nil {
		return nil, fmt.Errorf("chain: chain_getBlock: %w", err)
	}
	return wb.Block.Extrinsics, nil
}

// RawEvents fetches the System.Events storage entry at hash: the
// still-SCALE-encoded Vec<EventRecord> every pallet's deposited events
// accumulate into over the course of the block.
func (c *Client) RawEvents(ctx context.Context, hash substrate.Hash) ([]byte, error) {
	raw, err := c.getStorage(ctx, mustPlainKey("System", "Events"), bytesToHex(hash[:]))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// BlockAuthor resolves the block author from Authorship.Author, the
// pallet most Substrate runtimes use to publish the current block's
// author for the duration of block execution. Absent on runtimes
// without the pallet (or when the inherent hasn't run yet), in which
// case a nil pointer is returned rather than an error.
func (c *Client) BlockAuthor(ctx context.Context, hash substrate.Hash) (*substrate.AccountID, error) {
	raw, err := c.getStorage(ctx, mustPlainKey("Authorship", "Author"), bytesToHex(hash[:]))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	accRaw, err := scale.DecodePrimitive("AccountId", scale.NewDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("chain: decoding Authorship.Author: %w", err)
	}
	id := substrate.AccountID(accRaw.(scale.AccountID32))
	return &id, nil
}
