package chain

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// CurrentBlockHash returns the hash of the chain's current best block.
func (c *Client) CurrentBlockHash(ctx context.Context) (substrate.Hash, error) {
	var s string
	if err := c.Call(ctx, "chain_getBlockHash", nil, &s); err != nil {
		return substrate.Hash{}, fmt.Errorf("chain: chain_getBlockHash: %w", err)
	}
	return hexToHash(s)
}

// BlockHash returns the hash of the block at the given number.
func (c *Client) BlockHash(ctx context.Context, number uint64) (substrate.Hash, error) {
	var s string
	if err := c.Call(ctx, "chain_getBlockHash", []any{number}, &s); err != nil {
		return substrate.Hash{}, fmt.Errorf("chain: chain_getBlockHash(%d): %w", number, err)
	}
	return hexToHash(s)
}

// FinalizedBlockHash returns the hash of the chain's current finalized
// block.
func (c *Client) FinalizedBlockHash(ctx context.Context) (substrate.Hash, error) {
	var s string
	if err := c.Call(ctx, "chain_getFinalizedHead", nil, &s); err != nil {
		return substrate.Hash{}, fmt.Errorf("chain: chain_getFinalizedHead: %w", err)
	}
	return hexToHash(s)
}

// BlockHeader returns the header for the block identified by hash.
func (c *Client) BlockHeader(ctx context.Context, hash substrate.Hash) (*substrate.Header, error) {
	var wire BlockHeader
	if err := c.Call(ctx, "chain_getHeader", []any{bytesToHex(hash[:])}, &wire); err != nil {
		return nil, fmt.Errorf("chain: chain_getHeader: %w", err)
	}
	return decodeWireHeader(wire)
}
