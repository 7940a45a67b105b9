package chain

import (
	"context"
	"fmt"
)

// getStorage fetches the raw SCALE-encoded value at key (hex,
// "0x"-prefixed) as of atBlockHash ("" means the node's current best
// block). A missing entry comes back as an empty byte slice, matching
// state_getStorage's null-result convention for absent Optional
// entries.
func (c *Client) getStorage(ctx context.Context, key string, atBlockHash string) ([]byte, error) {
	params := []any{key}
	if atBlockHash != "" {
		params = append(params, atBlockHash)
	}
	var hexValue *string
	if err := c.Call(ctx, "state_getStorage", params, &hexValue); err != nil {
		return nil, fmt.Errorf("chain: state_getStorage(%s): %w", key, err)
	}
	if hexValue == nil {
		return nil, nil
	}
	return hexToBytes(*hexValue)
}

// pagedKeys returns the next page of storage keys under prefix,
// starting strictly after lastKey ("" for the first page). It is the
// sole primitive the bulk loaders use to enumerate a map/double-map's
// keys without knowing them in advance.
func (c *Client) pagedKeys(ctx context.Context, prefix string, pageSize int, lastKey string, atBlockHash string) ([]string, error) {
	params := []any{prefix, pageSize}
	if lastKey != "" {
		params = append(params, lastKey)
	} else {
		params = append(params, nil)
	}
	if atBlockHash != "" {
		params = append(params, atBlockHash)
	} else {
		params = append(params, nil)
	}
	var keys []string
	if err := c.Call(ctx, "state_getKeysPaged", params, &keys); err != nil {
		return nil, fmt.Errorf("chain: state_getKeysPaged(%s): %w", prefix, err)
	}
	return keys, nil
}

// allPagedKeys drains every page under prefix, repeating until the
// node returns fewer than a full page of keys.
func (c *Client) allPagedKeys(ctx context.Context, prefix string, pageSize int, atBlockHash string) ([]string, error) {
	var all []string
	last := ""
	for {
		page, err := c.pagedKeys(ctx, prefix, pageSize, last, atBlockHash)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		last = page[len(page)-1]
	}
}

// storageChange is one entry of a state_queryStorageAt change-set:
// the queried key and its value at the time of the query, or nil if
// the entry was absent.
type storageChange struct {
	Key   string
	Value *string
}

type storageChangeSet struct {
	Block   string            `json:"block"`
	Changes [][2]*string `json:"changes"`
}

// queryStorageAt resolves a batch of storage keys to their current
// values in a single round trip, returned in the same order as keys.
// A nil Value means the entry is absent (Optional, not set).
func (c *Client) queryStorageAt(ctx context.Context, keys []string, atBlockHash string) ([]storageChange, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var sets []storageChangeSet
	if err := c.Call(ctx, "state_queryStorageAt", []any{keys, atBlockHash}, &sets); err != nil {
		return nil, fmt.Errorf("chain: state_queryStorageAt: %w", err)
	}
	if len(sets) == 0 {
		return nil, nil
	}
	out := make([]storageChange, 0, len(sets[0].Changes))
	for _, pair := range sets[0].Changes {
		if pair[0] == nil {
			continue
		}
		out = append(out, storageChange{Key: *pair[0], Value: pair[1]})
	}
	return out, nil
}

// queryStorageAtChunked batches keys into pages of at most chunkSize
// before calling queryStorageAt, so no single RPC call carries tens of
// thousands of keys.
func (c *Client) queryStorageAtChunked(ctx context.Context, keys []string, chunkSize int, atBlockHash string) ([]storageChange, error) {
	var all []storageChange
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk, err := c.queryStorageAt(ctx, keys[start:end], atBlockHash)
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}
	return all, nil
}
