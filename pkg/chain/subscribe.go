package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// HeaderCallback receives one decoded header per subscription
// notification. It is called once more with ok=false right before the
// subscription loop returns, whether because the context was
// cancelled or the node's stream ended -- the caller is expected to
// restart the subscription after a configured backoff in the latter
// case.
type HeaderCallback func(header *substrate.Header, ok bool)

// BlockHeader is the wire shape of chain_getHeader / a
// chain_subscribeNewHeads push: hex-encoded hashes and a hex number,
// decoded by decodeWireHeader.
type BlockHeader struct {
	ParentHash     string `json:"parentHash"`
	Number         string `json:"number"`
	StateRoot      string `json:"stateRoot"`
	ExtrinsicsRoot string `json:"extrinsicsRoot"`
}

// subscribe opens a node subscription and returns a channel of decoded
// headers. The returned cancel function unsubscribes and releases the
// internal registry entry; callers must call it once done.
func (c *Client) subscribe(ctx context.Context, subscribeMethod, unsubscribeMethod string) (<-chan BlockHeader, func(), error) {
	var subID string
	if err := c.Call(ctx, subscribeMethod, nil, &subID); err != nil {
		return nil, nil, fmt.Errorf("chain: subscribing via %s: %w", subscribeMethod, err)
	}

	raw := make(chan json.RawMessage, 32)
	c.subsMu.Lock()
	c.subs[subID] = raw
	c.subsMu.Unlock()

	out := make(chan BlockHeader, 32)
	go func() {
		defer close(out)
		for msg := range raw {
			var h BlockHeader
			if err := json.Unmarshal(msg, &h); err != nil {
				continue
			}
			out <- h
		}
	}()

	cancel := func() {
		c.subsMu.Lock()
		if ch, ok := c.subs[subID]; ok {
			delete(c.subs, subID)
			close(ch)
		}
		c.subsMu.Unlock()
		_ = c.Call(context.Background(), unsubscribeMethod, []any{subID}, nil)
	}
	return out, cancel, nil
}

// SubscribeNewHeads subscribes to chain_subscribeNewHeads and invokes
// cb for every pushed header until the context is cancelled or the
// stream ends. cb is called with ok=false exactly once, right before
// SubscribeNewHeads returns, so the caller can tell a clean shutdown
// from a dropped stream by checking ctx.Err().
func (c *Client) SubscribeNewHeads(ctx context.Context, cb HeaderCallback) error {
	return c.subscribeLoop(ctx, "chain_subscribeNewHeads", "chain_unsubscribeNewHeads", cb)
}

// SubscribeFinalizedHeads subscribes to chain_subscribeFinalizedHeads
// with the same contract as SubscribeNewHeads.
func (c *Client) SubscribeFinalizedHeads(ctx context.Context, cb HeaderCallback) error {
	return c.subscribeLoop(ctx, "chain_subscribeFinalizedHeads", "chain_unsubscribeFinalizedHeads", cb)
}

func (c *Client) subscribeLoop(ctx context.Context, subscribeMethod, unsubscribeMethod string, cb HeaderCallback) error {
	headers, cancel, err := c.subscribe(ctx, subscribeMethod, unsubscribeMethod)
	if err != nil {
		return err
	}
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			cb(nil, false)
			return ctx.Err()
		case raw, ok := <-headers:
			if !ok {
				cb(nil, false)
				return nil
			}
			header, err := decodeWireHeader(raw)
			if err != nil {
				// a single malformed push is not fatal to the subscription
				continue
			}
			cb(header, true)
		}
	}
}
