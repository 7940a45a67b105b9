package chain

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
)

// GetMetadata fetches and decodes the node's runtime metadata via
// state_getMetadata, then runs the event-argument primitive-support
// check on it. The service supervisors do this once per connection,
// right after dialing.
func (c *Client) GetMetadata(ctx context.Context) (*metadata.Metadata, error) {
	var hexString string
	if err := c.Call(ctx, "state_getMetadata", nil, &hexString); err != nil {
		return nil, fmt.Errorf("chain: state_getMetadata: %w", err)
	}
	md, err := metadata.Decode(hexString)
	if err != nil {
		return nil, fmt.Errorf("chain: decoding metadata: %w", err)
	}
	if err := scale.CheckEventPrimitiveArgumentSupport(md); err != nil {
		return nil, fmt.Errorf("chain: metadata primitive support check: %w", err)
	}
	return md, nil
}

// SystemProperties is the node's system_properties response: the
// chain's address format and native token denomination.
type SystemProperties struct {
	SS58Format    uint16 `json:"ss58Format"`
	TokenDecimals uint8  `json:"tokenDecimals"`
	TokenSymbol   string `json:"tokenSymbol"`
}

// SystemProperties fetches the chain's token and address-format
// properties, fixed per chain for the lifetime of the connection.
func (c *Client) SystemProperties(ctx context.Context) (*SystemProperties, error) {
	props := &SystemProperties{}
	if err := c.Call(ctx, "system_properties", nil, props); err != nil {
		return nil, fmt.Errorf("chain: system_properties: %w", err)
	}
	return props, nil
}

// SystemChain returns the node's configured chain name (system_chain).
// The network status supervisor logs it on connect; the kvstore key
// prefix comes from configuration, not from this call.
func (c *Client) SystemChain(ctx context.Context) (string, error) {
	var chain string
	if err := c.Call(ctx, "system_chain", nil, &chain); err != nil {
		return "", fmt.Errorf("chain: system_chain: %w", err)
	}
	return chain, nil
}
