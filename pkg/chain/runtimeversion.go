package chain

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/scale"
)

// RuntimeUpgradeInfo is the decoded System.LastRuntimeUpgrade value:
// the cheapest on-chain signal that a runtime upgrade occurred,
// without re-fetching and re-parsing the full metadata blob on every
// block.
type RuntimeUpgradeInfo struct {
	SpecVersion uint32
	SpecName    string
}

// LastRuntimeUpgrade reads System.LastRuntimeUpgrade at atBlockHash.
func (c *Client) LastRuntimeUpgrade(ctx context.Context, atBlockHash string) (*RuntimeUpgradeInfo, error) {
	raw, err := c.getStorage(ctx, mustPlainKey("System", "LastRuntimeUpgrade"), atBlockHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	d := scale.NewDecoder(raw)
	specVersion, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("chain: decoding LastRuntimeUpgrade.spec_version: %w", err)
	}
	specName, err := d.DecodeString()
	if err != nil {
		return nil, fmt.Errorf("chain: decoding LastRuntimeUpgrade.spec_name: %w", err)
	}
	return &RuntimeUpgradeInfo{SpecVersion: uint32(specVersion), SpecName: specName}, nil
}
