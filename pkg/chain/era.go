package chain

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// ActiveEra returns the currently active era's index and start time.
// EndTimestampMillis is derived from the runtime's era duration rather
// than read from storage -- the chain has no "era end" entry, only a
// start. Stake aggregates are left empty; the block processor fills
// them in from EraStakers at each era boundary (fillEraStakeStats).
func (c *Client) ActiveEra(ctx context.Context, atBlockHash string, eraDurationMillis uint64) (*substrate.Era, error) {
	raw, err := c.getStorage(ctx, mustPlainKey("Staking", "ActiveEra"), atBlockHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("chain: Staking.ActiveEra is empty at %s", atBlockHash)
	}
	d := scale.NewDecoder(raw)
	index, err := d.DecodeUint(4)
	if err != nil {
		return nil, fmt.Errorf("chain: decoding ActiveEra index: %w", err)
	}
	present, err := d.DecodeOptionTag()
	if err != nil {
		return nil, fmt.Errorf("chain: decoding ActiveEra start tag: %w", err)
	}
	var start uint64
	if present {
		start, err = d.DecodeUint(8)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding ActiveEra start: %w", err)
		}
	}
	era := &substrate.Era{Index: int64(index), StartTimestampMillis: int64(start)}
	if present {
		era.EndTimestampMillis = int64(start + eraDurationMillis)
	}
	return era, nil
}

// CurrentEpoch resolves the current Babe epoch: its index, the block
// at which it started, and start/end timestamps derived by fetching
// Timestamp.Now at the epoch's starting block and adding the
// runtime's epoch duration.
func (c *Client) CurrentEpoch(ctx context.Context, atBlockHash string, epochDurationMillis uint64) (*substrate.Epoch, error) {
	indexRaw, err := c.getStorage(ctx, mustPlainKey("Babe", "EpochIndex"), atBlockHash)
	if err != nil {
		return nil, err
	}
	index, err := decodeFixedU64(indexRaw, "Babe.EpochIndex")
	if err != nil {
		return nil, err
	}

	startRaw, err := c.getStorage(ctx, mustPlainKey("Babe", "EpochStart"), atBlockHash)
	if err != nil {
		return nil, err
	}
	if len(startRaw) < 8 {
		return nil, fmt.Errorf("chain: Babe.EpochStart short value")
	}
	sd := scale.NewDecoder(startRaw)
	if _, err := sd.DecodeUint(4); err != nil { // previous epoch's starting block, unused here
		return nil, err
	}
	startBlockNumber, err := sd.DecodeUint(4)
	if err != nil {
		return nil, fmt.Errorf("chain: decoding Babe.EpochStart: %w", err)
	}

	startBlockHash, err := c.BlockHash(ctx, startBlockNumber)
	if err != nil {
		return nil, err
	}
	tsRaw, err := c.getStorage(ctx, mustPlainKey("Timestamp", "Now"), bytesToHex(startBlockHash[:]))
	if err != nil {
		return nil, err
	}
	startMillis, err := decodeFixedU64(tsRaw, "Timestamp.Now")
	if err != nil {
		return nil, err
	}
	return &substrate.Epoch{
		Index:                index,
		StartBlockNumber:     startBlockNumber,
		StartTimestampMillis: int64(startMillis),
		EndTimestampMillis:   int64(startMillis + epochDurationMillis),
	}, nil
}

// CurrentSessionIndex returns Session.CurrentIndex at atBlockHash.
func (c *Client) CurrentSessionIndex(ctx context.Context, atBlockHash string) (uint32, error) {
	raw, err := c.getStorage(ctx, mustPlainKey("Session", "CurrentIndex"), atBlockHash)
	if err != nil {
		return 0, err
	}
	v, err := decodeFixedU32(raw, "Session.CurrentIndex")
	return v, err
}

// EraTotalValidatorReward returns Staking.ErasValidatorReward(era), the
// total native-currency reward minted for validators in that era.
func (c *Client) EraTotalValidatorReward(ctx context.Context, md *metadata.Metadata, eraIndex uint32) (string, error) {
	key, err := mapStorageKey(md, "Staking", "ErasValidatorReward", encodeU32(eraIndex))
	if err != nil {
		return "", err
	}
	raw, err := c.getStorage(ctx, key, "")
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "0", nil
	}
	d := scale.NewDecoder(raw)
	return d.DecodeUint128()
}

// EraRewardPoints returns Staking.ErasRewardPoints(era): the era's
// total reward points and each validator's individual allocation,
// filled in incrementally while the era is still active.
func (c *Client) EraRewardPoints(ctx context.Context, md *metadata.Metadata, eraIndex uint32) (*substrate.EraRewardPoints, error) {
	key, err := mapStorageKey(md, "Staking", "ErasRewardPoints", encodeU32(eraIndex))
	if err != nil {
		return nil, err
	}
	raw, err := c.getStorage(ctx, key, "")
	if err != nil {
		return nil, err
	}
	points := &substrate.EraRewardPoints{Era: int64(eraIndex), Points: map[substrate.AccountID]uint32{}}
	if len(raw) == 0 {
		return points, nil
	}
	d := scale.NewDecoder(raw)
	total, err := d.DecodeUint(4)
	if err != nil {
		return nil, fmt.Errorf("chain: decoding ErasRewardPoints.total: %w", err)
	}
	points.Total = uint32(total)
	n, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("chain: decoding ErasRewardPoints.individual length: %w", err)
	}
	for i := uint64(0); i < n; i++ {
		accRaw, err := scale.DecodePrimitive("AccountId", d)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding ErasRewardPoints entry %d account: %w", i, err)
		}
		score, err := d.DecodeUint(4)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding ErasRewardPoints entry %d score: %w", i, err)
		}
		points.Points[substrate.AccountID(accRaw.(scale.AccountID32))] = uint32(score)
	}
	return points, nil
}

func mustPlainKey(module, item string) string {
	key, err := plainStorageKey(module, item)
	if err != nil {
		// module/item are always compile-time constants here; a
		// failure means the hasher package itself is broken.
		panic(err)
	}
	return key
}

func decodeFixedU64(raw []byte, label string) (uint64, error) {
	if len(raw) < 8 {
		return 0, fmt.Errorf("chain: %s short value (%d bytes)", label, len(raw))
	}
	return scale.NewDecoder(raw).DecodeUint(8)
}

func decodeFixedU32(raw []byte, label string) (uint32, error) {
	if len(raw) < 4 {
		return 0, fmt.Errorf("chain: %s short value (%d bytes)", label, len(raw))
	}
	v, err := scale.NewDecoder(raw).DecodeUint(4)
	return uint32(v), err
}
