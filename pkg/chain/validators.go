package chain

import (
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

const bulkPageSize = 1000

// ActiveValidatorIDs returns Session.Validators: the account ids
// active in the current session, a single plain storage read.
func (c *Client) ActiveValidatorIDs(ctx context.Context, atBlockHash string) ([]substrate.AccountID, error) {
	raw, err := c.getStorage(ctx, mustPlainKey("Session", "Validators"), atBlockHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	d := scale.NewDecoder(raw)
	n, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("chain: decoding Session.Validators length: %w", err)
	}
	ids := make([]substrate.AccountID, n)
	for i := range ids {
		accRaw, err := scale.DecodePrimitive("AccountId", d)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding Session.Validators[%d]: %w", i, err)
		}
		ids[i] = substrate.AccountID(accRaw.(scale.AccountID32))
	}
	return ids, nil
}

// EraStakers returns every validator's exposure for era, reading
// Staking.ErasStakersClipped when clipped is true (the set actually
// used for reward calculation) or the unclipped Staking.ErasStakers
// otherwise. Entries are sorted by ascending total stake.
func (c *Client) EraStakers(ctx context.Context, md *metadata.Metadata, era *substrate.Era, clipped bool, atBlockHash string) (*substrate.EraStakers, error) {
	item := "ErasStakers"
	if clipped {
		item = "ErasStakersClipped"
	}
	prefix, err := doubleMapFirstKeyPrefix(md, "Staking", item, encodeU32(uint32(era.Index)))
	if err != nil {
		return nil, err
	}
	keys, err := c.allPagedKeys(ctx, prefix, bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}
	changes, err := c.queryStorageAtChunked(ctx, keys, bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}
	stakers := make([]substrate.EraValidatorStake, 0, len(changes))
	for _, ch := range changes {
		if ch.Value == nil {
			continue
		}
		accountID, err := accountIDFromStorageKey(ch.Key)
		if err != nil {
			return nil, err
		}
		raw, err := hexToBytes(*ch.Value)
		if err != nil {
			return nil, err
		}
		stake, err := decodeExposureAsStake(accountID, raw)
		if err != nil {
			return nil, fmt.Errorf("chain: decoding exposure for %x: %w", accountID, err)
		}
		stakers = append(stakers, stake)
	}
	// TotalStake is a decimal string: a shorter string is a smaller
	// number, and equal-length strings compare lexicographically.
	sort.Slice(stakers, func(i, j int) bool {
		a, b := stakers[i].TotalStake, stakers[j].TotalStake
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return &substrate.EraStakers{Era: *era, Stakers: stakers}, nil
}

func decodeExposureAsStake(validatorAccountID substrate.AccountID, raw []byte) (substrate.EraValidatorStake, error) {
	exposureRaw, err := scale.DecodePrimitive("Exposure", scale.NewDecoder(raw))
	if err != nil {
		return substrate.EraValidatorStake{}, err
	}
	exposure := exposureRaw.(scale.Exposure)
	stake := substrate.EraValidatorStake{
		ValidatorAccountID: validatorAccountID,
		TotalStake:          exposure.Total,
		OwnStake:            exposure.Own,
	}
	for _, o := range exposure.Others {
		stake.NominatorStakes = append(stake.NominatorStakes, substrate.EraNominatorStake{
			AccountID: substrate.AccountID(o.Who),
			Stake:     o.Value,
		})
	}
	return stake, nil
}

// AllValidators is the bulk loader: it walks Staking.Validators to
// reconstruct a ValidatorDetails for every account that has submitted
// a validate() intent (active or not), then enriches every one of
// next session keys, queued-key activation, payee, slashing,
// nominations and identity in batched state_queryStorageAt round
// trips instead of one RPC per validator.
func (c *Client) AllValidators(ctx context.Context, md *metadata.Metadata, atBlockHash string, currentEraIndex uint32) ([]*substrate.ValidatorDetails, error) {
	activeIDs, err := c.ActiveValidatorIDs(ctx, atBlockHash)
	if err != nil {
		return nil, err
	}
	activeSet := make(map[substrate.AccountID]bool, len(activeIDs))
	for _, id := range activeIDs {
		activeSet[id] = true
	}

	validatorsPrefix, err := storagePrefix("Staking", "Validators")
	if err != nil {
		return nil, err
	}
	allKeys, err := c.allPagedKeys(ctx, bytesToHex(validatorsPrefix), bulkPageSize, atBlockHash)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[substrate.AccountID]*substrate.ValidatorDetails, len(allKeys))
	order := make([]substrate.AccountID, 0, len(allKeys))
	for _, key := range allKeys {
		accountID, err := accountIDFromStorageKey(key)
		if err != nil {
			return nil, err
		}
		byAccount[accountID] = &substrate.ValidatorDetails{
			Account:  substrate.Account{ID: accountID},
			IsActive: activeSet[accountID],
		}
		order = append(order, accountID)
	}

	if err := c.fillNextSessionKeys(ctx, md, byAccount, order, atBlockHash); err != nil {
		return nil, err
	}
	if err := c.fillQueuedSessionKeys(ctx, byAccount, atBlockHash); err != nil {
		return nil, err
	}
	if err := c.fillRewardDestinations(ctx, md, byAccount, order, atBlockHash); err != nil {
		return nil, err
	}
	if err := c.fillSlashings(ctx, md, byAccount, atBlockHash, currentEraIndex); err != nil {
		return nil, err
	}
	nominationsByValidator, err := c.fillNominations(ctx, md, byAccount, order, atBlockHash)
	if err != nil {
		return nil, err
	}
	if err := c.fillIdentities(ctx, md, byAccount, order, atBlockHash); err != nil {
		return nil, err
	}
	if err := c.fillPreferences(ctx, md, byAccount, allKeys, atBlockHash); err != nil {
		return nil, err
	}

	maxNominatorRewarded, err := maxNominatorRewardedPerValidator(md)
	if err != nil {
		return nil, err
	}
	out := make([]*substrate.ValidatorDetails, 0, len(order))
	for _, accountID := range order {
		v := byAccount[accountID]
		v.Nominations = nominationsByValidator[accountID]
		sortNominationsDeterministically(v.Nominations)
		v.Oversubscribed = len(v.Nominations) > maxNominatorRewarded
		out = append(out, v)
	}
	return out, nil
}

// MaxNominatorRewardedPerValidator reads the runtime's per-validator
// nominator payout cap, the threshold above which a validator counts
// as oversubscribed.
func MaxNominatorRewardedPerValidator(md *metadata.Metadata) (int, error) {
	return maxNominatorRewardedPerValidator(md)
}

func maxNominatorRewardedPerValidator(md *metadata.Metadata) (int, error) {
	staking, err := md.Module("Staking")
	if err != nil {
		return 0, err
	}
	c, err := staking.Constant("MaxNominatorRewardedPerValidator")
	if err != nil {
		return 0, err
	}
	if len(c.Value) < 4 {
		return 0, fmt.Errorf("chain: MaxNominatorRewardedPerValidator: short constant value")
	}
	v, err := scale.NewDecoder(c.Value).DecodeUint(4)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// sortNominationsDeterministically orders a validator's nominations by
// a stable hash of the nominator account: the ordering itself is
// arbitrary, but it must be reproducible across materializer runs so
// downstream diffing doesn't see spurious reorderings as changes.
func sortNominationsDeterministically(nominations []substrate.Nomination) {
	sort.Slice(nominations, func(i, j int) bool {
		return xxhash.Sum64(nominations[i].NominatorAccount[:]) < xxhash.Sum64(nominations[j].NominatorAccount[:])
	})
}
