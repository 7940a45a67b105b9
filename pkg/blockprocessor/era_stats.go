package blockprocessor

import (
	"context"
	"math/big"
	"sort"

	"github.com/subvt-network/subvt/pkg/substrate"
	"github.com/subvt-network/subvt/pkg/subvterrors"
)

// recordEraChange runs once per observed era boundary: it persists the
// era row with its stake aggregates, the era's validator membership
// and per-validator backers, and fills in the just-ended era's total
// validator reward now that payouts for it are known.
func (p *Processor) recordEraChange(ctx context.Context, era *substrate.Era, atHash string, blockNumber uint64) error {
	activeIDs, err := p.client.ActiveValidatorIDs(ctx, atHash)
	if err != nil {
		return subvterrors.Transient(err)
	}
	stakers, err := p.client.EraStakers(ctx, p.md, era, false, atHash)
	if err != nil {
		return subvterrors.Transient(err)
	}
	fillEraStakeStats(era, stakers)

	if err := p.gateway.Network.SaveEra(ctx, era); err != nil {
		return subvterrors.Transient(err)
	}
	if err := p.gateway.Network.SaveEraValidators(ctx, era.Index, activeIDs); err != nil {
		return subvterrors.Transient(err)
	}
	for _, s := range stakers.Stakers {
		nominations := make([]substrate.Nomination, len(s.NominatorStakes))
		for i, ns := range s.NominatorStakes {
			stake := ns.Stake
			nominations[i] = substrate.Nomination{
				NominatorAccount: ns.AccountID,
				Stake:            ns.Stake,
				Targets:          []substrate.AccountID{s.ValidatorAccountID},
				ActiveAmount:     &stake,
			}
		}
		if err := p.gateway.Network.SaveEraStakers(ctx, era.Index, s.ValidatorAccountID, nominations); err != nil {
			return subvterrors.Transient(err)
		}
	}

	if era.Index > 0 {
		reward, err := p.client.EraTotalValidatorReward(ctx, p.md, uint32(era.Index-1))
		if err != nil {
			return subvterrors.Transient(err)
		}
		if reward != "0" {
			if err := p.gateway.Network.UpdateEraTotalValidatorReward(ctx, era.Index-1, reward); err != nil {
				return subvterrors.Transient(err)
			}
		}
	}

	p.logger.Printf("era changed to %d at block %d (%d validators, %d exposures)",
		era.Index, blockNumber, len(activeIDs), len(stakers.Stakers))
	return nil
}

// fillEraStakeStats computes the era's aggregate stake statistics from
// its validator exposures. Balance values exceed 64 bits, so the
// arithmetic runs on big.Int.
func fillEraStakeStats(era *substrate.Era, stakers *substrate.EraStakers) {
	era.TotalStake = "0"
	era.MinStake = "0"
	era.MaxStake = "0"
	era.AverageStake = "0"
	era.MedianStake = "0"
	if len(stakers.Stakers) == 0 {
		return
	}

	nominators := map[substrate.AccountID]bool{}
	values := make([]*big.Int, 0, len(stakers.Stakers))
	total := new(big.Int)
	for _, s := range stakers.Stakers {
		for _, ns := range s.NominatorStakes {
			nominators[ns.AccountID] = true
		}
		v, ok := new(big.Int).SetString(s.TotalStake, 10)
		if !ok {
			continue
		}
		values = append(values, v)
		total.Add(total, v)
	}
	era.ActiveNominatorCount = len(nominators)
	if len(values) == 0 {
		return
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Cmp(values[j]) < 0 })

	era.TotalStake = total.String()
	era.MinStake = values[0].String()
	era.MaxStake = values[len(values)-1].String()
	era.AverageStake = new(big.Int).Div(total, big.NewInt(int64(len(values)))).String()
	mid := len(values) / 2
	if len(values)%2 == 1 {
		era.MedianStake = values[mid].String()
	} else {
		median := new(big.Int).Add(values[mid-1], values[mid])
		era.MedianStake = median.Div(median, big.NewInt(2)).String()
	}
}
