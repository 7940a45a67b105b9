// Package networkstatus maintains the live network status document in
// the key/value store: on every best block it reassembles the full
// snapshot (block numbers, era/epoch indices, stake aggregates,
// validator counts), stores it, and publishes the best block number so
// the status subscription server can fan out diffs.
package networkstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sort"

	"github.com/subvt-network/subvt/pkg/chain"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// Updater rebuilds and republishes the LiveNetworkStatus snapshot for
// one chain.
type Updater struct {
	client *chain.Client
	md     *metadata.Metadata
	store  kvstore.Store
	keys   kvstore.Keys
	logger *log.Logger

	last *substrate.NetworkStatus
}

// NewUpdater builds an Updater for one chain's key namespace.
func NewUpdater(client *chain.Client, md *metadata.Metadata, store kvstore.Store, chainName string, logger *log.Logger) *Updater {
	if logger == nil {
		logger = log.New(log.Writer(), "[NetworkStatus] ", log.LstdFlags)
	}
	return &Updater{
		client: client,
		md:     md,
		store:  store,
		keys:   kvstore.Keys{Chain: chainName},
		logger: logger,
	}
}

// OnNewHead rebuilds the status as of the new best block, stores it,
// and publishes the best block number. The previous snapshot is kept
// in memory only to log how much changed; the subscription server
// computes its own per-client diffs from the stored document.
func (u *Updater) OnNewHead(ctx context.Context, header *substrate.Header) error {
	status, err := u.build(ctx, header)
	if err != nil {
		return err
	}

	statusJSON, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("networkstatus: marshal status: %w", err)
	}
	if err := u.store.Set(ctx, u.keys.LiveNetworkStatus(), statusJSON); err != nil {
		return fmt.Errorf("networkstatus: store status: %w", err)
	}
	if err := u.store.Publish(ctx, u.keys.LiveNetworkStatusPublishChannel(), fmt.Sprintf("%d", status.BestBlockNumber)); err != nil {
		return fmt.Errorf("networkstatus: publish best block number: %w", err)
	}

	if u.last != nil {
		diff := substrate.DiffNetworkStatus(u.last, status)
		if diff.EraIndex != nil {
			u.logger.Printf("entered era %d at block #%d", *diff.EraIndex, status.BestBlockNumber)
		}
		if diff.EpochIndex != nil {
			u.logger.Printf("entered epoch %d at block #%d", *diff.EpochIndex, status.BestBlockNumber)
		}
	}
	u.last = status
	return nil
}

func (u *Updater) build(ctx context.Context, header *substrate.Header) (*substrate.NetworkStatus, error) {
	blockHash, err := u.client.BlockHash(ctx, header.Number)
	if err != nil {
		return nil, fmt.Errorf("networkstatus: resolve best block hash: %w", err)
	}
	atBlockHash := blockHash.String()

	finalizedHash, err := u.client.FinalizedBlockHash(ctx)
	if err != nil {
		return nil, fmt.Errorf("networkstatus: resolve finalized head: %w", err)
	}
	finalizedHeader, err := u.client.BlockHeader(ctx, finalizedHash)
	if err != nil {
		return nil, fmt.Errorf("networkstatus: fetch finalized header: %w", err)
	}

	era, err := u.client.ActiveEra(ctx, atBlockHash, u.md.RuntimeConfig.EraDurationMillis)
	if err != nil {
		return nil, fmt.Errorf("networkstatus: fetch active era: %w", err)
	}
	epoch, err := u.client.CurrentEpoch(ctx, atBlockHash, u.md.RuntimeConfig.EpochDurationMillis)
	if err != nil {
		return nil, fmt.Errorf("networkstatus: fetch current epoch: %w", err)
	}

	status := &substrate.NetworkStatus{
		BestBlockNumber:      header.Number,
		FinalizedBlockNumber: finalizedHeader.Number,
		EraIndex:             era.Index,
		EpochIndex:           epoch.Index,
	}

	if era.Index > 0 {
		points, err := u.client.EraRewardPoints(ctx, u.md, uint32(era.Index-1))
		if err != nil {
			return nil, fmt.Errorf("networkstatus: fetch last era reward points: %w", err)
		}
		status.LastEraRewardPoints = uint64(points.Total)
	}

	stakers, err := u.client.EraStakers(ctx, u.md, era, true, atBlockHash)
	if err != nil {
		return nil, fmt.Errorf("networkstatus: fetch era stakers: %w", err)
	}
	fillStakeAggregates(status, stakers)

	maxNominatorRewarded, err := chain.MaxNominatorRewardedPerValidator(u.md)
	if err != nil {
		return nil, err
	}
	oversubscribed := 0
	for _, s := range stakers.Stakers {
		if len(s.NominatorStakes) > maxNominatorRewarded {
			oversubscribed++
		}
	}
	status.OversubscribedValidatorCount = oversubscribed

	active, err := u.store.SMembers(ctx, u.keys.ActiveAddresses())
	if err != nil {
		return nil, fmt.Errorf("networkstatus: read active address set: %w", err)
	}
	inactive, err := u.store.SMembers(ctx, u.keys.InactiveAddresses())
	if err != nil {
		return nil, fmt.Errorf("networkstatus: read inactive address set: %w", err)
	}
	status.ActiveValidatorCount = len(active)
	status.InactiveValidatorCount = len(inactive)

	return status, nil
}

// fillStakeAggregates computes total/min/max/mean/median over the
// era's validator exposures. Balances are decimal strings that can
// exceed 64 bits, so the arithmetic runs on big.Int.
func fillStakeAggregates(status *substrate.NetworkStatus, stakers *substrate.EraStakers) {
	if len(stakers.Stakers) == 0 {
		status.ActiveEraTotalStake = "0"
		status.ActiveEraMinStake = "0"
		status.ActiveEraMaxStake = "0"
		status.ActiveEraAverageStake = "0"
		status.ActiveEraMedianStake = "0"
		return
	}
	values := make([]*big.Int, 0, len(stakers.Stakers))
	total := new(big.Int)
	for _, s := range stakers.Stakers {
		v, ok := new(big.Int).SetString(s.TotalStake, 10)
		if !ok {
			continue
		}
		values = append(values, v)
		total.Add(total, v)
	}
	if len(values) == 0 {
		return
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Cmp(values[j]) < 0 })

	status.ActiveEraTotalStake = total.String()
	status.ActiveEraMinStake = values[0].String()
	status.ActiveEraMaxStake = values[len(values)-1].String()
	status.ActiveEraAverageStake = new(big.Int).Div(total, big.NewInt(int64(len(values)))).String()

	mid := len(values) / 2
	if len(values)%2 == 1 {
		status.ActiveEraMedianStake = values[mid].String()
	} else {
		median := new(big.Int).Add(values[mid-1], values[mid])
		status.ActiveEraMedianStake = median.Div(median, big.NewInt(2)).String()
	}
}
