// Package validatorlist rebuilds the full active/inactive validator
// list on every finalized block and republishes it to the key/value
// store: one JSON document, one content hash, and one summary hash per
// validator, plus the finalized block number/hash and the address sets
// subscribers use to discover what exists.
package validatorlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/subvt-network/subvt/pkg/chain"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/metrics"
	"github.com/subvt-network/subvt/pkg/onekv"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// Materializer resolves a finalized block's full validator list and
// writes it to the key/value store in a single atomic batch.
type Materializer struct {
	client  *chain.Client
	md      *metadata.Metadata
	gateway *database.Gateway
	store   kvstore.Store
	keys    kvstore.Keys
	onekv   *onekv.Client // nil when no programme endpoint is configured
	logger  *log.Logger
}

// New builds a Materializer for one chain's key namespace. onekvClient
// may be nil; the external-registry fields are then left unset.
func New(client *chain.Client, md *metadata.Metadata, gateway *database.Gateway, store kvstore.Store, chainName string, onekvClient *onekv.Client, logger *log.Logger) *Materializer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ValidatorList] ", log.LstdFlags)
	}
	return &Materializer{
		client:  client,
		md:      md,
		gateway: gateway,
		store:   store,
		keys:    kvstore.Keys{Chain: chainName},
		onekv:   onekvClient,
		logger:  logger,
	}
}

// Update rebuilds the validator list as of header's block and writes
// it out fetch-then-replace: the whole prior per-validator key set is
// deleted and rewritten atomically so a subscriber never observes a
// mix of two materialization runs.
func (m *Materializer) Update(ctx context.Context, blockNumber uint64, blockHash substrate.Hash) error {
	started := time.Now()
	atBlockHash := blockHash.String()

	era, err := m.client.ActiveEra(ctx, atBlockHash, m.md.RuntimeConfig.EraDurationMillis)
	if err != nil {
		return fmt.Errorf("validatorlist: fetch active era: %w", err)
	}

	validators, err := m.client.AllValidators(ctx, m.md, atBlockHash, uint32(era.Index))
	if err != nil {
		return fmt.Errorf("validatorlist: fetch validators: %w", err)
	}

	var enrollment map[substrate.AccountID]*substrate.OneKVInfo
	if m.onekv != nil {
		enrollment, err = m.onekv.Candidates(ctx)
		if err != nil {
			// Enrollment data enriches the snapshot but does not gate
			// it; a cold endpoint must not stall the validator list.
			m.logger.Printf("skipping enrollment enrichment: %v", err)
		}
	}

	for _, v := range validators {
		if info, ok := enrollment[v.Account.ID]; ok {
			v.OneKV = info
		}
		info, err := m.gateway.Network.GetValidatorInfo(ctx, blockHash, v.Account.ID, v.IsActive, era.Index)
		if err != nil && err != database.ErrValidatorInfoNotFound {
			return fmt.Errorf("validatorlist: enrich validator %s: %w", v.Account.ID, err)
		}
		if err == nil {
			v.ValidatorStake = substrate.ValidatorStake{
				DiscoveredAt:        info.DiscoveredAt,
				KilledAt:            info.KilledAt,
				SlashCount:          info.SlashCount,
				OfflineOffenceCount: info.OfflineOffenceCount,
				ActiveEraCount:      info.ActiveEraCount,
				InactiveEraCount:    info.InactiveEraCount,
				TotalRewardPoints:   info.TotalRewardPoints,
				UnclaimedEraIndices: info.UnclaimedEraIndices,
				BlocksAuthored:      info.BlocksAuthored,
				RewardPoints:        info.RewardPoints,
				HeartbeatReceived:   info.HeartbeatReceived,
			}
		}
	}

	batch := m.store.NewBatch()
	previousRaw, err := m.store.Get(ctx, m.keys.FinalizedBlockNumber())
	if err != nil {
		return fmt.Errorf("validatorlist: read prior finalized block number: %w", err)
	}
	if len(previousRaw) > 0 {
		var previous uint64
		if _, err := fmt.Sscan(string(previousRaw), &previous); err == nil && previous != blockNumber {
			if err := batch.DelByPrefix(ctx, m.keys.ValidatorKeyPrefix(previous)); err != nil {
				return fmt.Errorf("validatorlist: clear prior validator keys: %w", err)
			}
		}
	}
	if err := batch.DelByPrefix(ctx, m.keys.ValidatorKeyPrefix(blockNumber)); err != nil {
		return fmt.Errorf("validatorlist: clear prior validator keys: %w", err)
	}

	var activeAddresses, inactiveAddresses []string
	for _, v := range validators {
		address := v.Account.ID.String()
		if v.IsActive {
			activeAddresses = append(activeAddresses, address)
		} else {
			inactiveAddresses = append(inactiveAddresses, address)
		}

		detailJSON, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("validatorlist: marshal validator %s: %w", address, err)
		}
		summaryJSON, err := json.Marshal(v.Summary())
		if err != nil {
			return fmt.Errorf("validatorlist: marshal validator summary %s: %w", address, err)
		}

		batch.Set(m.keys.ValidatorJSON(blockNumber, v.Account.ID, v.IsActive), detailJSON)
		batch.Set(m.keys.ValidatorHash(blockNumber, v.Account.ID, v.IsActive), fingerprintBytes(kvstore.Fingerprint(detailJSON)))
		batch.Set(m.keys.ValidatorSummaryHash(blockNumber, v.Account.ID, v.IsActive), fingerprintBytes(kvstore.Fingerprint(summaryJSON)))
	}

	batch.Del(m.keys.ActiveAddresses(), m.keys.InactiveAddresses())
	if len(activeAddresses) > 0 {
		batch.SAdd(m.keys.ActiveAddresses(), activeAddresses...)
	}
	if len(inactiveAddresses) > 0 {
		batch.SAdd(m.keys.InactiveAddresses(), inactiveAddresses...)
	}

	batch.MSet(map[string][]byte{
		m.keys.FinalizedBlockNumber(): []byte(fmt.Sprintf("%d", blockNumber)),
		m.keys.FinalizedBlockHash():   []byte(blockHash.String()),
	})

	batch.Publish(m.keys.ValidatorsPublishChannel(), fmt.Sprintf("%d", blockNumber))

	if err := batch.Exec(ctx); err != nil {
		return fmt.Errorf("validatorlist: commit batch: %w", err)
	}

	metrics.MaterializerRunSeconds.Observe(time.Since(started).Seconds())
	metrics.MaterializedValidators.WithLabelValues("active").Set(float64(len(activeAddresses)))
	metrics.MaterializedValidators.WithLabelValues("inactive").Set(float64(len(inactiveAddresses)))
	m.logger.Printf("materialized %d active, %d inactive validators at block #%d", len(activeAddresses), len(inactiveAddresses), blockNumber)
	return nil
}

func fingerprintBytes(fp uint64) []byte {
	return []byte(fmt.Sprintf("%d", fp))
}
