package notificationgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/subvt-network/subvt/pkg/app"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// unclaimedPayoutInspector raises one notification per validator that
// still has unclaimed reward eras once the current era is old enough.
// Every inspected block triggers the check, but an era is only swept
// once: the processed-era marker in the relational store gates it, and
// the configured delay gives validators a grace period after the era
// boundary before nagging them.
type unclaimedPayoutInspector struct {
	inspector       *Inspector
	store           kvstore.Store
	keys            kvstore.Keys
	checkDelayHours int
	logger          *log.Logger
}

func newUnclaimedPayoutInspector(inspector *Inspector, store kvstore.Store, keys kvstore.Keys, checkDelayHours int, logger *log.Logger) *unclaimedPayoutInspector {
	return &unclaimedPayoutInspector{
		inspector:       inspector,
		store:           store,
		keys:            keys,
		checkDelayHours: checkDelayHours,
		logger:          logger,
	}
}

// unclaimedPayoutParams is the notification's serialized payload.
type unclaimedPayoutParams struct {
	EraIndices []int64 `json:"era_indices"`
}

func (u *unclaimedPayoutInspector) Inspect(ctx context.Context, blockNumber uint64) error {
	era, err := u.inspector.gateway.Network.GetLatestEra(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest era: %w", err)
	}
	delay := time.Duration(u.checkDelayHours) * time.Hour
	if time.Since(time.UnixMilli(era.StartTimestampMillis)) < delay {
		return nil
	}
	processed, err := u.inspector.gateway.App.HasProcessedEraForUnclaimedPayouts(ctx, era.Index)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	block := app.BlockContext{BlockNumber: blockNumber}
	if persisted, err := u.inspector.gateway.Network.GetBlockByNumber(ctx, blockNumber); err == nil {
		block.BlockHash = persisted.Hash
		block.TimestampMillis = persisted.TimestampMillis
	}

	publishedRaw, err := u.store.Get(ctx, u.keys.FinalizedBlockNumber())
	if err != nil {
		return fmt.Errorf("read published finalized block number: %w", err)
	}
	if len(publishedRaw) == 0 {
		// No published validator set yet; retry on a later block while
		// the era remains unmarked.
		return nil
	}
	publishedBlockNumber, err := strconv.ParseUint(string(publishedRaw), 10, 64)
	if err != nil {
		return fmt.Errorf("parse published finalized block number %q: %w", publishedRaw, err)
	}

	for _, active := range []bool{true, false} {
		setKey := u.keys.ActiveAddresses()
		if !active {
			setKey = u.keys.InactiveAddresses()
		}
		addresses, err := u.store.SMembers(ctx, setKey)
		if err != nil {
			return fmt.Errorf("read address set %s: %w", setKey, err)
		}
		for _, address := range addresses {
			id, err := substrate.ParseAccountID(address)
			if err != nil {
				u.logger.Printf("skipping malformed address %q in %s: %v", address, setKey, err)
				continue
			}
			raw, err := u.store.Get(ctx, u.keys.ValidatorJSON(publishedBlockNumber, id, active))
			if err != nil {
				return fmt.Errorf("read snapshot for %s: %w", id, err)
			}
			if len(raw) == 0 {
				continue
			}
			details := &substrate.ValidatorDetails{}
			if err := json.Unmarshal(raw, details); err != nil {
				return fmt.Errorf("decode snapshot for %s: %w", id, err)
			}
			if len(details.UnclaimedEraIndices) == 0 {
				continue
			}
			if err := u.inspector.generateNotifications(ctx, block,
				app.NotificationChainValidatorUnclaimedPayout, id,
				unclaimedPayoutParams{EraIndices: details.UnclaimedEraIndices}); err != nil {
				return err
			}
		}
	}

	if err := u.inspector.gateway.App.MarkEraProcessedForUnclaimedPayouts(ctx, era.Index); err != nil {
		return err
	}
	u.logger.Printf("swept unclaimed payouts for era %d at block #%d", era.Index, blockNumber)
	return nil
}
