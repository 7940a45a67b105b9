package notificationgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/subvt-network/subvt/pkg/app"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// validatorDiffInspector compares the last validator snapshot it saw
// against the one currently published in the key/value store and
// raises notifications for the fields users subscribe to: 1KV rank,
// location, validity and binary version, plus online/offline status.
// The per-validator fingerprint keys let it skip unchanged validators
// without deserializing their JSON.
type validatorDiffInspector struct {
	inspector *Inspector
	store     kvstore.Store
	keys      kvstore.Keys
	logger    *log.Logger

	last map[substrate.AccountID]*snapshotRecord
}

type snapshotRecord struct {
	fingerprint uint64
	details     *substrate.ValidatorDetails
}

func newValidatorDiffInspector(inspector *Inspector, store kvstore.Store, keys kvstore.Keys, logger *log.Logger) *validatorDiffInspector {
	return &validatorDiffInspector{
		inspector: inspector,
		store:     store,
		keys:      keys,
		logger:    logger,
		last:      make(map[substrate.AccountID]*snapshotRecord),
	}
}

// Inspect walks the currently published validator set. blockNumber is
// the inspected chain block; the snapshots themselves are keyed by the
// materializer's own finalized block number, read from the store.
func (v *validatorDiffInspector) Inspect(ctx context.Context, blockNumber uint64) error {
	publishedRaw, err := v.store.Get(ctx, v.keys.FinalizedBlockNumber())
	if err != nil {
		return fmt.Errorf("read published finalized block number: %w", err)
	}
	if len(publishedRaw) == 0 {
		// The materializer has not published yet; nothing to diff.
		return nil
	}
	publishedBlockNumber, err := strconv.ParseUint(string(publishedRaw), 10, 64)
	if err != nil {
		return fmt.Errorf("parse published finalized block number %q: %w", publishedRaw, err)
	}

	block := app.BlockContext{BlockNumber: blockNumber}
	if persisted, err := v.inspector.gateway.Network.GetBlockByNumber(ctx, blockNumber); err == nil {
		block.BlockHash = persisted.Hash
		block.TimestampMillis = persisted.TimestampMillis
	}

	for _, active := range []bool{true, false} {
		if err := v.inspectSet(ctx, block, publishedBlockNumber, active); err != nil {
			return err
		}
	}
	return nil
}

func (v *validatorDiffInspector) inspectSet(ctx context.Context, block app.BlockContext, publishedBlockNumber uint64, active bool) error {
	setKey := v.keys.ActiveAddresses()
	if !active {
		setKey = v.keys.InactiveAddresses()
	}
	addresses, err := v.store.SMembers(ctx, setKey)
	if err != nil {
		return fmt.Errorf("read address set %s: %w", setKey, err)
	}
	for _, address := range addresses {
		id, err := substrate.ParseAccountID(address)
		if err != nil {
			v.logger.Printf("skipping malformed address %q in %s: %v", address, setKey, err)
			continue
		}
		if err := v.inspectValidator(ctx, block, publishedBlockNumber, id, active); err != nil {
			return err
		}
	}
	return nil
}

func (v *validatorDiffInspector) inspectValidator(ctx context.Context, block app.BlockContext, publishedBlockNumber uint64, id substrate.AccountID, active bool) error {
	hashRaw, err := v.store.Get(ctx, v.keys.ValidatorHash(publishedBlockNumber, id, active))
	if err != nil {
		return fmt.Errorf("read fingerprint for %s: %w", id, err)
	}
	if len(hashRaw) == 0 {
		// The snapshot was republished between the set read and now;
		// the next block's inspection picks it up.
		return nil
	}
	fingerprint, err := strconv.ParseUint(string(hashRaw), 10, 64)
	if err != nil {
		return fmt.Errorf("parse fingerprint for %s: %w", id, err)
	}

	prev := v.last[id]
	if prev != nil && prev.fingerprint == fingerprint {
		return nil
	}

	detailRaw, err := v.store.Get(ctx, v.keys.ValidatorJSON(publishedBlockNumber, id, active))
	if err != nil {
		return fmt.Errorf("read snapshot for %s: %w", id, err)
	}
	if len(detailRaw) == 0 {
		return nil
	}
	curr := &substrate.ValidatorDetails{}
	if err := json.Unmarshal(detailRaw, curr); err != nil {
		return fmt.Errorf("decode snapshot for %s: %w", id, err)
	}

	if prev != nil {
		if err := v.raiseChanges(ctx, block, id, prev.details, curr); err != nil {
			return err
		}
	}
	v.last[id] = &snapshotRecord{fingerprint: fingerprint, details: curr}
	return nil
}

// onlineStatusChange is the parameter payload for an online/offline
// transition, derived from the im-online heartbeat flag.
type onlineStatusChange struct {
	Online bool `json:"online"`
}

type scalarChange struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

func (v *validatorDiffInspector) raiseChanges(ctx context.Context, block app.BlockContext, id substrate.AccountID, prev, curr *substrate.ValidatorDetails) error {
	if prev.HeartbeatReceived != curr.HeartbeatReceived {
		if err := v.inspector.generateNotifications(ctx, block,
			app.NotificationChainValidatorOnlineStatusChange, id,
			onlineStatusChange{Online: curr.HeartbeatReceived}); err != nil {
			return err
		}
	}

	prevKV, currKV := prev.OneKV, curr.OneKV
	if currKV == nil {
		return nil
	}
	if prevKV == nil {
		// First appearance in the 1KV registry is not itself a change.
		return nil
	}
	if prevKV.Rank != currKV.Rank {
		if err := v.inspector.generateNotifications(ctx, block,
			app.NotificationChainValidatorRankChange, id,
			scalarChange{Previous: strconv.Itoa(prevKV.Rank), Current: strconv.Itoa(currKV.Rank)}); err != nil {
			return err
		}
	}
	if prevKV.Location != currKV.Location {
		if err := v.inspector.generateNotifications(ctx, block,
			app.NotificationChainValidatorLocationChange, id,
			scalarChange{Previous: prevKV.Location, Current: currKV.Location}); err != nil {
			return err
		}
	}
	if prevKV.BinaryVersion != currKV.BinaryVersion {
		if err := v.inspector.generateNotifications(ctx, block,
			app.NotificationChainValidatorBinaryVersionChange, id,
			scalarChange{Previous: prevKV.BinaryVersion, Current: currKV.BinaryVersion}); err != nil {
			return err
		}
	}
	if validityChanged(prevKV.Validity, currKV.Validity) {
		if err := v.inspector.generateNotifications(ctx, block,
			app.NotificationChainValidatorValidityChange, id,
			struct {
				Validity []string `json:"validity"`
			}{Validity: currKV.Validity}); err != nil {
			return err
		}
	}
	return nil
}

func validityChanged(prev, curr []string) bool {
	if len(prev) != len(curr) {
		return true
	}
	for i := range prev {
		if prev[i] != curr[i] {
			return true
		}
	}
	return false
}
