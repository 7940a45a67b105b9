package database

import (
	"context"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// EventStore is the relational façade over per-pallet chain-event
// tables, organized by pallet across event_democracy.go,
// event_referenda.go, event_staking.go, event_system.go,
// event_imonline.go, event_other.go and para.go.
type EventStore struct {
	client *Client
}

// NewEventStore wraps client as an EventStore.
func NewEventStore(client *Client) *EventStore {
	return &EventStore{client: client}
}

// insertEvent runs the common ON CONFLICT (block_hash, event_index) DO
// NOTHING shape every save_*_event operation shares.
func (s *EventStore) insertEvent(ctx context.Context, table string, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, columns string, placeholders string, args ...interface{}) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (block_hash, event_index, extrinsic_index%s)
		VALUES ($1, $2, $3%s)
		ON CONFLICT (block_hash, event_index) DO NOTHING`, table, columns, placeholders)
	full := append([]interface{}{hashHex(blockHash), eventIndex, extrinsicIndex}, args...)
	if _, err := s.client.ExecContext(ctx, query, full...); err != nil {
		return fmt.Errorf("database: save %s event (%s, %d): %w", table, hashHex(blockHash), eventIndex, err)
	}
	return nil
}

// updateNestingIndex is the shared update_*_event_nesting_index shape:
// a second pass fills in the position of an event that originated
// inside a batched/nested dispatch, keyed the same way as the insert.
func (s *EventStore) updateNestingIndex(ctx context.Context, table string, blockHash substrate.Hash, eventIndex int, nestingIndex string) error {
	query := fmt.Sprintf(`UPDATE %s SET nesting_index = $3 WHERE block_hash = $1 AND event_index = $2`, table)
	if _, err := s.client.ExecContext(ctx, query, hashHex(blockHash), eventIndex, nestingIndex); err != nil {
		return fmt.Errorf("database: update %s nesting index (%s, %d): %w", table, hashHex(blockHash), eventIndex, err)
	}
	return nil
}

// SaveEvent dispatches a decoded SubstrateEvent to the correct
// per-pallet table based on its Payload's concrete type. Unrecognized
// or EventModuleOther events are persisted through SaveOtherEvent so
// the block still has a complete, queryable event list.
func (s *EventStore) SaveEvent(ctx context.Context, e *substrate.SubstrateEvent) error {
	switch p := e.Payload.(type) {
	case *substrate.DemocracyVoted:
		return s.SaveDemocracyVoted(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyProposed:
		return s.SaveDemocracyProposed(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracySeconded:
		return s.SaveDemocracySeconded(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyStarted:
		return s.SaveDemocracyStarted(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyPassed:
		return s.SaveDemocracyPassed(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyNotPassed:
		return s.SaveDemocracyNotPassed(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyCancelled:
		return s.SaveDemocracyCancelled(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyDelegated:
		return s.SaveDemocracyDelegated(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.DemocracyUndelegated:
		return s.SaveDemocracyUndelegated(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ReferendaSubmitted:
		return s.SaveReferendaSubmitted(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ReferendaApproved:
		return s.SaveReferendaApproved(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ReferendaRejected:
		return s.SaveReferendaRejected(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingSlashed:
		return s.SaveStakingSlashed(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingChilled:
		return s.SaveStakingChilled(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingBonded:
		return s.SaveStakingBonded(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingUnbonded:
		return s.SaveStakingUnbonded(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingPayoutStarted:
		return s.SaveStakingPayoutStarted(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingRewarded:
		return s.SaveStakingRewarded(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.StakingEraPaid:
		return s.SaveStakingEraPaid(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.SystemExtrinsicSuccess:
		return s.SaveSystemExtrinsicSuccess(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex)
	case *substrate.SystemExtrinsicFailed:
		return s.SaveSystemExtrinsicFailed(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.SystemNewAccount:
		return s.SaveSystemNewAccount(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.SystemKilledAccount:
		return s.SaveSystemKilledAccount(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ImOnlineHeartbeatReceived:
		return s.SaveImOnlineHeartbeatReceived(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ImOnlineAllGood:
		return s.SaveImOnlineAllGood(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex)
	case *substrate.ImOnlineSomeOffline:
		return s.SaveImOnlineSomeOffline(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.OffencesOffence:
		return s.SaveOffencesOffence(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ParaLeaseGranted:
		return s.SaveParaLeaseGranted(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	case *substrate.ParaAuctionClosed:
		return s.SaveParaAuctionClosed(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, p)
	default:
		return s.SaveOtherEvent(ctx, e.BlockHash, e.EventIndex, e.ExtrinsicIndex, e.OtherModuleName, e.OtherEventName, e.RawArguments)
	}
}

// UpdateEventNestingIndex dispatches the nesting-index update to the
// right table based on module, used by the block processor's second
// pass over batched/nested dispatch.
func (s *EventStore) UpdateEventNestingIndex(ctx context.Context, module substrate.EventModule, blockHash substrate.Hash, eventIndex int, nestingIndex string) error {
	table, ok := nestableEventTables[module]
	if !ok {
		return s.updateNestingIndex(ctx, "event_other", blockHash, eventIndex, nestingIndex)
	}
	return s.updateNestingIndex(ctx, table, blockHash, eventIndex, nestingIndex)
}

var nestableEventTables = map[substrate.EventModule]string{
	substrate.EventModuleDemocracy: "event_democracy_voted",
	substrate.EventModuleReferenda: "event_referenda_submitted",
	substrate.EventModuleStaking:   "event_staking_rewarded",
	substrate.EventModuleSystem:    "event_system_extrinsic_success",
	substrate.EventModuleImOnline:  "event_imonline_heartbeat_received",
	substrate.EventModulePara:      "event_para_lease_granted",
}

// SaveOtherEvent persists an event that decoded as Other -- a pallet
// or event name this repository has no typed payload for -- retaining
// the printed form of its decoded arguments for diagnostics. An event
// whose arguments fail to decode never reaches here: DecodeEvents
// returns an error for the whole block instead.
func (s *EventStore) SaveOtherEvent(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, moduleName, eventName string, rawArguments []byte) error {
	return s.insertEvent(ctx, "event_other", blockHash, eventIndex, extrinsicIndex,
		", module_name, event_name, raw_arguments", ", $4, $5, $6", moduleName, eventName, rawArguments)
}
