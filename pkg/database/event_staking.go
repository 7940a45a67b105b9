package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// ChilledEvent is the reduced projection of a Staking.Chilled row the
// notification generator's chilling inspector reads back.
type ChilledEvent struct {
	EventIndex     int
	ExtrinsicIndex *int
	AccountID      substrate.AccountID
}

// GetChilledEvents returns every Staking.Chilled event persisted for
// blockHash, in event order.
func (s *EventStore) GetChilledEvents(ctx context.Context, blockHash substrate.Hash) ([]*ChilledEvent, error) {
	rows, err := s.client.QueryContext(ctx, `
		SELECT event_index, extrinsic_index, account_id FROM event_staking_chilled
		WHERE block_hash = $1 ORDER BY event_index ASC`, hashHex(blockHash))
	if err != nil {
		return nil, fmt.Errorf("database: get chilled events in block %s: %w", hashHex(blockHash), err)
	}
	defer rows.Close()

	var out []*ChilledEvent
	for rows.Next() {
		var extrinsicIndex sql.NullInt64
		var accountHex string
		e := &ChilledEvent{}
		if err := rows.Scan(&e.EventIndex, &extrinsicIndex, &accountHex); err != nil {
			return nil, fmt.Errorf("database: scan chilled event: %w", err)
		}
		if extrinsicIndex.Valid {
			v := int(extrinsicIndex.Int64)
			e.ExtrinsicIndex = &v
		}
		id, err := accountIDFromHex(accountHex)
		if err != nil {
			return nil, err
		}
		e.AccountID = id
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveStakingSlashed persists Staking.Slashed.
func (s *EventStore) SaveStakingSlashed(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingSlashed) error {
	return s.insertEvent(ctx, "event_staking_slashed", blockHash, eventIndex, extrinsicIndex,
		", account_id, amount", ", $4, $5", idHex(e.AccountID), e.Amount)
}

// SaveStakingChilled persists Staking.Chilled.
func (s *EventStore) SaveStakingChilled(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingChilled) error {
	return s.insertEvent(ctx, "event_staking_chilled", blockHash, eventIndex, extrinsicIndex,
		", account_id", ", $4", idHex(e.AccountID))
}

// SaveStakingBonded persists Staking.Bonded.
func (s *EventStore) SaveStakingBonded(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingBonded) error {
	return s.insertEvent(ctx, "event_staking_bonded", blockHash, eventIndex, extrinsicIndex,
		", account_id, amount", ", $4, $5", idHex(e.AccountID), e.Amount)
}

// SaveStakingUnbonded persists Staking.Unbonded.
func (s *EventStore) SaveStakingUnbonded(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingUnbonded) error {
	return s.insertEvent(ctx, "event_staking_unbonded", blockHash, eventIndex, extrinsicIndex,
		", account_id, amount", ", $4, $5", idHex(e.AccountID), e.Amount)
}

// SaveStakingPayoutStarted persists Staking.PayoutStarted.
func (s *EventStore) SaveStakingPayoutStarted(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingPayoutStarted) error {
	return s.insertEvent(ctx, "event_staking_payout_started", blockHash, eventIndex, extrinsicIndex,
		", era_index, validator_account_id", ", $4, $5", e.EraIndex, idHex(e.ValidatorAccountID))
}

// SaveStakingRewarded persists Staking.Rewarded.
func (s *EventStore) SaveStakingRewarded(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingRewarded) error {
	return s.insertEvent(ctx, "event_staking_rewarded", blockHash, eventIndex, extrinsicIndex,
		", account_id, amount", ", $4, $5", idHex(e.AccountID), e.Amount)
}

// SaveStakingEraPaid persists Staking.EraPaid.
func (s *EventStore) SaveStakingEraPaid(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.StakingEraPaid) error {
	return s.insertEvent(ctx, "event_staking_era_paid", blockHash, eventIndex, extrinsicIndex,
		", era_index, total_payout, remainder", ", $4, $5, $6", e.EraIndex, e.TotalPayout, e.Remainder)
}
