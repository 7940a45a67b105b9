package database

import (
	"context"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveDemocracyVoted persists Democracy.Voted.
func (s *EventStore) SaveDemocracyVoted(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyVoted) error {
	return s.insertEvent(ctx, "event_democracy_voted", blockHash, eventIndex, extrinsicIndex,
		", account_id, referendum_index, aye_balance, nay_balance, conviction",
		", $4, $5, $6, $7, $8",
		idHex(e.AccountID), e.ReferendumIndex, e.Vote.AyeBalance(), e.Vote.NayBalance(), e.Vote.ConvictionValue())
}

// SaveDemocracyProposed persists Democracy.Proposed.
func (s *EventStore) SaveDemocracyProposed(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyProposed) error {
	return s.insertEvent(ctx, "event_democracy_proposed", blockHash, eventIndex, extrinsicIndex,
		", proposal_index, deposit", ", $4, $5", e.ProposalIndex, e.Deposit)
}

// SaveDemocracySeconded persists Democracy.Seconded.
func (s *EventStore) SaveDemocracySeconded(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracySeconded) error {
	return s.insertEvent(ctx, "event_democracy_seconded", blockHash, eventIndex, extrinsicIndex,
		", account_id, proposal_index", ", $4, $5", idHex(e.AccountID), e.ProposalIndex)
}

// SaveDemocracyStarted persists Democracy.Started.
func (s *EventStore) SaveDemocracyStarted(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyStarted) error {
	return s.insertEvent(ctx, "event_democracy_started", blockHash, eventIndex, extrinsicIndex,
		", referendum_index, vote_threshold", ", $4, $5", e.ReferendumIndex, e.VoteThreshold)
}

// SaveDemocracyPassed persists Democracy.Passed.
func (s *EventStore) SaveDemocracyPassed(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyPassed) error {
	return s.insertEvent(ctx, "event_democracy_passed", blockHash, eventIndex, extrinsicIndex,
		", referendum_index", ", $4", e.ReferendumIndex)
}

// SaveDemocracyNotPassed persists Democracy.NotPassed.
func (s *EventStore) SaveDemocracyNotPassed(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyNotPassed) error {
	return s.insertEvent(ctx, "event_democracy_not_passed", blockHash, eventIndex, extrinsicIndex,
		", referendum_index", ", $4", e.ReferendumIndex)
}

// SaveDemocracyCancelled persists Democracy.Cancelled.
func (s *EventStore) SaveDemocracyCancelled(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyCancelled) error {
	return s.insertEvent(ctx, "event_democracy_cancelled", blockHash, eventIndex, extrinsicIndex,
		", referendum_index", ", $4", e.ReferendumIndex)
}

// SaveDemocracyDelegated persists Democracy.Delegated.
func (s *EventStore) SaveDemocracyDelegated(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyDelegated) error {
	return s.insertEvent(ctx, "event_democracy_delegated", blockHash, eventIndex, extrinsicIndex,
		", original_account_id, delegate_account_id", ", $4, $5", idHex(e.OriginalAccountID), idHex(e.DelegateAccountID))
}

// SaveDemocracyUndelegated persists Democracy.Undelegated.
func (s *EventStore) SaveDemocracyUndelegated(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.DemocracyUndelegated) error {
	return s.insertEvent(ctx, "event_democracy_undelegated", blockHash, eventIndex, extrinsicIndex,
		", account_id", ", $4", idHex(e.AccountID))
}
