package database

import (
	"context"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveSystemExtrinsicSuccess persists System.ExtrinsicSuccess.
func (s *EventStore) SaveSystemExtrinsicSuccess(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int) error {
	return s.insertEvent(ctx, "event_system_extrinsic_success", blockHash, eventIndex, extrinsicIndex, "", "")
}

// SaveSystemExtrinsicFailed persists System.ExtrinsicFailed.
func (s *EventStore) SaveSystemExtrinsicFailed(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.SystemExtrinsicFailed) error {
	return s.insertEvent(ctx, "event_system_extrinsic_failed", blockHash, eventIndex, extrinsicIndex,
		", dispatch_error", ", $4", e.DispatchError)
}

// SaveSystemNewAccount persists System.NewAccount.
func (s *EventStore) SaveSystemNewAccount(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.SystemNewAccount) error {
	return s.insertEvent(ctx, "event_system_new_account", blockHash, eventIndex, extrinsicIndex,
		", account_id", ", $4", idHex(e.AccountID))
}

// SaveSystemKilledAccount persists System.KilledAccount.
func (s *EventStore) SaveSystemKilledAccount(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.SystemKilledAccount) error {
	return s.insertEvent(ctx, "event_system_killed_account", blockHash, eventIndex, extrinsicIndex,
		", account_id", ", $4", idHex(e.AccountID))
}
