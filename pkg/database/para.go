package database

import (
	"context"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveParaLeaseGranted persists Para.Leased, a parachain lease/auction
// event observed on relay chains.
func (s *EventStore) SaveParaLeaseGranted(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ParaLeaseGranted) error {
	return s.insertEvent(ctx, "event_para_lease_granted", blockHash, eventIndex, extrinsicIndex,
		", para_id, leasing_account_id, period_begin, period_count", ", $4, $5, $6, $7",
		e.ParaID, idHex(e.LeasingAccountID), e.PeriodBegin, e.PeriodCount)
}

// SaveParaAuctionClosed persists Para.AuctionClosed.
func (s *EventStore) SaveParaAuctionClosed(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ParaAuctionClosed) error {
	return s.insertEvent(ctx, "event_para_auction_closed", blockHash, eventIndex, extrinsicIndex,
		", auction_index", ", $4", e.AuctionIndex)
}
