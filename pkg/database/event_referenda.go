package database

import (
	"context"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveReferendaSubmitted persists Referenda.Submitted.
func (s *EventStore) SaveReferendaSubmitted(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ReferendaSubmitted) error {
	return s.insertEvent(ctx, "event_referenda_submitted", blockHash, eventIndex, extrinsicIndex,
		", index, track_id, proposal_hash", ", $4, $5, $6", e.Index, e.TrackID, hashHex(e.ProposalHash))
}

// SaveReferendaApproved persists Referenda.Approved.
func (s *EventStore) SaveReferendaApproved(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ReferendaApproved) error {
	return s.insertEvent(ctx, "event_referenda_approved", blockHash, eventIndex, extrinsicIndex,
		", index", ", $4", e.Index)
}

// SaveReferendaRejected persists Referenda.Rejected.
func (s *EventStore) SaveReferendaRejected(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ReferendaRejected) error {
	return s.insertEvent(ctx, "event_referenda_rejected", blockHash, eventIndex, extrinsicIndex,
		", index", ", $4", e.Index)
}
