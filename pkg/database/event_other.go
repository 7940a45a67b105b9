package database

import (
	"context"
	"strings"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveOffencesOffence persists Offences.Offence. Multisig, Utility and
// Proxy have module tags in pkg/substrate/event.go, but the block
// processor builds no typed payload for their events, so they are
// stored through SaveOtherEvent like any other event this repository
// has no dedicated table for.
func (s *EventStore) SaveOffencesOffence(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.OffencesOffence) error {
	ids := make([]string, len(e.OffenderAccountIDs))
	for i, id := range e.OffenderAccountIDs {
		ids[i] = idHex(id)
	}
	return s.insertEvent(ctx, "event_offences_offence", blockHash, eventIndex, extrinsicIndex,
		", kind, time_slot, offender_account_ids", ", $4, $5, $6",
		e.Kind, e.TimeSlot, strings.Join(ids, ","))
}
