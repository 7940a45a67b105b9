package database

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// SaveImOnlineHeartbeatReceived persists ImOnline.HeartbeatReceived.
func (s *EventStore) SaveImOnlineHeartbeatReceived(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ImOnlineHeartbeatReceived) error {
	return s.insertEvent(ctx, "event_imonline_heartbeat_received", blockHash, eventIndex, extrinsicIndex,
		", validator_authority_index, validator_account_id", ", $4, $5", e.ValidatorAuthorityIndex, idHex(e.ValidatorAccountID))
}

// SaveImOnlineAllGood persists ImOnline.AllGood.
func (s *EventStore) SaveImOnlineAllGood(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int) error {
	return s.insertEvent(ctx, "event_imonline_all_good", blockHash, eventIndex, extrinsicIndex, "", "")
}

// SaveImOnlineSomeOffline persists ImOnline.SomeOffline. The offline
// account list is stored as a comma-separated hex string since the
// logical schema is implementation detail; the notification
// generator's offline-offence inspector reads it back with
// OfflineAccountIDsFromCSV.
func (s *EventStore) SaveImOnlineSomeOffline(ctx context.Context, blockHash substrate.Hash, eventIndex int, extrinsicIndex *int, e *substrate.ImOnlineSomeOffline) error {
	ids := make([]string, len(e.OfflineAccountIDs))
	for i, id := range e.OfflineAccountIDs {
		ids[i] = idHex(id)
	}
	return s.insertEvent(ctx, "event_imonline_some_offline", blockHash, eventIndex, extrinsicIndex,
		", offline_account_ids", ", $4", strings.Join(ids, ","))
}

// OfflineOffenceEvent pairs an event index with one of the accounts
// named in that ImOnline.SomeOffline event's account list -- one
// SomeOffline event can name several offenders, and the notification
// generator matches rules per offender account.
type OfflineOffenceEvent struct {
	EventIndex         int
	ValidatorAccountID substrate.AccountID
}

// GetOfflineOffenceEvents flattens every ImOnline.SomeOffline event
// persisted for blockHash into one (event, validator) pair per
// offending account.
func (s *EventStore) GetOfflineOffenceEvents(ctx context.Context, blockHash substrate.Hash) ([]*OfflineOffenceEvent, error) {
	rows, err := s.client.QueryContext(ctx, `
		SELECT event_index, offline_account_ids FROM event_imonline_some_offline
		WHERE block_hash = $1 ORDER BY event_index ASC`, hashHex(blockHash))
	if err != nil {
		return nil, fmt.Errorf("database: get offline offence events in block %s: %w", hashHex(blockHash), err)
	}
	defer rows.Close()

	var out []*OfflineOffenceEvent
	for rows.Next() {
		var eventIndex int
		var csv string
		if err := rows.Scan(&eventIndex, &csv); err != nil {
			return nil, fmt.Errorf("database: scan offline offence event: %w", err)
		}
		ids, err := OfflineAccountIDsFromCSV(csv)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			out = append(out, &OfflineOffenceEvent{EventIndex: eventIndex, ValidatorAccountID: id})
		}
	}
	return out, rows.Err()
}

// OfflineAccountIDsFromCSV parses the comma-separated hex account id
// list SaveImOnlineSomeOffline stores back into typed account ids.
func OfflineAccountIDsFromCSV(csv string) ([]substrate.AccountID, error) {
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	ids := make([]substrate.AccountID, len(parts))
	for i, p := range parts {
		b, err := hex.DecodeString(strings.TrimPrefix(p, "0x"))
		if err != nil || len(b) != 32 {
			return nil, substrateAccountIDParseError(p)
		}
		copy(ids[i][:], b)
	}
	return ids, nil
}

func substrateAccountIDParseError(raw string) error {
	return &accountIDParseError{raw: raw}
}

type accountIDParseError struct{ raw string }

func (e *accountIDParseError) Error() string {
	return "database: malformed account id in offline list: " + e.raw
}
