package subserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
)

func writeSnapshot(t *testing.T, store kvstore.Store, keys kvstore.Keys, blockNumber uint64, details *substrate.ValidatorDetails) {
	t.Helper()
	ctx := context.Background()
	raw, err := json.Marshal(details)
	require.NoError(t, err)
	id := details.Account.ID
	require.NoError(t, store.Set(ctx, keys.ValidatorJSON(blockNumber, id, details.IsActive), raw))
	require.NoError(t, store.Set(ctx, keys.ValidatorHash(blockNumber, id, details.IsActive),
		[]byte(fmt.Sprintf("%d", kvstore.Fingerprint(raw)))))
	require.NoError(t, store.Set(ctx, keys.FinalizedBlockNumber(), []byte(fmt.Sprintf("%d", blockNumber))))
}

func TestValidatorDetailsSubscriptionFullThenHeartbeatThenDiff(t *testing.T) {
	store := kvstore.NewMemStore()
	keys := kvstore.Keys{Chain: "kusama"}
	logger := log.New(os.Stderr, "[ValidatorDetailsServer] ", log.LstdFlags)
	service := NewValidatorDetailsService(store, "kusama", logger)

	var id substrate.AccountID
	id[0] = 0xaa
	details := &substrate.ValidatorDetails{
		Account:   substrate.Account{ID: id},
		IsActive:  true,
		SelfStake: "1000",
	}
	writeSnapshot(t, store, keys, 10, details)
	lastFinalizedBlockNumber.Store(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sent := make(chan any, 16)
	done := make(chan error, 1)
	go func() {
		done <- service.Handler()(ctx, []json.RawMessage{json.RawMessage(`"` + id.String() + `"`)},
			func(payload any) error {
				sent <- payload
				return nil
			})
	}()

	first := (<-sent).(detailsEnvelope)
	require.Equal(t, uint64(10), first.FinalizedBlockNumber)
	require.Equal(t, id, first.ValidatorDetails.Account.ID)
	require.Equal(t, "1000", first.ValidatorDetails.SelfStake)

	// Unchanged content at block 11: subscriber gets a heartbeat.
	writeSnapshot(t, store, keys, 11, details)
	service.bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: 11})
	heartbeat := (<-sent).(updateEnvelope)
	require.Equal(t, uint64(11), heartbeat.FinalizedBlockNumber)
	require.Nil(t, heartbeat.Diff)

	// Changed stake at block 12: subscriber gets a diff.
	changed := *details
	changed.SelfStake = "2000"
	writeSnapshot(t, store, keys, 12, &changed)
	service.bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: 12})
	update := (<-sent).(updateEnvelope)
	require.Equal(t, uint64(12), update.FinalizedBlockNumber)
	require.NotNil(t, update.Diff)
	require.NotNil(t, update.Diff.SelfStake)
	require.Equal(t, "2000", *update.Diff.SelfStake)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler did not exit on context cancellation")
	}
}

func TestValidatorDetailsSubscriptionRejectsInvalidAccountID(t *testing.T) {
	store := kvstore.NewMemStore()
	service := NewValidatorDetailsService(store, "kusama", nil)

	err := service.Handler()(context.Background(),
		[]json.RawMessage{json.RawMessage(`"0xnothex"`)},
		func(any) error { return nil })
	require.Error(t, err)
}

// A missing validator keeps the subscription open rather than
// terminating it.
func TestValidatorDetailsSubscriptionSurvivesMissingValidator(t *testing.T) {
	store := kvstore.NewMemStore()
	keys := kvstore.Keys{Chain: "kusama"}
	service := NewValidatorDetailsService(store, "kusama", nil)

	var id substrate.AccountID
	id[0] = 0xbb

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sent := make(chan any, 16)
	done := make(chan error, 1)
	go func() {
		done <- service.Handler()(ctx, []json.RawMessage{json.RawMessage(`"` + id.String() + `"`)},
			func(payload any) error {
				sent <- payload
				return nil
			})
	}()

	// Nothing published yet; nothing sent, handler still alive.
	select {
	case <-done:
		t.Fatal("handler exited for a missing validator")
	case <-time.After(50 * time.Millisecond):
	}

	// The validator appears: the full snapshot goes out.
	details := &substrate.ValidatorDetails{Account: substrate.Account{ID: id}, IsActive: false, SelfStake: "7"}
	writeSnapshot(t, store, keys, 20, details)
	service.bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: 20})

	first := (<-sent).(detailsEnvelope)
	require.Equal(t, uint64(20), first.FinalizedBlockNumber)
	require.Equal(t, "7", first.ValidatorDetails.SelfStake)
}
