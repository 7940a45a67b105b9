package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/substrate"
)

func TestFingerprintStableForSameContent(t *testing.T) {
	a := Fingerprint([]byte(`{"is_active":true}`))
	b := Fingerprint([]byte(`{"is_active":true}`))
	require.Equal(t, a, b)
	require.NotEqual(t, a, Fingerprint([]byte(`{"is_active":false}`)))
}

func TestMemStoreSetsAndSets(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, s.SAdd(ctx, "set", "a", "b"))
	require.NoError(t, s.SAdd(ctx, "set", "b", "c"))
	members, err := s.SMembers(ctx, "set")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, members)
}

func TestMemStoreDelByPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Set(ctx, "subvt:kusama:validators:10:active:validator:0xaa", []byte("x")))
	require.NoError(t, s.Set(ctx, "subvt:kusama:validators:10:active:validator:0xbb", []byte("y")))
	require.NoError(t, s.Set(ctx, "subvt:kusama:live_network_status", []byte("z")))

	require.NoError(t, s.DelByPrefix(ctx, "subvt:kusama:validators:10:"))

	v, err := s.Get(ctx, "subvt:kusama:validators:10:active:validator:0xaa")
	require.NoError(t, err)
	require.Nil(t, v)
	v, err = s.Get(ctx, "subvt:kusama:live_network_status")
	require.NoError(t, err)
	require.Equal(t, []byte("z"), v)
}

func TestBatchExecAppliesWritesAndPublishes(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	keys := Keys{Chain: "kusama"}

	messages, err := s.Subscribe(ctx, keys.ValidatorsPublishChannel())
	require.NoError(t, err)

	batch := s.NewBatch()
	batch.MSet(map[string][]byte{
		keys.FinalizedBlockNumber(): []byte("42"),
		keys.FinalizedBlockHash():   []byte("0xabc"),
	})
	batch.SAdd(keys.ActiveAddresses(), "0x01", "0x02")
	batch.Publish(keys.ValidatorsPublishChannel(), "42")
	require.NoError(t, batch.Exec(ctx))

	v, err := s.Get(ctx, keys.FinalizedBlockNumber())
	require.NoError(t, err)
	require.Equal(t, []byte("42"), v)

	members, err := s.SMembers(ctx, keys.ActiveAddresses())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"0x01", "0x02"}, members)

	require.Equal(t, "42", <-messages)
}

func TestKeysMatchWireContract(t *testing.T) {
	keys := Keys{Chain: "kusama"}
	var id substrate.AccountID
	id[0] = 0xab

	require.Equal(t, "subvt:kusama:validators:finalized_block_number", keys.FinalizedBlockNumber())
	require.Equal(t, "subvt:kusama:validators:active:addresses", keys.ActiveAddresses())
	require.Equal(t, "subvt:kusama:validators:inactive:addresses", keys.InactiveAddresses())
	require.Equal(t, "subvt:kusama:live_network_status", keys.LiveNetworkStatus())
	require.Equal(t, "subvt:kusama:validators:publish:finalized_block_number", keys.ValidatorsPublishChannel())
	require.Equal(t, "subvt:kusama:live_network_status:publish:best_block_number", keys.LiveNetworkStatusPublishChannel())

	jsonKey := keys.ValidatorJSON(7, id, true)
	require.Equal(t, "subvt:kusama:validators:7:active:validator:"+id.String(), jsonKey)
	require.Equal(t, jsonKey+":hash", keys.ValidatorHash(7, id, true))
	require.Equal(t, jsonKey+":summary_hash", keys.ValidatorSummaryHash(7, id, true))
	require.Equal(t, "subvt:kusama:validators:7:inactive:validator:"+id.String(), keys.ValidatorJSON(7, id, false))
}
