package blockprocessor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/substrate"
)

func testMetadataWithStakingSlashed() *metadata.Metadata {
	return &metadata.Metadata{
		Version: metadata.VersionV13,
		Modules: map[uint8]*metadata.ModuleMetadata{
			7: {
				Index: 7,
				Name:  "Staking",
				Calls: map[uint8]*metadata.CallMetadata{},
				Events: map[uint8]*metadata.EventMetadata{
					0: {Index: 0, Name: "Slashed", Arguments: []metadata.ArgumentMeta{
						{Kind: metadata.ArgumentMetaPrimitive, Primitive: "AccountId"},
						{Kind: metadata.ArgumentMetaPrimitive, Primitive: "Balance"},
					}},
				},
			},
			0: {
				Index: 0,
				Name:  "System",
				Calls: map[uint8]*metadata.CallMetadata{},
				Events: map[uint8]*metadata.EventMetadata{
					0: {Index: 0, Name: "ExtrinsicSuccess"},
					1: {Index: 1, Name: "CodeUpdated"},
				},
			},
		},
	}
}

func TestDecodeEventsSingleRecordApplyExtrinsic(t *testing.T) {
	md := testMetadataWithStakingSlashed()

	var accountID [32]byte
	accountID[0] = 0x01
	amount := make([]byte, 16) // Balance as a zero u128

	var raw []byte
	raw = append(raw, encodeCompactU64(1)...) // one record
	raw = append(raw, phaseApplyExtrinsic)
	raw = append(raw, 5, 0, 0, 0) // ApplyExtrinsic(5) as little-endian u32
	raw = append(raw, 7, 0)       // module index 7 (Staking), variant 0 (Slashed)
	raw = append(raw, accountID[:]...)
	raw = append(raw, amount...)
	raw = append(raw, encodeCompactU64(0)...) // zero topics

	var blockHash substrate.Hash
	events, err := DecodeEvents(md, blockHash, raw)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, substrate.EventModuleStaking, ev.Module)
	require.NotNil(t, ev.ExtrinsicIndex)
	require.Equal(t, 5, *ev.ExtrinsicIndex)
	payload, ok := ev.Payload.(*substrate.StakingSlashed)
	require.True(t, ok)
	require.Equal(t, substrate.AccountID(accountID), payload.AccountID)
}

func TestDecodeEventsFallsBackToOtherForUnmappedEvent(t *testing.T) {
	md := testMetadataWithStakingSlashed()

	var raw []byte
	raw = append(raw, encodeCompactU64(1)...)
	raw = append(raw, phaseFinalization)
	raw = append(raw, 0, 1) // module 0 (System), variant 1 (CodeUpdated, not in the payload table)
	raw = append(raw, encodeCompactU64(0)...)

	var blockHash substrate.Hash
	events, err := DecodeEvents(md, blockHash, raw)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, substrate.EventModuleOther, ev.Module)
	require.Equal(t, "System", ev.OtherModuleName)
	require.Equal(t, "CodeUpdated", ev.OtherEventName)
	require.Nil(t, ev.ExtrinsicIndex)
}

func TestDecodeEventsUnknownModuleIsAnError(t *testing.T) {
	md := testMetadataWithStakingSlashed()
	var raw []byte
	raw = append(raw, encodeCompactU64(1)...)
	raw = append(raw, phaseInitialization)
	raw = append(raw, 99, 0)

	var blockHash substrate.Hash
	_, err := DecodeEvents(md, blockHash, raw)
	require.Error(t, err)
}

func TestDecodeEventsEmptyReturnsNil(t *testing.T) {
	md := testMetadataWithStakingSlashed()
	var blockHash substrate.Hash
	events, err := DecodeEvents(md, blockHash, nil)
	require.NoError(t, err)
	require.Nil(t, events)
}
