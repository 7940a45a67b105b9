package blockprocessor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/substrate"
)

func ptr(i int) *int { return &i }

func TestAssignNestingIndicesNumbersItemsWithinABatch(t *testing.T) {
	extrinsics := []*substrate.Extrinsic{
		{Index: 0, ModuleName: "Utility", CallName: "batch_all"},
	}
	events := []*substrate.SubstrateEvent{
		{EventIndex: 0, ExtrinsicIndex: ptr(0), Module: substrate.EventModuleStaking, Payload: &substrate.StakingBonded{}},
		{EventIndex: 1, ExtrinsicIndex: ptr(0), Module: substrate.EventModuleOther, OtherModuleName: "Utility", OtherEventName: "ItemCompleted"},
		{EventIndex: 2, ExtrinsicIndex: ptr(0), Module: substrate.EventModuleStaking, Payload: &substrate.StakingBonded{}},
		{EventIndex: 3, ExtrinsicIndex: ptr(0), Module: substrate.EventModuleOther, OtherModuleName: "Utility", OtherEventName: "ItemFailed"},
		{EventIndex: 4, ExtrinsicIndex: ptr(0), Module: substrate.EventModuleSystem, Payload: &substrate.SystemExtrinsicSuccess{}},
	}

	AssignNestingIndices(extrinsics, events)

	require.NotNil(t, events[0].NestingIndex)
	require.Equal(t, "1", *events[0].NestingIndex)
	require.NotNil(t, events[1].NestingIndex)
	require.Equal(t, "1", *events[1].NestingIndex)
	require.NotNil(t, events[2].NestingIndex)
	require.Equal(t, "2", *events[2].NestingIndex)
	require.NotNil(t, events[3].NestingIndex)
	require.Equal(t, "2", *events[3].NestingIndex)
}

func TestAssignNestingIndicesLeavesNonBatchExtrinsicsAlone(t *testing.T) {
	extrinsics := []*substrate.Extrinsic{
		{Index: 0, ModuleName: "Balances", CallName: "transfer"},
	}
	events := []*substrate.SubstrateEvent{
		{EventIndex: 0, ExtrinsicIndex: ptr(0), Module: substrate.EventModuleSystem, Payload: &substrate.SystemExtrinsicSuccess{}},
	}

	AssignNestingIndices(extrinsics, events)

	require.Nil(t, events[0].NestingIndex)
}
