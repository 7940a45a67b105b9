package blockprocessor

import (
	"fmt"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// batchCallNames are the Utility pallet calls whose dispatch produces
// a sequence of inner-item completion markers in the event stream.
var batchCallNames = map[string]bool{
	"batch":          true,
	"batch_all":      true,
	"force_batch":    true,
}

// AssignNestingIndices runs the second pass over one block's already-
// decoded events: for every extrinsic dispatching a Utility batch
// call, it numbers each inner item by counting the Utility.ItemCompleted
// / Utility.ItemFailed markers the pallet emits once per batched call,
// and stamps that item number onto every event the batch produced in
// between. Deeper (nested-batch-inside-a-batch) numbering would
// require decoding the batch's inner Call arguments recursively,
// which the argument grammar has no fixed primitive for -- this pass
// only computes the one level the event stream itself discloses.
func AssignNestingIndices(extrinsics []*substrate.Extrinsic, events []*substrate.SubstrateEvent) {
	batchExtrinsics := make(map[int]bool)
	for _, ex := range extrinsics {
		if ex.ModuleName == "Utility" && batchCallNames[ex.CallName] {
			batchExtrinsics[ex.Index] = true
		}
	}
	if len(batchExtrinsics) == 0 {
		return
	}

	byExtrinsic := make(map[int][]*substrate.SubstrateEvent)
	for _, ev := range events {
		if ev.ExtrinsicIndex == nil {
			continue
		}
		byExtrinsic[*ev.ExtrinsicIndex] = append(byExtrinsic[*ev.ExtrinsicIndex], ev)
	}

	for extrinsicIndex := range batchExtrinsics {
		itemNumber := 1
		for _, ev := range byExtrinsic[extrinsicIndex] {
			n := fmt.Sprintf("%d", itemNumber)
			ev.NestingIndex = &n
			if ev.Module == substrate.EventModuleOther &&
				ev.OtherModuleName == "Utility" &&
				(ev.OtherEventName == "ItemCompleted" || ev.OtherEventName == "ItemFailed") {
				itemNumber++
			}
		}
	}
}
