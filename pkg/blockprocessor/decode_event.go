package blockprocessor

import (
	"bytes"
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// phase tags for System.Events' EventRecord.Phase.
const (
	phaseApplyExtrinsic = 0
	phaseFinalization   = 1
	phaseInitialization = 2
)

// DecodeEvents decodes the raw System.Events storage value
// (Vec<EventRecord<Event, Hash>>) into indexed, typed events.
// blockHash is stamped onto every record for persistence.
func DecodeEvents(md *metadata.Metadata, blockHash substrate.Hash, raw []byte) ([]*substrate.SubstrateEvent, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	d := scale.NewDecoder(raw)
	n, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: decoding event record count: %w", err)
	}
	out := make([]*substrate.SubstrateEvent, 0, n)
	for i := uint64(0); i < n; i++ {
		ev, err := decodeEventRecord(md, blockHash, int(i), d)
		if err != nil {
			return nil, fmt.Errorf("blockprocessor: decoding event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func decodeEventRecord(md *metadata.Metadata, blockHash substrate.Hash, index int, d *scale.Decoder) (*substrate.SubstrateEvent, error) {
	extrinsicIndex, err := decodePhase(d)
	if err != nil {
		return nil, fmt.Errorf("phase: %w", err)
	}

	moduleIndex, err := d.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("module index: %w", err)
	}
	variantIndex, err := d.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("variant index: %w", err)
	}
	mod, ok := md.Modules[moduleIndex]
	if !ok {
		return nil, fmt.Errorf("module index %d not in runtime metadata", moduleIndex)
	}
	eventMeta, ok := mod.Events[variantIndex]
	if !ok {
		return nil, fmt.Errorf("%s: event variant %d not in runtime metadata", mod.Name, variantIndex)
	}

	args := make([]scale.Argument, len(eventMeta.Arguments))
	for i, argMeta := range eventMeta.Arguments {
		arg, err := scale.Decode(argMeta, d)
		if err != nil {
			return nil, fmt.Errorf("%s.%s argument %d: %w", mod.Name, eventMeta.Name, i, err)
		}
		args[i] = arg
	}

	// Topics: Vec<Hash>, always present and unused beyond being
	// consumed so the cursor lands correctly for the next record.
	topicCount, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("topics length: %w", err)
	}
	for t := uint64(0); t < topicCount; t++ {
		if _, err := d.ReadBytes(32); err != nil {
			return nil, fmt.Errorf("topic %d: %w", t, err)
		}
	}

	se := &substrate.SubstrateEvent{
		BlockHash:      blockHash,
		EventIndex:     index,
		ExtrinsicIndex: extrinsicIndex,
	}
	payload, module, rawErr := buildEventPayload(mod.Name, eventMeta.Name, args)
	if rawErr != nil {
		return nil, rawErr
	}
	if payload == nil {
		se.Module = substrate.EventModuleOther
		se.OtherModuleName = mod.Name
		se.OtherEventName = eventMeta.Name
		se.RawArguments = encodeRawArguments(args)
	} else {
		se.Module = module
		se.Payload = payload
	}
	return se, nil
}

// decodePhase decodes EventRecord.Phase, returning the originating
// extrinsic's index for ApplyExtrinsic, or nil for Finalization and
// Initialization (events not attributable to a single extrinsic).
func decodePhase(d *scale.Decoder) (*int, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case phaseApplyExtrinsic:
		idx, err := d.DecodeUint(4)
		if err != nil {
			return nil, err
		}
		v := int(idx)
		return &v, nil
	case phaseFinalization, phaseInitialization:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown Phase tag %d", tag)
	}
}

// encodeRawArguments renders a fallback Other event's decoded
// arguments back into a small opaque blob (their Go-printed form) for
// diagnostics -- a best-effort record since the original SCALE bytes
// were already consumed decoding them against their declared grammar.
func encodeRawArguments(args []scale.Argument) []byte {
	var buf bytes.Buffer
	for i, a := range args {
		if i > 0 {
			buf.WriteByte(';')
		}
		fmt.Fprintf(&buf, "%v", a.Value)
	}
	return buf.Bytes()
}
