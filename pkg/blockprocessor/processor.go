// Package blockprocessor is the per-block ingestion pipeline: for
// every new chain header it resolves the block hash, decodes its extrinsics and
// events, persists them, numbers batched-dispatch events by their
// position within the batch, detects era/session/runtime-version
// changes on finalization, and publishes a block-processed
// notification for the notification generator to pick up.
package blockprocessor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/subvt-network/subvt/pkg/chain"
	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/substrate"
	"github.com/subvt-network/subvt/pkg/subvterrors"
)

// Processor wires a chain client and a relational gateway into the
// per-header persistence pipeline. One Processor is built per
// reconnect cycle: the supervisor rebuilds the client on every
// recovery retry rather than repairing a half-broken connection in
// place.
type Processor struct {
	cfg     *config.Config
	client  *chain.Client
	md      *metadata.Metadata
	gateway *database.Gateway
	logger  *log.Logger

	lastEraIndex    atomic.Int64
	lastEpochIndex  atomic.Uint64
	lastSpecVersion atomic.Uint32
}

// New builds a Processor over an already-dialed chain client and
// decoded metadata.
func New(cfg *config.Config, client *chain.Client, md *metadata.Metadata, gateway *database.Gateway, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(log.Writer(), "[BlockProcessor] ", log.LstdFlags)
	}
	p := &Processor{cfg: cfg, client: client, md: md, gateway: gateway, logger: logger}
	p.lastEraIndex.Store(-1)
	return p
}

// ProcessNewBlock is the per-header pipeline run from the new-heads
// subscription. A returned error means the
// block was NOT marked processed -- the caller logs it and moves on;
// replaying the same block later is safe because every insert is
// idempotent.
func (p *Processor) ProcessNewBlock(ctx context.Context, header *substrate.Header) error {
	blockHash, err := p.client.BlockHash(ctx, header.Number)
	if err != nil {
		return subvterrors.Transient(fmt.Errorf("blockprocessor: resolving hash for block %d: %w", header.Number, err))
	}

	rawExtrinsics, err := p.client.RawExtrinsics(ctx, blockHash)
	if err != nil {
		return subvterrors.Transient(fmt.Errorf("blockprocessor: fetching extrinsics for block %d: %w", header.Number, err))
	}
	rawEvents, err := p.client.RawEvents(ctx, blockHash)
	if err != nil {
		return subvterrors.Transient(fmt.Errorf("blockprocessor: fetching events for block %d: %w", header.Number, err))
	}

	extrinsics, err := DecodeExtrinsics(p.md, rawExtrinsics)
	if err != nil {
		return subvterrors.DataFormat(fmt.Errorf("blockprocessor: decoding extrinsics for block %d: %w", header.Number, err))
	}
	events, err := DecodeEvents(p.md, blockHash, rawEvents)
	if err != nil {
		return subvterrors.DataFormat(fmt.Errorf("blockprocessor: decoding events for block %d: %w", header.Number, err))
	}
	AssignNestingIndices(extrinsics, events)

	timestampMillis := extractTimestamp(extrinsics)
	authorAccountID, err := p.client.BlockAuthor(ctx, blockHash)
	if err != nil {
		p.logger.Printf("could not resolve author for block %d: %v", header.Number, err)
	}

	block := &substrate.Block{
		Hash:            blockHash,
		Number:          header.Number,
		ParentHash:      header.ParentHash,
		StateRoot:       header.StateRoot,
		ExtrinsicsRoot:  header.ExtrinsicsRoot,
		TimestampMillis: timestampMillis,
		AuthorAccountID: authorAccountID,
	}

	// Persist block, then extrinsics, then events, so foreign-key
	// relationships are satisfied in that order.
	if err := p.gateway.Network.SaveBlock(ctx, block); err != nil {
		return subvterrors.Transient(err)
	}
	for _, e := range extrinsics {
		if err := p.gateway.Network.SaveExtrinsic(ctx, blockHash, e); err != nil {
			return subvterrors.Transient(err)
		}
	}
	for _, e := range events {
		if err := p.gateway.Events.SaveEvent(ctx, e); err != nil {
			return subvterrors.Transient(err)
		}
		if e.NestingIndex != nil {
			if err := p.gateway.Events.UpdateEventNestingIndex(ctx, e.Module, blockHash, e.EventIndex, *e.NestingIndex); err != nil {
				return subvterrors.Transient(err)
			}
		}
	}

	if err := p.gateway.Network.PublishBlockProcessed(ctx, header.Number); err != nil {
		return subvterrors.Transient(err)
	}
	return nil
}

// extractTimestamp reads the block timestamp off the inherent
// Timestamp.set extrinsic's argument; every block has exactly one.
func extractTimestamp(extrinsics []*substrate.Extrinsic) uint64 {
	for _, e := range extrinsics {
		if e.ModuleName == "Timestamp" && e.CallName == "set" && len(e.Arguments) > 0 {
			if v, ok := e.Arguments[0].Value.(uint64); ok {
				return v
			}
		}
	}
	return 0
}

// ProcessFinalizedBlock detects era, session and runtime-version
// changes as of a newly finalized header and records the ones that
// are backed by a relational operation (era and epoch rows); a
// runtime-version change has no persistence operation of its own in
// this system, so it is only logged.
func (p *Processor) ProcessFinalizedBlock(ctx context.Context, header *substrate.Header) error {
	blockHash, err := p.client.BlockHash(ctx, header.Number)
	if err != nil {
		return subvterrors.Transient(err)
	}
	atHash := "0x" + fmt.Sprintf("%x", blockHash[:])

	era, err := p.client.ActiveEra(ctx, atHash, p.md.RuntimeConfig.EraDurationMillis)
	if err != nil {
		return subvterrors.Transient(err)
	}
	if p.lastEraIndex.Load() != era.Index {
		p.lastEraIndex.Store(era.Index)
		if err := p.recordEraChange(ctx, era, atHash, header.Number); err != nil {
			return err
		}
	}

	epoch, err := p.client.CurrentEpoch(ctx, atHash, p.md.RuntimeConfig.EpochDurationMillis)
	if err != nil {
		return subvterrors.Transient(err)
	}
	if p.lastEpochIndex.Load() != epoch.Index {
		p.lastEpochIndex.Store(epoch.Index)
		if err := p.gateway.Network.SaveEpoch(ctx, epoch); err != nil {
			return subvterrors.Transient(err)
		}
		p.logger.Printf("session changed to %d at block %d", epoch.Index, header.Number)
	}

	// Reward points accumulate while the era runs, so re-read and
	// aggregate them on every finalized block rather than only at the
	// boundary.
	points, err := p.client.EraRewardPoints(ctx, p.md, uint32(era.Index))
	if err != nil {
		return subvterrors.Transient(err)
	}
	if len(points.Points) > 0 {
		if err := p.gateway.Network.UpdateEraRewardPoints(ctx, points); err != nil {
			return subvterrors.Transient(err)
		}
	}

	upgrade, err := p.client.LastRuntimeUpgrade(ctx, atHash)
	if err != nil {
		return subvterrors.Transient(err)
	}
	if upgrade != nil && p.lastSpecVersion.Load() != upgrade.SpecVersion {
		p.lastSpecVersion.Store(upgrade.SpecVersion)
		p.logger.Printf("runtime spec version changed to %d (%s) at block %d",
			upgrade.SpecVersion, upgrade.SpecName, header.Number)
	}
	return nil
}
