package notificationgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
	"github.com/subvt-network/subvt/pkg/subvterrors"
)

// Generator drives the per-block inspection pipeline off the
// block-processed notification stream. It owns a single mutable
// cursor: when a notification for block N arrives it inspects every
// block from cursor+1 up to N in order, advancing (and persisting) the
// cursor after each successful inspection. A failed inspection leaves
// the cursor where it is and abandons the remaining range; the next
// notification retries from there.
type Generator struct {
	gateway *database.Gateway
	logger  *log.Logger

	mu          sync.Mutex
	cursor      uint64
	cursorKnown bool

	// inspect and persistCursor default to the real implementations
	// and are swapped out by unit tests that exercise the cursor
	// semantics without a relational store.
	inspect       func(ctx context.Context, blockNumber uint64) error
	persistCursor func(ctx context.Context, blockNumber uint64) error

	inspectors []blockInspector
}

// blockInspector is one step of the per-block inspection sequence. An
// error from any inspector aborts the remaining catch-up range for
// this notification; business no-ops must be handled inside the
// inspector and reported as success.
type blockInspector struct {
	name string
	run  func(ctx context.Context, blockNumber uint64) error
}

// NewGenerator wires the full inspection pipeline: the relational
// inspectors in Inspector, the validator-snapshot diff inspector
// backed by the key/value store, and the era-boundary unclaimed-payout
// check.
func NewGenerator(gateway *database.Gateway, store kvstore.Store, chainName string, networkID int64, unclaimedPayoutCheckDelayHours int, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[NotificationGenerator] ", log.LstdFlags)
	}
	inspector := New(gateway, networkID, logger)
	diff := newValidatorDiffInspector(inspector, store, kvstore.Keys{Chain: chainName}, logger)
	unclaimed := newUnclaimedPayoutInspector(inspector, store, kvstore.Keys{Chain: chainName}, unclaimedPayoutCheckDelayHours, logger)

	g := &Generator{
		gateway: gateway,
		logger:  logger,
	}
	g.inspect = g.inspectBlock
	g.persistCursor = g.saveCursor
	g.inspectors = []blockInspector{
		{"authorship", g.withBlock(inspector.InspectAuthorship)},
		{"offline_offence", g.withBlock(inspector.InspectOfflineOffences)},
		{"chilling", g.withBlock(inspector.InspectChillings)},
		{"validate_extrinsic", g.withBlock(inspector.InspectValidateExtrinsics)},
		{"set_controller_extrinsic", g.withBlock(inspector.InspectSetControllerExtrinsics)},
		{"payout_stakers_extrinsic", g.withBlock(inspector.InspectPayoutStakersExtrinsics)},
		{"unclaimed_payouts", unclaimed.Inspect},
		{"validator_details_diff", diff.Inspect},
	}
	return g
}

// OnBlockProcessed handles one block-processed notification. It is
// safe to call from multiple goroutines; the cursor lock serializes
// every catch-up range so at most one inspection runs at a time.
func (g *Generator) OnBlockProcessed(ctx context.Context, blockNumber uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cursorKnown {
		if err := g.loadCursor(ctx, blockNumber); err != nil {
			return err
		}
	}
	if blockNumber <= g.cursor {
		return nil
	}

	for k := g.cursor + 1; k <= blockNumber; k++ {
		if err := g.inspect(ctx, k); err != nil {
			return fmt.Errorf("notificationgen: inspect block #%d: %w", k, err)
		}
		if err := g.persistCursor(ctx, k); err != nil {
			return fmt.Errorf("notificationgen: persist cursor at block #%d: %w", k, err)
		}
		g.cursor = k
	}
	return nil
}

// Cursor returns the last fully inspected block number, or false if no
// notification has been handled yet.
func (g *Generator) Cursor() (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursor, g.cursorKnown
}

// loadCursor initializes the in-memory cursor from the persisted
// generator state. On a first-ever run there is no state row; the
// generator starts at the block just before the triggering
// notification rather than attempting to inspect all of history.
func (g *Generator) loadCursor(ctx context.Context, triggerBlockNumber uint64) error {
	state, err := g.gateway.App.GetNotificationGeneratorState(ctx)
	switch {
	case err == nil:
		g.cursor = state.BlockNumber
	case errors.Is(err, database.ErrGeneratorStateNotFound):
		g.cursor = triggerBlockNumber - 1
		g.logger.Printf("no persisted cursor, starting at block #%d", triggerBlockNumber)
	default:
		return fmt.Errorf("notificationgen: load cursor: %w", err)
	}
	g.cursorKnown = true
	return nil
}

func (g *Generator) saveCursor(ctx context.Context, blockNumber uint64) error {
	block, err := g.gateway.Network.GetBlockByNumber(ctx, blockNumber)
	if err != nil {
		return err
	}
	return g.gateway.App.SaveNotificationGeneratorState(ctx, block.Hash, blockNumber)
}

// inspectBlock runs every inspector in sequence against one block.
// Errors propagate: a failing inspector aborts the block (and the
// remaining catch-up range), so no block is ever half-inspected with
// its cursor advanced past it.
func (g *Generator) inspectBlock(ctx context.Context, blockNumber uint64) error {
	for _, ins := range g.inspectors {
		if err := ins.run(ctx, blockNumber); err != nil {
			if subvterrors.IsBusinessNoOp(err) {
				continue
			}
			return fmt.Errorf("%s: %w", ins.name, err)
		}
	}
	return nil
}

// withBlock adapts an Inspector method taking a loaded block into the
// blockNumber-keyed shape the pipeline runs.
func (g *Generator) withBlock(f func(ctx context.Context, block *substrate.Block) error) func(ctx context.Context, blockNumber uint64) error {
	return func(ctx context.Context, blockNumber uint64) error {
		block, err := g.gateway.Network.GetBlockByNumber(ctx, blockNumber)
		if err != nil {
			return err
		}
		return f(ctx, block)
	}
}
