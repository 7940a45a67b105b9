package subserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"

	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// lastFinalizedBlockNumber is the process-wide cursor written only by
// the intake loop and read concurrently by every per-subscription
// worker. It is the only shared mutable state in this server.
var lastFinalizedBlockNumber atomic.Uint64

// ValidatorDetailsService serves subscribe_validatorDetails: the first
// message is the requested validator's full snapshot at the current
// finalized block, each later one either an update carrying a
// ValidatorDetailsDiff or a heartbeat (block number only) when the
// published fingerprint is unchanged.
type ValidatorDetailsService struct {
	store  kvstore.Store
	keys   kvstore.Keys
	bus    *Bus
	logger *log.Logger
}

// NewValidatorDetailsService builds the service for one chain.
func NewValidatorDetailsService(store kvstore.Store, chainName string, logger *log.Logger) *ValidatorDetailsService {
	if logger == nil {
		logger = log.New(log.Writer(), "[ValidatorDetailsServer] ", log.LstdFlags)
	}
	return &ValidatorDetailsService{
		store:  store,
		keys:   kvstore.Keys{Chain: chainName},
		bus:    NewBus(),
		logger: logger,
	}
}

// RunIntake consumes the materializer's publish channel, advancing the
// shared finalized block cursor and fanning a bus event out to the
// workers. On a fatal error it broadcasts the BusError sentinel and
// returns for the supervisor to restart on.
func (s *ValidatorDetailsService) RunIntake(ctx context.Context) error {
	messages, err := s.store.Subscribe(ctx, s.keys.ValidatorsPublishChannel())
	if err != nil {
		s.bus.Broadcast(BusEvent{Kind: BusError})
		return fmt.Errorf("subserver: subscribe to validators channel: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			s.bus.Close()
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				s.bus.Broadcast(BusEvent{Kind: BusError})
				return fmt.Errorf("subserver: validators channel closed")
			}
			blockNumber, err := strconv.ParseUint(msg, 10, 64)
			if err != nil {
				s.logger.Printf("malformed validators publication %q: %v", msg, err)
				continue
			}
			lastFinalizedBlockNumber.Store(blockNumber)
			s.bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: blockNumber})
		}
	}
}

// detailsEnvelope is the first full message on a subscription.
type detailsEnvelope struct {
	FinalizedBlockNumber uint64                      `json:"finalized_block_number"`
	ValidatorDetails     *substrate.ValidatorDetails `json:"validator_details"`
}

// updateEnvelope is a subsequent update; Diff is nil on a pure
// heartbeat, where only the block number advances.
type updateEnvelope struct {
	FinalizedBlockNumber uint64                          `json:"finalized_block_number"`
	Diff                 *substrate.ValidatorDetailsDiff `json:"validator_details_update,omitempty"`
}

// Handler returns the per-subscription worker. The single positional
// parameter is the validator's hex account id; an invalid id
// terminates the subscription with a text error, while a missing
// validator keeps it open to recover when the validator reappears.
func (s *ValidatorDetailsService) Handler() SubscriptionHandler {
	return func(ctx context.Context, params []json.RawMessage, send func(payload any) error) error {
		if len(params) < 1 {
			return fmt.Errorf("missing account id parameter")
		}
		var accountHex string
		if err := json.Unmarshal(params[0], &accountHex); err != nil {
			return fmt.Errorf("account id parameter must be a hex string: %w", err)
		}
		accountID, err := substrate.ParseAccountID(accountHex)
		if err != nil {
			return fmt.Errorf("invalid account id %q: %w", accountHex, err)
		}

		id, events := s.bus.Subscribe()
		defer s.bus.Unsubscribe(id)

		var (
			sentFull    bool
			lastHash    uint64
			lastDetails *substrate.ValidatorDetails
		)

		deliver := func(blockNumber uint64) error {
			found, hash, details, err := s.readSnapshot(ctx, blockNumber, accountID, !sentFull)
			if err != nil {
				return err
			}
			if !found {
				// Not in the published set at this block. Log and keep
				// the subscription open; the validator may reappear.
				s.logger.Printf("validator %s not found at block #%d", accountID, blockNumber)
				return nil
			}
			switch {
			case !sentFull:
				if err := send(detailsEnvelope{FinalizedBlockNumber: blockNumber, ValidatorDetails: details}); err != nil {
					return err
				}
				sentFull = true
				lastHash = hash
				lastDetails = details
			case hash == lastHash:
				if err := send(updateEnvelope{FinalizedBlockNumber: blockNumber}); err != nil {
					return err
				}
			default:
				if details == nil {
					details, err = s.readDetails(ctx, blockNumber, accountID)
					if err != nil || details == nil {
						return err
					}
				}
				diff := substrate.DiffValidatorDetails(lastDetails, details)
				if err := send(updateEnvelope{FinalizedBlockNumber: blockNumber, Diff: diff}); err != nil {
					return err
				}
				lastHash = hash
				lastDetails = details
			}
			return nil
		}

		startBlock := lastFinalizedBlockNumber.Load()
		if startBlock == 0 {
			if raw, err := s.store.Get(ctx, s.keys.FinalizedBlockNumber()); err == nil && len(raw) > 0 {
				if n, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
					startBlock = n
				}
			}
		}
		if startBlock > 0 {
			if err := deliver(startBlock); err != nil {
				return err
			}
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok || ev.Kind == BusError {
					return fmt.Errorf("validator details stream interrupted")
				}
				if err := deliver(ev.BlockNumber); err != nil {
					return err
				}
			}
		}
	}
}

// readSnapshot reads the published fingerprint for the validator at
// blockNumber, trying the active keyspace first and the inactive one
// second, plus the full JSON document when withDetails is set.
func (s *ValidatorDetailsService) readSnapshot(ctx context.Context, blockNumber uint64, id substrate.AccountID, withDetails bool) (bool, uint64, *substrate.ValidatorDetails, error) {
	for _, active := range []bool{true, false} {
		hashRaw, err := s.store.Get(ctx, s.keys.ValidatorHash(blockNumber, id, active))
		if err != nil {
			return false, 0, nil, fmt.Errorf("read fingerprint for %s: %w", id, err)
		}
		if len(hashRaw) == 0 {
			continue
		}
		hash, err := strconv.ParseUint(string(hashRaw), 10, 64)
		if err != nil {
			return false, 0, nil, fmt.Errorf("parse fingerprint for %s: %w", id, err)
		}
		if !withDetails {
			return true, hash, nil, nil
		}
		details, err := s.readDetailsAt(ctx, blockNumber, id, active)
		if err != nil {
			return false, 0, nil, err
		}
		return true, hash, details, nil
	}
	return false, 0, nil, nil
}

func (s *ValidatorDetailsService) readDetails(ctx context.Context, blockNumber uint64, id substrate.AccountID) (*substrate.ValidatorDetails, error) {
	for _, active := range []bool{true, false} {
		details, err := s.readDetailsAt(ctx, blockNumber, id, active)
		if err != nil {
			return nil, err
		}
		if details != nil {
			return details, nil
		}
	}
	return nil, nil
}

func (s *ValidatorDetailsService) readDetailsAt(ctx context.Context, blockNumber uint64, id substrate.AccountID, active bool) (*substrate.ValidatorDetails, error) {
	raw, err := s.store.Get(ctx, s.keys.ValidatorJSON(blockNumber, id, active))
	if err != nil {
		return nil, fmt.Errorf("read snapshot for %s: %w", id, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	details := &substrate.ValidatorDetails{}
	if err := json.Unmarshal(raw, details); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", id, err)
	}
	return details, nil
}
