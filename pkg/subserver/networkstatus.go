package subserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// NetworkStatusService serves subscribe_live_network_status: the first
// message is the full current LiveNetworkStatus, every later one a
// diff wrapped with the network name. The intake loop listens on the
// updater's publish channel and re-reads the stored document; workers
// diff against what they last sent their own client.
type NetworkStatusService struct {
	store       kvstore.Store
	keys        kvstore.Keys
	networkName string
	bus         *Bus
	logger      *log.Logger

	// mu is the single-writer/multiple-readers lock over the last
	// published snapshot: written only by the intake loop, read by
	// every per-subscription worker.
	mu      sync.RWMutex
	current *substrate.NetworkStatus
}

// NewNetworkStatusService builds the service for one chain.
func NewNetworkStatusService(store kvstore.Store, chainName string, logger *log.Logger) *NetworkStatusService {
	if logger == nil {
		logger = log.New(log.Writer(), "[NetworkStatusServer] ", log.LstdFlags)
	}
	return &NetworkStatusService{
		store:       store,
		keys:        kvstore.Keys{Chain: chainName},
		networkName: chainName,
		bus:         NewBus(),
		logger:      logger,
	}
}

// RunIntake consumes the status publish channel until ctx is cancelled
// or the store subscription fails. On a fatal error it broadcasts the
// BusError sentinel so every worker exits promptly, then returns the
// error for the supervisor to restart on.
func (s *NetworkStatusService) RunIntake(ctx context.Context) error {
	messages, err := s.store.Subscribe(ctx, s.keys.LiveNetworkStatusPublishChannel())
	if err != nil {
		s.bus.Broadcast(BusEvent{Kind: BusError})
		return fmt.Errorf("subserver: subscribe to status channel: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			s.bus.Close()
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				s.bus.Broadcast(BusEvent{Kind: BusError})
				return fmt.Errorf("subserver: status channel closed")
			}
			bestBlockNumber, err := strconv.ParseUint(msg, 10, 64)
			if err != nil {
				s.logger.Printf("malformed status publication %q: %v", msg, err)
				continue
			}
			status, err := s.readStatus(ctx)
			if err != nil {
				s.logger.Printf("reading published status: %v", err)
				continue
			}
			s.mu.Lock()
			s.current = status
			s.mu.Unlock()
			s.bus.Broadcast(BusEvent{Kind: BusNewBlock, BlockNumber: bestBlockNumber})
		}
	}
}

func (s *NetworkStatusService) readStatus(ctx context.Context) (*substrate.NetworkStatus, error) {
	raw, err := s.store.Get(ctx, s.keys.LiveNetworkStatus())
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no live network status published yet")
	}
	status := &substrate.NetworkStatus{}
	if err := json.Unmarshal(raw, status); err != nil {
		return nil, fmt.Errorf("decode live network status: %w", err)
	}
	return status, nil
}

// statusEnvelope wraps the first full snapshot with the network name.
type statusEnvelope struct {
	Network string                   `json:"network"`
	Status  *substrate.NetworkStatus `json:"status"`
}

// statusDiffEnvelope wraps each subsequent diff with the network name.
type statusDiffEnvelope struct {
	Network string                       `json:"network"`
	Diff    *substrate.NetworkStatusDiff `json:"diff"`
}

// Handler returns the per-subscription worker.
func (s *NetworkStatusService) Handler() SubscriptionHandler {
	return func(ctx context.Context, _ []json.RawMessage, send func(payload any) error) error {
		id, events := s.bus.Subscribe()
		defer s.bus.Unsubscribe(id)

		s.mu.RLock()
		lastSent := s.current
		s.mu.RUnlock()
		if lastSent == nil {
			// No publication since startup; fall back to the stored
			// document so a client connecting into a quiet network
			// still gets a first snapshot.
			status, err := s.readStatus(ctx)
			if err != nil {
				return fmt.Errorf("no network status available: %w", err)
			}
			lastSent = status
		}
		if err := send(statusEnvelope{Network: s.networkName, Status: lastSent}); err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok || ev.Kind == BusError {
					return fmt.Errorf("status stream interrupted")
				}
				s.mu.RLock()
				current := s.current
				s.mu.RUnlock()
				if current == nil {
					continue
				}
				diff := substrate.DiffNetworkStatus(lastSent, current)
				if err := send(statusDiffEnvelope{Network: s.networkName, Diff: diff}); err != nil {
					return err
				}
				lastSent = current
			}
		}
	}
}
