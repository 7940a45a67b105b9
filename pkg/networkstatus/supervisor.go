package networkstatus

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/subvt-network/subvt/pkg/chain"
	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// Run dials the chain node and republishes the live network status on
// every new head, rebuilding the whole connection on any subscription
// error. A head that arrives while the previous rebuild is still in
// flight is skipped; the status is a point-in-time snapshot and the
// next head supersedes it.
func Run(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[NetworkStatus] ", log.LstdFlags)
	}
	for {
		if err := runOnce(ctx, cfg, store, logger); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Printf("subscription loop exited: %v", err)
		}
		delay := time.Duration(cfg.Common.RecoveryRetrySeconds) * time.Second
		logger.Printf("reconnecting in %s", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func runOnce(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *log.Logger) error {
	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Substrate.ConnectionTimeoutSeconds)*time.Second)
	client, err := chain.Dial(dialCtx, cfg.Substrate.RPCURL, time.Duration(cfg.Substrate.ConnectionTimeoutSeconds)*time.Second)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	md, err := client.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("fetching metadata: %w", err)
	}

	chainName, err := client.SystemChain(ctx)
	if err != nil {
		return fmt.Errorf("fetching chain name: %w", err)
	}
	props, err := client.SystemProperties(ctx)
	if err != nil {
		return fmt.Errorf("fetching system properties: %w", err)
	}
	logger.Printf("connected to %s (token %s, %d decimals)", chainName, props.TokenSymbol, props.TokenDecimals)

	updater := NewUpdater(client, md, store, cfg.Substrate.Chain, logger)

	var busy atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.SubscribeNewHeads(ctx, func(header *substrate.Header, ok bool) {
			if !ok {
				return
			}
			if !busy.CompareAndSwap(false, true) {
				return
			}
			go func() {
				defer busy.Store(false)
				reqCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Substrate.RequestTimeoutSeconds)*time.Second)
				defer cancel()
				if err := updater.OnNewHead(reqCtx, header); err != nil {
					logger.Printf("status update failed for block #%d: %v", header.Number, err)
				}
			}()
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
