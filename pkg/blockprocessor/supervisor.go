package blockprocessor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/subvt-network/subvt/pkg/chain"
	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/metrics"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// Run dials the chain node, subscribes to new and finalized heads,
// and rebuilds the whole connection on any subscription error,
// reconnecting rather than trying to repair one broken subscription.
func Run(ctx context.Context, cfg *config.Config, gateway *database.Gateway, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[BlockProcessor] ", log.LstdFlags)
	}
	for {
		if err := runOnce(ctx, cfg, gateway, logger); err != nil {
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

func runOnce(ctx context.Context, cfg *config.Config, gateway *database.Gateway, logger *log.Logger) error {
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

	processor := New(cfg, client, md, gateway, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- client.SubscribeNewHeads(ctx, func(header *substrate.Header, ok bool) {
			if !ok {
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Substrate.RequestTimeoutSeconds)*time.Second)
			defer cancel()
			if err := processor.ProcessNewBlock(reqCtx, header); err != nil {
				metrics.BlockProcessErrors.Inc()
				logger.Printf("block processing failed for block #%d: %v; will retry on a future block", header.Number, err)
				return
			}
			metrics.BlocksProcessed.Inc()
		})
	}()
	go func() {
		errCh <- client.SubscribeFinalizedHeads(ctx, func(header *substrate.Header, ok bool) {
			if !ok {
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Substrate.RequestTimeoutSeconds)*time.Second)
			defer cancel()
			if err := processor.ProcessFinalizedBlock(reqCtx, header); err != nil {
				logger.Printf("finalized block processing failed for block #%d: %v", header.Number, err)
			}
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
