package validatorlist

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/subvt-network/subvt/pkg/chain"
	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/onekv"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// Run dials the chain node and rebuilds the validator list on every
// finalized head, skipping any finalized block that arrives while a
// previous materialization is still running rather than queuing it --
// the next finalized block supersedes it anyway. The whole connection
// is rebuilt on any subscription error.
func Run(ctx context.Context, cfg *config.Config, gateway *database.Gateway, store kvstore.Store, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[ValidatorList] ", log.LstdFlags)
	}
	for {
		if err := runOnce(ctx, cfg, gateway, store, logger); err != nil {
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

func runOnce(ctx context.Context, cfg *config.Config, gateway *database.Gateway, store kvstore.Store, logger *log.Logger) error {
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

	var onekvClient *onekv.Client
	if cfg.OneKV.CandidatesBaseURL != "" {
		onekvClient = onekv.NewClient(cfg.OneKV.CandidatesBaseURL,
			time.Duration(cfg.Substrate.RequestTimeoutSeconds)*time.Second,
			time.Duration(cfg.OneKV.RefreshMinutes)*time.Minute, logger)
	}
	materializer := New(client, md, gateway, store, cfg.Substrate.Chain, onekvClient, logger)

	var busy atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.SubscribeFinalizedHeads(ctx, func(header *substrate.Header, ok bool) {
			if !ok {
				return
			}
			if !busy.CompareAndSwap(false, true) {
				logger.Printf("still materializing a previous block, skipping block #%d", header.Number)
				return
			}
			go func() {
				defer busy.Store(false)
				reqCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Substrate.RequestTimeoutSeconds)*time.Second)
				defer cancel()
				blockHash, err := client.BlockHash(reqCtx, header.Number)
				if err != nil {
					logger.Printf("resolving hash for block #%d: %v", header.Number, err)
					return
				}
				if err := materializer.Update(reqCtx, header.Number, blockHash); err != nil {
					logger.Printf("materialization failed for block #%d: %v", header.Number, err)
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
