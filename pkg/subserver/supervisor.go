package subserver

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/kvstore"
)

// RunNetworkStatusServer runs the live-network-status endpoint: the
// store intake loop and the WebSocket listener as one unit, torn down
// together and restarted after RecoveryRetrySeconds on any failure.
func RunNetworkStatusServer(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[NetworkStatusServer] ", log.LstdFlags)
	}
	addr := fmt.Sprintf("%s:%d", cfg.RPC.Host, cfg.RPC.LiveNetworkStatusPort)
	return runWithRecovery(ctx, cfg, logger, func(runCtx context.Context) error {
		service := NewNetworkStatusService(store, cfg.Substrate.Chain, logger)
		server := NewServer(addr, "subscribe_live_network_status", "unsubscribe_live_network_status", service.Handler(), logger)
		g, groupCtx := errgroup.WithContext(runCtx)
		g.Go(func() error { return service.RunIntake(groupCtx) })
		g.Go(func() error { return server.ListenAndServe(groupCtx) })
		return g.Wait()
	})
}

// RunValidatorDetailsServer runs the validator-details endpoint with
// the same intake + listener unit-of-failure shape.
func RunValidatorDetailsServer(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[ValidatorDetailsServer] ", log.LstdFlags)
	}
	addr := fmt.Sprintf("%s:%d", cfg.RPC.Host, cfg.RPC.ValidatorDetailsPort)
	return runWithRecovery(ctx, cfg, logger, func(runCtx context.Context) error {
		service := NewValidatorDetailsService(store, cfg.Substrate.Chain, logger)
		server := NewServer(addr, "subscribe_validatorDetails", "unsubscribe_validatorDetails", service.Handler(), logger)
		g, groupCtx := errgroup.WithContext(runCtx)
		g.Go(func() error { return service.RunIntake(groupCtx) })
		g.Go(func() error { return server.ListenAndServe(groupCtx) })
		return g.Wait()
	})
}

func runWithRecovery(ctx context.Context, cfg *config.Config, logger *log.Logger, run func(ctx context.Context) error) error {
	for {
		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Printf("server loop exited: %v", err)
		}
		delay := time.Duration(cfg.Common.RecoveryRetrySeconds) * time.Second
		logger.Printf("restarting in %s", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
