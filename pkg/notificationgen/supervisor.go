package notificationgen

import (
	"context"
	"log"
	"time"

	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/kvstore"
)

// Run starts the period processor and then consumes the
// block-processed notification stream, re-opening the listener after
// RecoveryRetrySeconds on any failure. Cursor catch-up means a dropped
// listener loses nothing: the first notification after the restart
// replays every missed block.
func Run(ctx context.Context, cfg *config.Config, gateway *database.Gateway, store kvstore.Store, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[NotificationGenerator] ", log.LstdFlags)
	}

	generator := NewGenerator(gateway, store, cfg.Substrate.Chain, cfg.Substrate.NetworkID,
		cfg.Notifier.UnclaimedPayoutCheckDelayHours, logger)

	periods := NewPeriodProcessor(gateway, logger)
	if err := periods.Start(ctx); err != nil {
		return err
	}

	for {
		err := database.SubscribeProcessedBlocks(ctx, cfg.Postgres.NetworkURL, logger, func(n database.BlockProcessedNotification) {
			inspectCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Substrate.RequestTimeoutSeconds)*time.Second)
			defer cancel()
			if err := generator.OnBlockProcessed(inspectCtx, n.BlockNumber); err != nil {
				logger.Printf("inspection stopped at block #%d: %v; cursor will retry from there", n.BlockNumber, err)
			}
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := time.Duration(cfg.Common.RecoveryRetrySeconds) * time.Second
		logger.Printf("block-processed listener exited: %v; reconnecting in %s", err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
