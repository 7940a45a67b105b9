package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/metrics"
	"github.com/subvt-network/subvt/pkg/networkstatus"
)

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	flag.Parse()

	logger := log.New(os.Stderr, "[NetworkStatus] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("loading configuration: %v", err)
	}
	if cfg.Substrate.RPCURL == "" {
		logger.Fatalf("SUBSTRATE_RPC_URL is required but not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logger.Fatalf("opening key/value store: %v", err)
	}
	defer store.Close()

	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr, logger); err != nil && ctx.Err() == nil {
				logger.Printf("metrics server exited: %v", err)
			}
		}()
	}

	if err := networkstatus.Run(ctx, cfg, store, logger); err != nil && ctx.Err() == nil {
		logger.Fatalf("network status updater exited: %v", err)
	}
}
