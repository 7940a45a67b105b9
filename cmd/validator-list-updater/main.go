package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/subvt-network/subvt/pkg/config"
	"github.com/subvt-network/subvt/pkg/database"
	"github.com/subvt-network/subvt/pkg/kvstore"
	"github.com/subvt-network/subvt/pkg/metrics"
	"github.com/subvt-network/subvt/pkg/validatorlist"
)

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	flag.Parse()

	logger := log.New(os.Stderr, "[ValidatorList] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, closeGateway, err := database.OpenGateway(cfg.Postgres, logger)
	if err != nil {
		logger.Fatalf("opening database: %v", err)
	}
	defer closeGateway()

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

	if err := validatorlist.Run(ctx, cfg, gateway, store, logger); err != nil && ctx.Err() == nil {
		logger.Fatalf("validator list updater exited: %v", err)
	}
}
