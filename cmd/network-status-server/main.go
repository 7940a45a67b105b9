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
	"github.com/subvt-network/subvt/pkg/subserver"
)

func main() {
	flag.Parse()

	logger := log.New(os.Stderr, "[NetworkStatusServer] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logger.Fatalf("opening key/value store: %v", err)
	}
	defer store.Close()

	if err := subserver.RunNetworkStatusServer(ctx, cfg, store, logger); err != nil && ctx.Err() == nil {
		logger.Fatalf("network status server exited: %v", err)
	}
}
