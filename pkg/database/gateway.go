package database

import (
	"log"

	"github.com/subvt-network/subvt/pkg/config"
)

// Gateway is a single point of access to every relational repository.
// NetworkStore and EventStore are backed by the network schema's
// Client; AppStore is backed by the application schema's Client -- the
// two Postgres URLs in config.PostgresConfig.
type Gateway struct {
	Network *NetworkStore
	Events  *EventStore
	App     *AppStore
}

// NewGateway wires a Gateway from its two underlying clients.
func NewGateway(networkClient, appClient *Client) *Gateway {
	return &Gateway{
		Network: NewNetworkStore(networkClient),
		Events:  NewEventStore(networkClient),
		App:     NewAppStore(appClient),
	}
}

// OpenGateway dials the network schema and, when a separate
// application URL is configured, the application schema, returning the
// wired Gateway and a close function for both pools. Services that
// only touch the network schema may leave the application URL unset;
// the app repositories then share the network pool.
func OpenGateway(pg config.PostgresConfig, logger *log.Logger) (*Gateway, func(), error) {
	networkClient, err := NewClient(pg.NetworkURL, pg.MaxOpenConns, pg.MaxIdleConns, pg.ConnMaxLife, WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	appClient := networkClient
	if pg.ApplicationURL != "" && pg.ApplicationURL != pg.NetworkURL {
		appClient, err = NewClient(pg.ApplicationURL, pg.MaxOpenConns, pg.MaxIdleConns, pg.ConnMaxLife, WithLogger(logger))
		if err != nil {
			networkClient.Close()
			return nil, nil, err
		}
	}
	closeAll := func() {
		if appClient != networkClient {
			appClient.Close()
		}
		networkClient.Close()
	}
	return NewGateway(networkClient, appClient), closeAll, nil
}
