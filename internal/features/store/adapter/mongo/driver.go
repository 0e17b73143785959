// Package mongo adapts the MongoDB driver to the store.domain.Driver
// contract consumed by the connection manager.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/common"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/domain"
)

const defaultServerSelectionTimeout = 5 * time.Second

// Config holds MongoDB connection and pool configuration
type Config struct {
	// URI is the MongoDB connection string
	URI string

	// Database is the database name used by the application
	Database string

	// MinPoolSize is the minimum number of pooled connections
	MinPoolSize uint64

	// MaxPoolSize is the maximum number of pooled connections
	MaxPoolSize uint64

	// ServerSelectionTimeout bounds how long one dial waits for a server
	ServerSelectionTimeout time.Duration
}

// Driver implements domain.Driver for MongoDB
type Driver struct {
	cfg Config
}

// NewDriver validates the configuration and returns a MongoDB driver
func NewDriver(cfg Config) (*Driver, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, common.InvalidInputError("store URI is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, common.InvalidInputError("store database name is required")
	}
	if cfg.MaxPoolSize > 0 && cfg.MinPoolSize > cfg.MaxPoolSize {
		return nil, common.InvalidInputError("store min pool size %d exceeds max %d",
			cfg.MinPoolSize, cfg.MaxPoolSize)
	}
	if cfg.ServerSelectionTimeout <= 0 {
		cfg.ServerSelectionTimeout = defaultServerSelectionTimeout
	}

	return &Driver{cfg: cfg}, nil
}

// Connect performs a single connection attempt. The client is pinged before
// being handed out; a client that connects but fails the ping is torn down
// so the caller never receives a half-alive connection.
func (d *Driver) Connect(ctx context.Context) (domain.Conn, error) {
	clientOptions := options.Client().
		ApplyURI(d.cfg.URI).
		SetServerSelectionTimeout(d.cfg.ServerSelectionTimeout)

	if d.cfg.MinPoolSize > 0 {
		clientOptions.SetMinPoolSize(d.cfg.MinPoolSize)
	}
	if d.cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(d.cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if disconnectErr := client.Disconnect(ctx); disconnectErr != nil {
			return nil, fmt.Errorf("mongo ping failed: %w (disconnect also failed: %v)",
				err, disconnectErr)
		}
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	return &conn{client: client, database: d.cfg.Database}, nil
}

// conn implements domain.Conn over a connected mongo client
type conn struct {
	client   *mongo.Client
	database string
}

// Ping verifies the connection against the primary
func (c *conn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client
func (c *conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Database returns the application database handle for query layers
func (c *conn) Database() *mongo.Database {
	return c.client.Database(c.database)
}
