// Package mongodb provides MongoDB connection management.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Client wraps a MongoDB client bound to one database.
type Client struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ParseURL validates a MongoDB connection URI.
func ParseURL(uri string) (*connstring.ConnString, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb URI is empty")
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb URI: %w", err)
	}
	return cs, nil
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, database string) (*Client, error) {
	if _, err := ParseURL(uri); err != nil {
		return nil, err
	}
	if database == "" {
		return nil, fmt.Errorf("mongodb database name is empty")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Client{Client: client, Database: client.Database(database)}, nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}

// HealthCheck verifies the connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx, nil)
}
