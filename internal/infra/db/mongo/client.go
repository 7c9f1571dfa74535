package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	depositsCollection    = "agg_deposit"
	bookingsCollection    = "agg_booking"
	usersCollection       = "agg_user"
	registryCollection    = "agg_user_registry"
	sessionsCollection    = "app_session"
	idempotencyCollection = "app_idempotency"
)

type Client struct {
	DB *mongo.Database
}

// New connects to uri. Transactions need a replica set, so a standalone
// server will fail on the first command.
func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the secondary indexes the repositories query by.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		bookingsCollection: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "deposit", Value: 1}, {Key: "stage", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes for %s: %w", name, err)
		}
	}
	return nil
}
