package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	connectOnce sync.Once
	client      *mongo.Client
	connectErr  error
)

// Connect establishes the process-wide MongoDB connection and returns a handle
// to the named database. The connection is initialized exactly once; concurrent
// first callers share the same dial attempt and all later calls reuse the
// established client. There is no teardown during normal operation.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	connectOnce.Do(func() {
		opts := options.Client().
			ApplyURI(uri).
			SetMaxPoolSize(10).
			SetConnectTimeout(10 * time.Second)

		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			connectErr = err
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			connectErr = err
			return
		}
		client = c
	})
	if connectErr != nil {
		return nil, connectErr
	}
	return client.Database(dbName), nil
}
