package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sociopedia/sociopedia/server/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Handle owns the process-wide Mongo client. Open it once at startup, pass it
// to whatever needs collections, Close it on shutdown.
type Handle struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Options controls how Open connects.
type Options struct {
	URI         string
	Database    string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// Open connects with exponential backoff to tolerate startup races with the database container.
func Open(ctx context.Context, o Options) (*Handle, error) {
	if o.URI == "" {
		return nil, errors.New("mongo uri is empty")
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}

	backoff := o.Backoff
	var lastErr error
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		client, err := ConnectMongo(ctx, o.URI, o.Timeout)
		if err == nil {
			return &Handle{client: client, db: client.Database(o.Database), timeout: o.Timeout}, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, o.MaxAttempts, err)
		if attempt == o.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", o.MaxAttempts, lastErr)
}

// Collection returns a handle to the named collection in the configured database.
func (h *Handle) Collection(name string) *mongo.Collection {
	return h.db.Collection(name)
}

// Ping reports whether the primary is reachable; used by the readiness probe.
func (h *Handle) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client. Safe on a nil handle.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.client == nil {
		return nil
	}
	return h.client.Disconnect(ctx)
}
