// Package mongo implements the repository interfaces on MongoDB.
//
// Events are single documents with an embedded attendees array; users are
// keyed by a unique index on email.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/event-board/internal/repository"
)

// DefaultDatabase is used when the connection string names none.
const DefaultDatabase = "event-app"

const (
	eventsCollection = "events"
	usersCollection  = "users"
)

var _ repository.Store = (*DB)(nil)

// DB holds the client and the two collections the app uses.
type DB struct {
	client *driver.Client
	events *driver.Collection
	users  *driver.Collection
	logger *slog.Logger
}

// New connects to uri, pings the primary and ensures indexes.
// An empty database falls back to DefaultDatabase.
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*DB, error) {
	if database == "" {
		database = DefaultDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := driver.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := client.Database(database)
	store := &DB{
		client: client,
		events: db.Collection(eventsCollection),
		users:  db.Collection(usersCollection),
		logger: logger,
	}

	if err := store.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to mongodb", "database", database)
	return store, nil
}

// ensureIndexes creates the unique indexes. A pre-existing events
// collection may already hold duplicate titles; that only costs the
// constraint, so it is logged and startup continues.
func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.events.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("title_unique"),
	})
	if err != nil {
		db.logger.Warn("could not create unique title index", "error", err)
	}

	_, err = db.users.Indexes().CreateMany(ctx, []driver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "sub", Value: 1}},
			Options: options.Index().SetName("sub"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating user indexes: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}
