// Package mongodb provides the MongoDB document store.
// Users and videos are stored as single documents with embedded edge sets,
// engagement arrays and comments, mirroring the shape of the domain types.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/prn-tf/reelhub/internal/config"
	"github.com/prn-tf/reelhub/internal/repository"
)

// Collection names.
const (
	usersCollection  = "users"
	videosCollection = "videos"
)

// DB wraps a MongoDB client bound to one database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	logger zerolog.Logger
}

// NewDB connects to MongoDB and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	timeout := cfg.MongoTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info().
		Str("database", cfg.MongoDatabase).
		Dur("timeout", timeout).
		Msg("connected to mongodb")

	return &DB{
		client: client,
		db:     client.Database(cfg.MongoDatabase),
		logger: logger,
	}, nil
}

// Close disconnects the client.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

// Ping checks the connection to the primary.
func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

// Health performs a health check.
func (db *DB) Health(ctx context.Context) error {
	return db.Ping(ctx)
}

// Database returns the underlying database handle.
func (db *DB) Database() *mongo.Database {
	return db.db
}

func (db *DB) users() *mongo.Collection {
	return db.db.Collection(usersCollection)
}

func (db *DB) videos() *mongo.Collection {
	return db.db.Collection(videosCollection)
}

// WithTx runs fn inside a multi-document transaction.
// Transactions need a replica set or sharded cluster.
func (db *DB) WithTx(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := db.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Migrate creates the indexes the repositories rely on. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_at")},
	}
	if _, err := db.users().Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	videoIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}, Options: options.Index().SetName("created_at")},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("user_created_at")},
		{Keys: bson.D{{Key: "bookmarks", Value: 1}}, Options: options.Index().SetName("bookmarks")},
	}
	if _, err := db.videos().Indexes().CreateMany(ctx, videoIndexes); err != nil {
		return fmt.Errorf("failed to create video indexes: %w", err)
	}

	db.logger.Info().Msg("mongodb indexes ensured")
	return nil
}

// NewRepositories creates the MongoDB implementations of all repositories.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:  NewUserRepository(db),
		Video: NewVideoRepository(db),
	}
}

// findOptions maps ListOptions onto a sorted find.
func findOptions(opts repository.ListOptions, sort bson.D) *options.FindOptions {
	fo := options.Find().SetSort(sort)
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}
	if !opts.Unbounded() {
		fo.SetLimit(int64(opts.Limit))
	}
	return fo
}

// page slices ids per ListOptions.
func page(ids []string, opts repository.ListOptions) []string {
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []string{}
	}
	ids = ids[offset:]
	if !opts.Unbounded() && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}
	return ids
}

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
