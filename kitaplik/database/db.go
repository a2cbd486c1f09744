package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

// Collection names
const (
	CollTaskTemplates        = "task_templates"
	CollAchievementTemplates = "achievement_templates"
	CollUserTasks            = "user_tasks"
	CollUserAchievements     = "user_achievements"
	CollUserProgress         = "user_progress"
	CollReadingGoals         = "reading_goals"
)

type DBConfig struct {
	URI         string `toml:"uri"`
	Database    string `toml:"database"`
	ConnTimeout int    `toml:"conn_timeout"`
}

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	connTimeout := defaultConnTimeout
	if cfg.ConnTimeout > 0 {
		connTimeout = time.Duration(cfg.ConnTimeout) * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connTimeout).
		SetServerSelectionTimeout(connTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	// Retry the initial ping: the store may still be coming up.
	for i := 0; i < defaultMaxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, connTimeout)
		err = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("document store unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	return &DB{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the index set the repositories rely on. Safe to call
// on every startup; Mongo treats existing identical indexes as a no-op.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	start := time.Now()

	indexes := map[string][]mongo.IndexModel{
		CollTaskTemplates: {
			{Keys: bson.D{{Key: "kind", Value: 1}}},
		},
		CollUserTasks: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}}},
		},
		CollUserAchievements: {
			// Achievement grants are keyed by title per user; the unique
			// index is what makes a racing double-grant collapse to one.
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "title", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		CollReadingGoals: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", coll, err)
		}
	}

	slog.Info("Indexes ensured",
		slog.String("type", "db"),
		slog.Duration("took", time.Since(start)))
	return nil
}
