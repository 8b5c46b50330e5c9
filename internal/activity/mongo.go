package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/shopsync-service/config"
	"github.com/fekuna/shopsync-service/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

func NewMongoClient(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	clientOptions := options.Client().ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// MongoRecorder appends entries to a collection and mirrors failures to the log.
type MongoRecorder struct {
	coll   *mongo.Collection
	logger logger.ZapLogger
}

func NewMongoRecorder(client *mongo.Client, cfg config.MongoConfig, log logger.ZapLogger) *MongoRecorder {
	return &MongoRecorder{
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: log,
	}
}

func (r *MongoRecorder) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "job_log_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("activity indexes: %w", err)
	}
	return nil
}

func (r *MongoRecorder) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	// Detached from the job context so a cancelled job still leaves its trail.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(writeCtx, e); err != nil {
		r.logger.Error("failed to record activity", append(entryFields(e), zap.Error(err))...)
	}
}
