package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openmonitor/alertd/pkg/config"
	"github.com/openmonitor/alertd/pkg/models"
)

const (
	alertsCollection     = "alerts"
	heartbeatsCollection = "heartbeats"
)

// Client wraps the MongoDB driver connection and implements AlertStore
// against the alerts collection. The heartbeat store contract is served by
// the HeartbeatRepo obtained from Heartbeats().
type Client struct {
	client     *mongo.Client
	db         *mongo.Database
	alerts     *mongo.Collection
	heartbeats *mongo.Collection
	opTimeout  time.Duration
}

var _ AlertStore = (*Client)(nil)

// NewClient connects to MongoDB and verifies the connection before
// returning. Every store operation later runs under the configured
// per-operation timeout.
func NewClient(cfg *config.MongoConfig) (*Client, error) {
	logrus.Infof("Connecting to MongoDB at %s (database: %s)", cfg.URI, cfg.Database)

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify the connection with a few retries; a cold Mongo container can
	// take a moment to accept connections.
	var pingErr error
	for i := 0; i < 5; i++ {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = client.Ping(pingCtx, nil)
		cancel()

		if pingErr == nil {
			break
		}
		logrus.Warnf("Failed to ping MongoDB (attempt %d/5): %v", i+1, pingErr)
		time.Sleep(2 * time.Second)
	}
	if pingErr != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB after multiple attempts: %w", pingErr)
	}

	db := client.Database(cfg.Database)
	c := &Client{
		client:     client,
		db:         db,
		alerts:     db.Collection(alertsCollection),
		heartbeats: db.Collection(heartbeatsCollection),
		opTimeout:  time.Duration(cfg.OpTimeoutSeconds) * time.Second,
	}
	if c.opTimeout <= 0 {
		c.opTimeout = 5 * time.Second
	}

	logrus.Info("Connected to MongoDB")
	return c, nil
}

// liveStatuses enumerates every status except deleted. Partial index
// filters cannot express "$ne: deleted", so the identity index matches the
// live statuses explicitly instead.
var liveStatuses = []string{
	string(models.StatusOpen),
	string(models.StatusAssign),
	string(models.StatusAck),
	string(models.StatusClosed),
	string(models.StatusExpired),
	string(models.StatusInactive),
	string(models.StatusUnknown),
}

// alertIndexModels returns the indexes the engine relies on. The identity
// index is unique only across non-deleted alerts so a deleted identity can
// be re-raised while awaiting purge.
func alertIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "environment", Value: 1},
				{Key: "resource", Value: 1},
				{Key: "event", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": liveStatuses},
				}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "severity", Value: 1}}},
		{Keys: bson.D{{Key: "lastReceiveTime", Value: -1}}},
		{Keys: bson.D{{Key: "expireTime", Value: 1}}},
	}
}

// EnsureIndexes creates the indexes the engine relies on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.alerts.Indexes().CreateMany(ctx, alertIndexModels()); err != nil {
		return fmt.Errorf("failed to create alert indexes: %w", c.translateErr(err))
	}
	return nil
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// opContext bounds a store operation. No store call may block indefinitely;
// a missed deadline surfaces as ErrStoreUnavailable.
func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// translateErr maps driver failures onto the engine's error taxonomy.
func (c *Client) translateErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", models.ErrDuplicateIdentity, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return err
}
