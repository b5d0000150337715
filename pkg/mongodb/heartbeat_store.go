package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openmonitor/alertd/pkg/models"
)

// HeartbeatRepo serves the heartbeat store contract against the heartbeats
// collection of a shared client.
type HeartbeatRepo struct {
	c *Client
}

var _ HeartbeatStore = (*HeartbeatRepo)(nil)

// Heartbeats returns the heartbeat store backed by this client.
func (c *Client) Heartbeats() *HeartbeatRepo {
	return &HeartbeatRepo{c: c}
}

// Upsert writes the heartbeat for its origin, replacing the previous one.
// Heartbeats carry no history so a plain replace is all that is needed.
func (r *HeartbeatRepo) Upsert(ctx context.Context, hb *models.Heartbeat) error {
	ctx, cancel := r.c.opContext(ctx)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.c.heartbeats.ReplaceOne(ctx, bson.M{"_id": hb.Origin}, hb, opts); err != nil {
		return fmt.Errorf("failed to upsert heartbeat for %s: %w", hb.Origin, r.c.translateErr(err))
	}
	return nil
}

// List returns all heartbeats ordered by origin.
func (r *HeartbeatRepo) List(ctx context.Context) ([]*models.Heartbeat, error) {
	ctx, cancel := r.c.opContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.c.heartbeats.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list heartbeats: %w", r.c.translateErr(err))
	}
	defer cursor.Close(ctx)

	var heartbeats []*models.Heartbeat
	if err := cursor.All(ctx, &heartbeats); err != nil {
		return nil, fmt.Errorf("failed to decode heartbeats: %w", r.c.translateErr(err))
	}
	return heartbeats, nil
}

// Delete removes the heartbeat for an origin.
func (r *HeartbeatRepo) Delete(ctx context.Context, origin string) error {
	ctx, cancel := r.c.opContext(ctx)
	defer cancel()

	res, err := r.c.heartbeats.DeleteOne(ctx, bson.M{"_id": origin})
	if err != nil {
		return fmt.Errorf("failed to delete heartbeat for %s: %w", origin, r.c.translateErr(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: heartbeat %s", models.ErrNotFound, origin)
	}
	return nil
}
