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

	"github.com/openmonitor/alertd/pkg/models"
)

// FindByIdentity looks up the live alert for an (environment, resource,
// event) triple. Deleted alerts are invisible to identity lookup.
func (c *Client) FindByIdentity(ctx context.Context, environment, resource, event string) (*models.Alert, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	filter := bson.M{
		"environment": environment,
		"resource":    resource,
		"event":       event,
		"status":      bson.M{"$ne": string(models.StatusDeleted)},
	}

	var alert models.Alert
	err := c.alerts.FindOne(ctx, filter).Decode(&alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert by identity: %w", c.translateErr(err))
	}
	return &alert, nil
}

// FindByID looks up an alert by surrogate id.
func (c *Client) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var alert models.Alert
	err := c.alerts.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: alert %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert %s: %w", id, c.translateErr(err))
	}
	return &alert, nil
}

// Insert creates a new alert record. The partial unique index on the
// identity triple turns a concurrent create into ErrDuplicateIdentity.
func (c *Client) Insert(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	alert.Revision = 1
	alert.SchemaVersion = models.CurrentSchemaVersion
	if _, err := c.alerts.InsertOne(ctx, alert); err != nil {
		return fmt.Errorf("failed to insert alert: %w", c.translateErr(err))
	}
	return nil
}

// Update replaces the document guarded by the revision read earlier. A
// matched count of zero means another writer got there first.
func (c *Client) Update(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	expected := alert.Revision
	alert.Revision = expected + 1
	alert.SchemaVersion = models.CurrentSchemaVersion

	res, err := c.alerts.ReplaceOne(ctx, bson.M{"_id": alert.ID, "revision": expected}, alert)
	if err != nil {
		alert.Revision = expected
		return fmt.Errorf("failed to update alert %s: %w", alert.ID, c.translateErr(err))
	}
	if res.MatchedCount == 0 {
		alert.Revision = expected
		return fmt.Errorf("%w: alert %s at revision %d", models.ErrWriteConflict, alert.ID, expected)
	}
	return nil
}

// ScanExpirable walks alerts past their expiry deadline. Documents that
// fail to decode are logged and skipped so one bad record never aborts a
// sweep.
func (c *Client) ScanExpirable(ctx context.Context, now time.Time, fn func(*models.Alert) error) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	filter := bson.M{
		"status": bson.M{"$in": []string{
			string(models.StatusOpen),
			string(models.StatusAssign),
			string(models.StatusAck),
		}},
		"timeout":    bson.M{"$gt": 0},
		"expireTime": bson.M{"$lte": now},
	}

	cursor, err := c.alerts.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to scan expirable alerts: %w", c.translateErr(err))
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var alert models.Alert
		if err := cursor.Decode(&alert); err != nil {
			logrus.Warnf("Skipping undecodable alert document: %v", err)
			continue
		}
		if err := fn(&alert); err != nil {
			return err
		}
	}
	return c.translateErr(cursor.Err())
}

// PurgeResolved deletes closed and expired alerts last touched before the
// cutoff.
func (c *Client) PurgeResolved(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	res, err := c.alerts.DeleteMany(ctx, bson.M{
		"status": bson.M{"$in": []string{
			string(models.StatusClosed),
			string(models.StatusExpired),
		}},
		"lastReceiveTime": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge resolved alerts: %w", c.translateErr(err))
	}
	return res.DeletedCount, nil
}

// PurgeInformational deletes informational alerts last touched before the
// cutoff, whatever their status.
func (c *Client) PurgeInformational(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	res, err := c.alerts.DeleteMany(ctx, bson.M{
		"severity":        string(models.SeverityInformational),
		"lastReceiveTime": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge informational alerts: %w", c.translateErr(err))
	}
	return res.DeletedCount, nil
}

// PurgeDeleted removes soft-deleted alerts.
func (c *Client) PurgeDeleted(ctx context.Context) (int64, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	res, err := c.alerts.DeleteMany(ctx, bson.M{"status": string(models.StatusDeleted)})
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted alerts: %w", c.translateErr(err))
	}
	return res.DeletedCount, nil
}

// List returns alerts matching the filter, newest activity first.
func (c *Client) List(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "lastReceiveTime", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := c.alerts.Find(ctx, buildAlertQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", c.translateErr(err))
	}
	defer cursor.Close(ctx)

	var alerts []*models.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", c.translateErr(err))
	}
	return alerts, nil
}

// Counts aggregates matching alerts by status and by severity in a single
// pipeline pass. History arrays are never touched.
func (c *Client) Counts(ctx context.Context, filter models.AlertFilter) (*models.AlertCounts, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: buildAlertQuery(filter)}},
		bson.D{{Key: "$facet", Value: bson.M{
			"byStatus": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"bySeverity": bson.A{
				bson.M{"$group": bson.M{"_id": "$severity", "count": bson.M{"$sum": 1}}},
			},
			"total": bson.A{
				bson.M{"$count": "count"},
			},
		}}},
	}

	cursor, err := c.alerts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate alert counts: %w", c.translateErr(err))
	}
	defer cursor.Close(ctx)

	var results []struct {
		ByStatus []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byStatus"`
		BySeverity []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"bySeverity"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode alert counts: %w", c.translateErr(err))
	}

	counts := &models.AlertCounts{
		ByStatus:   make(map[string]int64),
		BySeverity: make(map[string]int64),
	}
	if len(results) == 0 {
		return counts, nil
	}
	for _, g := range results[0].ByStatus {
		counts.ByStatus[g.ID] = g.Count
	}
	for _, g := range results[0].BySeverity {
		counts.BySeverity[g.ID] = g.Count
	}
	if len(results[0].Total) > 0 {
		counts.Total = results[0].Total[0].Count
	}
	return counts, nil
}

// buildAlertQuery translates an AlertFilter into a Mongo filter document.
// Deleted alerts are always excluded unless they are asked for explicitly.
func buildAlertQuery(filter models.AlertFilter) bson.M {
	query := bson.M{}

	if filter.Status != "" {
		query["status"] = string(filter.Status)
	} else {
		query["status"] = bson.M{"$ne": string(models.StatusDeleted)}
	}
	if filter.Environment != "" {
		query["environment"] = filter.Environment
	}
	if filter.Resource != "" {
		query["resource"] = filter.Resource
	}
	if filter.Event != "" {
		query["event"] = filter.Event
	}
	if filter.Service != "" {
		query["service"] = filter.Service
	}
	if filter.Group != "" {
		query["group"] = filter.Group
	}
	if filter.Origin != "" {
		query["origin"] = filter.Origin
	}
	if filter.Severity != "" {
		query["severity"] = string(filter.Severity)
	}
	if len(filter.Tags) > 0 {
		query["tags"] = bson.M{"$all": filter.Tags}
	}

	window := bson.M{}
	if filter.From != nil {
		window["$gte"] = *filter.From
	}
	if filter.To != nil {
		window["$lt"] = *filter.To
	}
	if len(window) > 0 {
		query["lastReceiveTime"] = window
	}
	return query
}
