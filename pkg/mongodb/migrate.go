package mongodb

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmonitor/alertd/pkg/models"
)

// legacySeverities maps the uppercase severity values written by pre-v2
// deployments onto the canonical vocabulary. INFORM widened to
// informational along the way.
var legacySeverities = map[string]models.Severity{
	"CRITICAL": models.SeverityCritical,
	"MAJOR":    models.SeverityMajor,
	"MINOR":    models.SeverityMinor,
	"WARNING":  models.SeverityWarning,
	"NORMAL":   models.SeverityNormal,
	"CLEAR":    models.SeverityCleared,
	"INFORM":   models.SeverityInformational,
	"DEBUG":    models.SeverityDebug,
}

var legacyStatuses = map[string]models.Status{
	"OPEN":    models.StatusOpen,
	"ACK":     models.StatusAck,
	"CLOSED":  models.StatusClosed,
	"EXPIRED": models.StatusExpired,
}

// Migrate upgrades alert documents written by older deployments to the
// current schema. Every step is a no-op on already-migrated data, so the
// pass is safe to run on every startup.
func (c *Client) Migrate(ctx context.Context) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	var migrated int64

	for legacy, canonical := range legacySeverities {
		res, err := c.alerts.UpdateMany(ctx,
			bson.M{"severity": legacy},
			bson.M{"$set": bson.M{"severity": string(canonical)}})
		if err != nil {
			return fmt.Errorf("failed to migrate severity %s: %w", legacy, c.translateErr(err))
		}
		migrated += res.ModifiedCount
	}

	for legacy, canonical := range legacyStatuses {
		res, err := c.alerts.UpdateMany(ctx,
			bson.M{"status": legacy},
			bson.M{"$set": bson.M{"status": string(canonical)}})
		if err != nil {
			return fmt.Errorf("failed to migrate status %s: %w", legacy, c.translateErr(err))
		}
		migrated += res.ModifiedCount
	}

	res, err := c.alerts.UpdateMany(ctx,
		bson.M{"trendIndication": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"trendIndication": string(models.TrendNoChange)}})
	if err != nil {
		return fmt.Errorf("failed to backfill trendIndication: %w", c.translateErr(err))
	}
	migrated += res.ModifiedCount

	res, err = c.alerts.UpdateMany(ctx,
		bson.M{"revision": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revision": int64(1)}})
	if err != nil {
		return fmt.Errorf("failed to backfill revision: %w", c.translateErr(err))
	}
	migrated += res.ModifiedCount

	res, err = c.alerts.UpdateMany(ctx,
		bson.M{"schemaVersion": bson.M{"$lt": models.CurrentSchemaVersion}},
		bson.M{"$set": bson.M{"schemaVersion": models.CurrentSchemaVersion}})
	if err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", c.translateErr(err))
	}
	res2, err := c.alerts.UpdateMany(ctx,
		bson.M{"schemaVersion": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"schemaVersion": models.CurrentSchemaVersion}})
	if err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", c.translateErr(err))
	}
	migrated += res.ModifiedCount + res2.ModifiedCount

	if migrated > 0 {
		logrus.Infof("Schema migration touched %d document fields", migrated)
	} else {
		logrus.Debug("Schema migration found nothing to do")
	}
	return nil
}
