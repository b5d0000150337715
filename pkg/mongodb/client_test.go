package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmonitor/alertd/pkg/models"
)

func TestIdentityIndexIsUniqueOverLiveStatuses(t *testing.T) {
	indexes := alertIndexModels()
	require.NotEmpty(t, indexes)

	identity := indexes[0]
	assert.Equal(t, bson.D{
		{Key: "environment", Value: 1},
		{Key: "resource", Value: 1},
		{Key: "event", Value: 1},
	}, identity.Keys)
	require.NotNil(t, identity.Options)
	require.NotNil(t, identity.Options.Unique)
	assert.True(t, *identity.Options.Unique)

	// Partial filters only support $eq/$exists/$gt/$gte/$lt/$lte/$type/$and/
	// $or/$in, so the filter must enumerate the live statuses rather than
	// negate deleted.
	filter, ok := identity.Options.PartialFilterExpression.(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$in": liveStatuses}, filter["status"])
}

func TestLiveStatusesCoverEverythingExceptDeleted(t *testing.T) {
	assert.NotContains(t, liveStatuses, string(models.StatusDeleted))
	for _, s := range liveStatuses {
		assert.True(t, models.IsValidStatus(s), "status %s", s)
	}
	// every valid status except deleted is live
	for _, s := range []models.Status{
		models.StatusOpen, models.StatusAssign, models.StatusAck,
		models.StatusClosed, models.StatusExpired, models.StatusInactive,
		models.StatusUnknown,
	} {
		assert.Contains(t, liveStatuses, string(s))
	}
}
