package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/openmonitor/alertd/pkg/models"
	"github.com/openmonitor/alertd/pkg/mongodb"
)

// MockAlertStore is a mock implementation of the AlertStore interface
type MockAlertStore struct {
	mock.Mock
}

// Ensure MockAlertStore implements AlertStore
var _ mongodb.AlertStore = (*MockAlertStore)(nil)

func (m *MockAlertStore) FindByIdentity(ctx context.Context, environment, resource, event string) (*models.Alert, error) {
	args := m.Called(ctx, environment, resource, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertStore) FindByID(ctx context.Context, id string) (*models.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertStore) Insert(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertStore) Update(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertStore) ScanExpirable(ctx context.Context, now time.Time, fn func(*models.Alert) error) error {
	args := m.Called(ctx, now, fn)
	return args.Error(0)
}

func (m *MockAlertStore) PurgeResolved(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertStore) PurgeInformational(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertStore) PurgeDeleted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertStore) List(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Alert), args.Error(1)
}

func (m *MockAlertStore) Counts(ctx context.Context, filter models.AlertFilter) (*models.AlertCounts, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AlertCounts), args.Error(1)
}

// MockHeartbeatStore is a mock implementation of the HeartbeatStore interface
type MockHeartbeatStore struct {
	mock.Mock
}

// Ensure MockHeartbeatStore implements HeartbeatStore
var _ mongodb.HeartbeatStore = (*MockHeartbeatStore)(nil)

func (m *MockHeartbeatStore) Upsert(ctx context.Context, hb *models.Heartbeat) error {
	args := m.Called(ctx, hb)
	return args.Error(0)
}

func (m *MockHeartbeatStore) List(ctx context.Context) ([]*models.Heartbeat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Heartbeat), args.Error(1)
}

func (m *MockHeartbeatStore) Delete(ctx context.Context, origin string) error {
	args := m.Called(ctx, origin)
	return args.Error(0)
}
