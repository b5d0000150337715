package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openmonitor/alertd/pkg/models"
	"github.com/openmonitor/alertd/pkg/mongodb"
)

// HeartbeatService accepts liveness writes from alert-producing origins and
// serves the derived staleness view the dashboards display.
type HeartbeatService struct {
	store          mongodb.HeartbeatStore
	defaultTimeout int
}

// NewHeartbeatService creates a new heartbeat service.
func NewHeartbeatService(store mongodb.HeartbeatStore, defaultTimeout int) *HeartbeatService {
	return &HeartbeatService{
		store:          store,
		defaultTimeout: defaultTimeout,
	}
}

// Receive upserts the heartbeat for an origin, stamping receiveTime on this
// side of the wire.
func (s *HeartbeatService) Receive(ctx context.Context, req *models.HeartbeatRequest) (*models.Heartbeat, error) {
	if req.Origin == "" {
		return nil, fmt.Errorf("heartbeat origin is required")
	}

	now := time.Now().UTC()
	createTime := now
	if req.CreateTime != nil {
		createTime = req.CreateTime.UTC()
	}
	timeout := s.defaultTimeout
	if req.Timeout != nil {
		timeout = *req.Timeout
	}

	hb := &models.Heartbeat{
		Origin:      req.Origin,
		Tags:        req.Tags,
		CreateTime:  createTime,
		ReceiveTime: now,
		Timeout:     timeout,
		Version:     req.Version,
	}
	if err := s.store.Upsert(ctx, hb); err != nil {
		return nil, err
	}
	logrus.Debugf("Heartbeat from %s (version=%s)", hb.Origin, hb.Version)
	return hb, nil
}

// List returns all heartbeats with their derived liveness fields.
func (s *HeartbeatService) List(ctx context.Context) ([]*models.HeartbeatStatus, error) {
	heartbeats, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	statuses := make([]*models.HeartbeatStatus, 0, len(heartbeats))
	for _, hb := range heartbeats {
		statuses = append(statuses, &models.HeartbeatStatus{
			Heartbeat: *hb,
			Stale:     hb.Stale(now),
			LatencyMs: hb.Latency(),
			SinceSec:  int64(now.Sub(hb.ReceiveTime).Seconds()),
		})
	}
	return statuses, nil
}

// Delete removes the heartbeat for an origin.
func (s *HeartbeatService) Delete(ctx context.Context, origin string) error {
	return s.store.Delete(ctx, origin)
}
