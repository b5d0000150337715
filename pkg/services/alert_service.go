package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/openmonitor/alertd/pkg/models"
	"github.com/openmonitor/alertd/pkg/mongodb"
)

// maxWriteAttempts bounds the optimistic-concurrency retry loop. Losing
// the race means the record changed underneath us; each retry re-reads and
// re-decides against the fresh record.
const maxWriteAttempts = 3

// AlertService is the dedup/correlation engine plus the status state
// machine. All mutations go through the store's revision-guarded update so
// concurrent events for the same identity serialize without global locks.
type AlertService struct {
	store          mongodb.AlertStore
	defaultTimeout int
}

// NewAlertService creates a new alert service. defaultTimeout (seconds)
// applies when a raw event does not carry its own.
func NewAlertService(store mongodb.AlertStore, defaultTimeout int) *AlertService {
	return &AlertService{
		store:          store,
		defaultTimeout: defaultTimeout,
	}
}

// ProcessEvent folds one raw event into the record store: create a new
// alert for an unseen identity, bump the duplicate count for a repeat at
// the same severity, or correlate a severity/status change with exactly one
// history entry.
func (s *AlertService) ProcessEvent(ctx context.Context, raw *models.RawEvent) (*models.Alert, error) {
	severity, err := models.ParseSeverity(raw.Severity)
	if err != nil {
		return nil, err
	}
	if raw.ID == "" {
		raw.ID = uuid.New().String()
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := s.store.FindByIdentity(ctx, raw.Environment, raw.Resource, raw.Event)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()

		if existing == nil {
			alert := s.newAlert(raw, severity, now)
			if err := s.store.Insert(ctx, alert); err != nil {
				if errors.Is(err, models.ErrDuplicateIdentity) {
					// Another event for the same identity created the alert
					// first; fold into it on the next pass.
					logrus.Debugf("%s : lost create race for %s/%s/%s, retrying as update",
						raw.ID, raw.Environment, raw.Resource, raw.Event)
					continue
				}
				return nil, err
			}
			logrus.Infof("%s : new alert %s (%s/%s/%s severity=%s)",
				raw.ID, alert.ID, alert.Environment, alert.Resource, alert.Event, alert.Severity)
			return alert, nil
		}

		if severity == existing.Severity && !existing.Status.IsTerminal() {
			s.deduplicate(existing, raw, now)
			logrus.Debugf("%s : duplicate of alert %s (count=%d)", raw.ID, existing.ID, existing.DuplicateCount)
		} else {
			s.correlate(existing, raw, severity, now)
			logrus.Infof("%s : correlated alert %s (%s -> %s, status=%s)",
				raw.ID, existing.ID, existing.PreviousSeverity, existing.Severity, existing.Status)
		}

		if err := s.store.Update(ctx, existing); err != nil {
			if errors.Is(err, models.ErrWriteConflict) {
				logrus.Debugf("%s : write conflict on alert %s, re-reading", raw.ID, existing.ID)
				continue
			}
			return nil, err
		}
		return existing, nil
	}

	return nil, fmt.Errorf("%w: event %s gave up after %d attempts", models.ErrWriteConflict, raw.ID, maxWriteAttempts)
}

// newAlert builds the record for a first occurrence. A clearing severity
// (normal/cleared) opens straight into closed: the condition it resolves
// was never seen.
func (s *AlertService) newAlert(raw *models.RawEvent, severity models.Severity, now time.Time) *models.Alert {
	createTime := now
	if raw.CreateTime != nil {
		createTime = raw.CreateTime.UTC()
	}
	timeout := s.defaultTimeout
	if raw.Timeout != nil {
		timeout = *raw.Timeout
	}

	status := models.StatusOpen
	if severity == models.SeverityNormal || severity == models.SeverityCleared {
		status = models.StatusClosed
	}

	alert := &models.Alert{
		ID:               uuid.New().String(),
		LastReceiveID:    raw.ID,
		Environment:      raw.Environment,
		Service:          raw.Service,
		Resource:         raw.Resource,
		Event:            raw.Event,
		Group:            raw.Group,
		Origin:           raw.Origin,
		Severity:         severity,
		PreviousSeverity: severity,
		TrendIndication:  models.TrendNoChange,
		Status:           status,
		DuplicateCount:   0,
		CreateTime:       createTime,
		ReceiveTime:      now,
		LastReceiveTime:  now,
		Timeout:          timeout,
		Value:            raw.Value,
		Text:             raw.Text,
		Attributes:       raw.Attributes,
		Type:             raw.Type,
		Repeat:           false,
		RawData:          raw.RawData,
		MoreInfo:         raw.MoreInfo,
		GraphURLs:        raw.GraphURLs,
	}
	alert.MergeTags(raw.Tags)
	alert.RecomputeExpireTime()
	alert.AppendHistory(models.HistoryEntry{
		EventID:    raw.ID,
		Event:      raw.Event,
		Type:       models.HistoryNew,
		Severity:   severity,
		Status:     status,
		Text:       raw.Text,
		UpdateTime: now,
	})
	return alert
}

// deduplicate folds a repeat event at the same severity into the existing
// alert. No history entry: the ledger records transitions, not repeats.
// trendIndication is derived from previousSeverity vs severity and a repeat
// changes neither, so it stays as the last transition left it.
func (s *AlertService) deduplicate(alert *models.Alert, raw *models.RawEvent, now time.Time) {
	alert.DuplicateCount++
	alert.LastReceiveID = raw.ID
	alert.LastReceiveTime = now
	alert.Value = raw.Value
	alert.Text = raw.Text
	alert.Origin = raw.Origin
	alert.Repeat = true
	alert.MergeTags(raw.Tags)
	if raw.Timeout != nil {
		alert.Timeout = *raw.Timeout
	}
	alert.RecomputeExpireTime()
}

// correlate applies a severity change, or reopens a terminal alert on a
// recurrence, recording exactly one history entry for the transition.
func (s *AlertService) correlate(alert *models.Alert, raw *models.RawEvent, severity models.Severity, now time.Time) {
	severityChanged := severity != alert.Severity

	nextStatus := alert.Status
	switch {
	case severity == models.SeverityNormal || severity == models.SeverityCleared:
		// A clearing event resolves the condition.
		nextStatus = models.StatusClosed
	case alert.Status == models.StatusClosed || alert.Status == models.StatusExpired:
		nextStatus = models.StatusOpen
	}

	if !severityChanged && nextStatus == alert.Status {
		// A repeat of a clearing event on an already-closed alert. Nothing
		// transitioned, so the ledger and derived fields stay untouched.
		s.deduplicate(alert, raw, now)
		return
	}

	alert.PreviousSeverity = alert.Severity
	alert.TrendIndication = models.Trend(alert.Severity, severity)
	alert.Severity = severity
	alert.Status = nextStatus

	alert.DuplicateCount = 0
	alert.LastReceiveID = raw.ID
	alert.LastReceiveTime = now
	alert.Value = raw.Value
	alert.Text = raw.Text
	alert.Origin = raw.Origin
	alert.Repeat = false
	alert.MergeTags(raw.Tags)
	if raw.Timeout != nil {
		alert.Timeout = *raw.Timeout
	}
	alert.RecomputeExpireTime()

	entryType := models.HistoryStatus
	if severityChanged {
		entryType = models.HistorySeverity
	}
	alert.AppendHistory(models.HistoryEntry{
		EventID:    raw.ID,
		Event:      raw.Event,
		Type:       entryType,
		Severity:   severity,
		Status:     alert.Status,
		Text:       raw.Text,
		UpdateTime: now,
	})
}

// ChangeStatus executes an operator-requested status transition against the
// state machine, appending exactly one history entry atomically with the
// status write.
func (s *AlertService) ChangeStatus(ctx context.Context, alertID string, req *models.StatusChangeRequest) (*models.Alert, error) {
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		alert, err := s.store.FindByID(ctx, alertID)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(alert.Status, target) {
			return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, alert.Status, target)
		}

		now := time.Now().UTC()
		alert.Status = target
		alert.DuplicateCount = 0
		alert.AppendHistory(models.HistoryEntry{
			EventID:    uuid.New().String(),
			Event:      alert.Event,
			Type:       models.HistoryStatus,
			Status:     target,
			Text:       req.Text,
			Actor:      req.Actor,
			UpdateTime: now,
		})

		if err := s.store.Update(ctx, alert); err != nil {
			if errors.Is(err, models.ErrWriteConflict) {
				continue
			}
			return nil, err
		}
		logrus.Infof("Alert %s status changed to %s by %s", alert.ID, target, req.Actor)
		return alert, nil
	}

	return nil, fmt.Errorf("%w: status change on %s gave up after %d attempts", models.ErrWriteConflict, alertID, maxWriteAttempts)
}

// DeleteAlert soft-deletes an alert. The record stays invisible to identity
// lookups and queries until the sweeper removes it for good.
func (s *AlertService) DeleteAlert(ctx context.Context, alertID, actor string) error {
	_, err := s.ChangeStatus(ctx, alertID, &models.StatusChangeRequest{
		Status: string(models.StatusDeleted),
		Actor:  actor,
	})
	return err
}

// TagAlert adds a tag to an alert. Tag churn is not a lifecycle transition
// so no history entry is written.
func (s *AlertService) TagAlert(ctx context.Context, alertID, tag string) (*models.Alert, error) {
	return s.mutateTags(ctx, alertID, func(a *models.Alert) bool {
		before := len(a.Tags)
		a.MergeTags([]string{tag})
		return len(a.Tags) != before
	})
}

// UntagAlert removes a tag from an alert.
func (s *AlertService) UntagAlert(ctx context.Context, alertID, tag string) (*models.Alert, error) {
	return s.mutateTags(ctx, alertID, func(a *models.Alert) bool {
		return a.RemoveTag(tag)
	})
}

func (s *AlertService) mutateTags(ctx context.Context, alertID string, mutate func(*models.Alert) bool) (*models.Alert, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		alert, err := s.store.FindByID(ctx, alertID)
		if err != nil {
			return nil, err
		}
		if !mutate(alert) {
			return alert, nil
		}
		if err := s.store.Update(ctx, alert); err != nil {
			if errors.Is(err, models.ErrWriteConflict) {
				continue
			}
			return nil, err
		}
		return alert, nil
	}
	return nil, fmt.Errorf("%w: tag change on %s gave up after %d attempts", models.ErrWriteConflict, alertID, maxWriteAttempts)
}

// GetAlert returns one alert by id.
func (s *AlertService) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	return s.store.FindByID(ctx, alertID)
}

// ListAlerts returns alerts matching the filter.
func (s *AlertService) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	return s.store.List(ctx, filter)
}

// GetCounts returns the aggregate counts the dashboards poll.
func (s *AlertService) GetCounts(ctx context.Context, filter models.AlertFilter) (*models.AlertCounts, error) {
	return s.store.Counts(ctx, filter)
}

// GetHistory returns the alert's history ledger in storage (creation) order.
func (s *AlertService) GetHistory(ctx context.Context, alertID string) ([]models.HistoryEntry, error) {
	alert, err := s.store.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	return alert.History, nil
}
