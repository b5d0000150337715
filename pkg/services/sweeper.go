package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openmonitor/alertd/pkg/config"
	"github.com/openmonitor/alertd/pkg/models"
	"github.com/openmonitor/alertd/pkg/mongodb"
)

// Sweeper is the background housekeeping process. On every tick it runs
// three idempotent sweeps: expire timed-out alerts, purge old closed and
// expired alerts, and purge old informational alerts. A fourth pass removes
// soft-deleted records. Per-record failures are logged and skipped; a bad
// record never aborts a sweep.
type Sweeper struct {
	store                  mongodb.AlertStore
	interval               time.Duration
	retentionClosed        time.Duration
	retentionInformational time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a sweeper from configuration.
func NewSweeper(store mongodb.AlertStore, cfg *config.SweeperConfig) *Sweeper {
	return &Sweeper{
		store:                  store,
		interval:               time.Duration(cfg.IntervalSeconds) * time.Second,
		retentionClosed:        time.Duration(cfg.RetentionClosedSeconds) * time.Second,
		retentionInformational: time.Duration(cfg.RetentionInformationalSeconds) * time.Second,
	}
}

// Start launches the sweep loop in the background.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	logrus.Infof("Starting housekeeping sweeper (interval=%s, closed retention=%s, informational retention=%s)",
		s.interval, s.retentionClosed, s.retentionInformational)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logrus.Info("Sweeper stopping")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Shutdown stops the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Shutdown() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// RunOnce executes one full housekeeping pass. Each sweep converges on
// re-run: expiry skips already-expired alerts and the purges are plain
// deletes, so overlap with a concurrent pass is harmless.
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now().UTC()

	expired := s.expireAlerts(ctx, now)
	if expired > 0 {
		logrus.Infof("Sweeper expired %d alerts", expired)
	}

	if n, err := s.store.PurgeResolved(ctx, now.Add(-s.retentionClosed)); err != nil {
		logrus.Errorf("Sweeper failed to purge resolved alerts: %v", err)
	} else if n > 0 {
		logrus.Infof("Sweeper purged %d closed/expired alerts", n)
	}

	if n, err := s.store.PurgeInformational(ctx, now.Add(-s.retentionInformational)); err != nil {
		logrus.Errorf("Sweeper failed to purge informational alerts: %v", err)
	} else if n > 0 {
		logrus.Infof("Sweeper purged %d informational alerts", n)
	}

	if n, err := s.store.PurgeDeleted(ctx); err != nil {
		logrus.Errorf("Sweeper failed to purge deleted alerts: %v", err)
	} else if n > 0 {
		logrus.Infof("Sweeper purged %d deleted alerts", n)
	}
}

// expireAlerts transitions every alert past its expiry deadline to expired,
// appending the status history entry in the same guarded write. An alert
// that changed under our feet is skipped; the next tick reconsiders it
// against its fresh state.
func (s *Sweeper) expireAlerts(ctx context.Context, now time.Time) int {
	var expired int
	err := s.store.ScanExpirable(ctx, now, func(alert *models.Alert) error {
		if !models.CanTransition(alert.Status, models.StatusExpired) {
			return nil
		}
		alert.Status = models.StatusExpired
		alert.DuplicateCount = 0
		alert.AppendHistory(models.HistoryEntry{
			EventID:    alert.LastReceiveID,
			Event:      alert.Event,
			Type:       models.HistoryStatus,
			Status:     models.StatusExpired,
			Text:       "alert timeout expired",
			UpdateTime: now,
		})

		if err := s.store.Update(ctx, alert); err != nil {
			logrus.Warnf("Sweeper skipping alert %s: %v", alert.ID, err)
			return nil
		}
		expired++
		return nil
	})
	if err != nil {
		logrus.Errorf("Sweeper expiry scan failed: %v", err)
	}
	return expired
}
