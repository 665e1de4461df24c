package alerts

import (
	"context"
	"time"

	"github.com/gobridge/bridge-points/config"
	"github.com/gobridge/bridge-points/logging"
	"github.com/gobridge/bridge-points/points"
	"github.com/gobridge/bridge-points/repository"
)

const defaultStalePendingLimit = 100

type AlertManager struct {
	logger logging.Logger
	jobs   map[string]*Job
}

func NewAlertManager(logger logging.Logger, repo *repository.Repo, pending points.PendingStore, cfg *config.AlertsConfig) *AlertManager {
	provider := NewAlertsProvider(repo, pending)
	params := &AlertJobParams{
		StalePendingAfter: cfg.StalePendingAfter,
		Limit:             defaultStalePendingLimit,
	}
	jobs := map[string]*Job{
		"stale_pending_transfer": {
			Interval: cfg.Interval,
			Timeout:  time.Second * 10,
			Func:     provider.FindStalePendingTransfers,
			Metric:   NewAlertStalePendingTransfer(),
			Params:   params,
		},
		"parked_finalize_events": {
			Interval: cfg.Interval,
			Timeout:  time.Second * 10,
			Func:     provider.CountParkedFinalizeEvents,
			Metric:   NewAlertParkedFinalizeEvents(),
			Params:   params,
		},
	}
	for name, job := range jobs {
		job.logger = logger.WithField("alert_job", name)
	}
	return &AlertManager{
		logger: logger,
		jobs:   jobs,
	}
}

func (m *AlertManager) Start(ctx context.Context, isSynced func() bool) {
	t := time.NewTicker(10 * time.Second)
	for !isSynced() {
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			m.logger.Debug("waiting for all streams to be synchronized")
		}
	}
	t.Stop()
	m.logger.Info("all streams are synced, starting alert manager jobs")

	for _, job := range m.jobs {
		go job.Start(ctx, isSynced)
	}
}
