package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"walletwise-api/internal/config"
	"walletwise-api/internal/service"
)

// ReconcileWorker runs the balance reconciliation sweep on a cron schedule.
type ReconcileWorker struct {
	reconcile service.ReconcileService
	cfg       config.ReconcileConfig
	cron      *cron.Cron
}

func NewReconcileWorker(reconcile service.ReconcileService, cfg config.ReconcileConfig) *ReconcileWorker {
	return &ReconcileWorker{
		reconcile: reconcile,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// Start registers the schedule and launches the cron loop. No-op when the
// sweep is disabled.
func (w *ReconcileWorker) Start() error {
	if !w.cfg.Enabled {
		logrus.Info("Reconciliation sweep disabled")
		return nil
	}

	_, err := w.cron.AddFunc(w.cfg.Schedule, w.runOnce)
	if err != nil {
		return err
	}

	w.cron.Start()
	logrus.WithField("schedule", w.cfg.Schedule).Info("Reconciliation sweep scheduled")
	return nil
}

func (w *ReconcileWorker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()

	start := time.Now()
	batch, err := w.reconcile.RunSweep(ctx)
	if err != nil {
		// Another instance may hold the sweep lock; that is expected.
		logrus.WithError(err).Warn("Scheduled reconciliation sweep skipped")
		return
	}

	logrus.WithFields(logrus.Fields{
		"total_users":    batch.TotalUsers,
		"adjusted_users": batch.AdjustedUsers,
		"errors":         batch.Errors,
		"elapsed":        time.Since(start).String(),
	}).Info("Scheduled reconciliation sweep completed")
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (w *ReconcileWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}
