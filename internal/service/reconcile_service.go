package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/external"
	"walletwise-api/internal/ledger"
	"walletwise-api/internal/monitoring"
	"walletwise-api/internal/repository"
)

const sweepLockKey = "reconcile:sweep"

// ReconcileService orchestrates balance reconciliation. The full sweep is
// guarded by a distributed lock so overlapping runs (two instances, or a
// slow run meeting the next schedule) cannot interleave.
type ReconcileService interface {
	ReconcileUser(ctx context.Context, userID primitive.ObjectID) (*ledger.Report, error)
	RunSweep(ctx context.Context) (*ledger.BatchReport, error)
	DriftReport(ctx context.Context, userID primitive.ObjectID) (*ledger.Report, error)
}

type reconcileService struct {
	reconciler ledger.Reconciler
	locks      repository.LockRepository
	events     external.EventPublisher
	metrics    monitoring.MetricsService
	lockTTL    time.Duration
}

func NewReconcileService(
	reconciler ledger.Reconciler,
	locks repository.LockRepository,
	events external.EventPublisher,
	metrics monitoring.MetricsService,
	lockTTL time.Duration,
) ReconcileService {
	return &reconcileService{
		reconciler: reconciler,
		locks:      locks,
		events:     events,
		metrics:    metrics,
		lockTTL:    lockTTL,
	}
}

func (s *reconcileService) ReconcileUser(ctx context.Context, userID primitive.ObjectID) (*ledger.Report, error) {
	start := time.Now()

	report, err := s.reconciler.ReconcileUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	drift, _ := report.Drift.Float64()
	s.metrics.RecordReconciliation(report.Adjusted, drift, time.Since(start))

	if report.Adjusted {
		s.events.PublishDriftEvent(ctx, &external.DriftEvent{
			UserID:           userID.Hex(),
			OldBalance:       report.Old.String(),
			NewBalance:       report.New.String(),
			Drift:            report.Drift.String(),
			TransactionCount: report.TransactionCount,
		})
	}

	return report, nil
}

func (s *reconcileService) RunSweep(ctx context.Context) (*ledger.BatchReport, error) {
	lock, err := s.locks.AcquireLock(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("reconciliation sweep not started: %w", err)
	}
	defer func() {
		if err := s.locks.ReleaseLock(ctx, lock); err != nil {
			logrus.WithError(err).Warn("Failed to release reconciliation sweep lock")
		}
	}()

	batch, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, report := range batch.Reports {
		drift, _ := report.Drift.Float64()
		s.metrics.RecordReconciliation(report.Adjusted, drift, 0)

		if report.Adjusted {
			s.events.PublishDriftEvent(ctx, &external.DriftEvent{
				UserID:           report.UserID.Hex(),
				OldBalance:       report.Old.String(),
				NewBalance:       report.New.String(),
				Drift:            report.Drift.String(),
				TransactionCount: report.TransactionCount,
			})
		}
	}

	logrus.WithFields(logrus.Fields{
		"total_users":    batch.TotalUsers,
		"adjusted_users": batch.AdjustedUsers,
		"errors":         batch.Errors,
		"elapsed":        batch.Elapsed.String(),
	}).Info("Reconciliation sweep finished")

	return batch, nil
}

func (s *reconcileService) DriftReport(ctx context.Context, userID primitive.ObjectID) (*ledger.Report, error) {
	return s.reconciler.ComputeDrift(ctx, userID)
}
