package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/cache"
	"walletwise-api/internal/external"
	"walletwise-api/internal/ledger"
	"walletwise-api/internal/models"
	"walletwise-api/internal/monitoring"
	"walletwise-api/internal/repository"
)

// TransactionService fronts the ledger for the HTTP layer. All transaction
// mutations flow through the ledger; this layer adds listing, cache
// invalidation, events, and metrics around it.
type TransactionService interface {
	Create(ctx context.Context, userID primitive.ObjectID, input *ledger.CreateInput) (*models.Transaction, error)
	Update(ctx context.Context, userID, txID primitive.ObjectID, changes *ledger.UpdateInput) (*models.Transaction, error)
	Delete(ctx context.Context, userID, txID primitive.ObjectID) error
	Get(ctx context.Context, userID, txID primitive.ObjectID) (*models.Transaction, error)
	List(ctx context.Context, userID primitive.ObjectID, filter repository.TransactionFilter) ([]*models.Transaction, int64, error)
}

type transactionService struct {
	ledger  ledger.Ledger
	txRepo  repository.TransactionRepository
	cache   cache.CacheService
	events  external.EventPublisher
	metrics monitoring.MetricsService
}

func NewTransactionService(
	l ledger.Ledger,
	txRepo repository.TransactionRepository,
	cacheService cache.CacheService,
	events external.EventPublisher,
	metrics monitoring.MetricsService,
) TransactionService {
	return &transactionService{
		ledger:  l,
		txRepo:  txRepo,
		cache:   cacheService,
		events:  events,
		metrics: metrics,
	}
}

func (s *transactionService) Create(ctx context.Context, userID primitive.ObjectID, input *ledger.CreateInput) (*models.Transaction, error) {
	start := time.Now()

	tx, err := s.ledger.Create(ctx, userID, input)
	s.record("create", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, userID)
	s.events.PublishTransactionEvent(ctx, external.RouteTransactionCreated, &external.TransactionEvent{
		TransactionID: tx.ID.Hex(),
		UserID:        userID.Hex(),
		Kind:          string(tx.Kind),
		Amount:        tx.Amount.String(),
		Category:      tx.Category,
		Delta:         tx.SignedEffect().String(),
	})

	return tx, nil
}

func (s *transactionService) Update(ctx context.Context, userID, txID primitive.ObjectID, changes *ledger.UpdateInput) (*models.Transaction, error) {
	start := time.Now()

	tx, err := s.ledger.Update(ctx, userID, txID, changes)
	s.record("update", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, userID)
	s.events.PublishTransactionEvent(ctx, external.RouteTransactionUpdated, &external.TransactionEvent{
		TransactionID: tx.ID.Hex(),
		UserID:        userID.Hex(),
		Kind:          string(tx.Kind),
		Amount:        tx.Amount.String(),
		Category:      tx.Category,
		Delta:         tx.SignedEffect().String(),
	})

	return tx, nil
}

func (s *transactionService) Delete(ctx context.Context, userID, txID primitive.ObjectID) error {
	start := time.Now()

	err := s.ledger.Delete(ctx, userID, txID)
	s.record("delete", err, time.Since(start))
	if err != nil {
		return err
	}

	s.invalidateSummary(ctx, userID)
	s.events.PublishTransactionEvent(ctx, external.RouteTransactionDeleted, &external.TransactionEvent{
		TransactionID: txID.Hex(),
		UserID:        userID.Hex(),
	})

	return nil
}

func (s *transactionService) Get(ctx context.Context, userID, txID primitive.ObjectID) (*models.Transaction, error) {
	tx, err := s.txRepo.FindByID(ctx, userID, txID)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "find transaction", Err: err}
	}
	if tx == nil {
		return nil, &ledger.NotFoundError{ID: txID.Hex()}
	}
	return tx, nil
}

func (s *transactionService) List(ctx context.Context, userID primitive.ObjectID, filter repository.TransactionFilter) ([]*models.Transaction, int64, error) {
	transactions, total, err := s.txRepo.FindByUserFiltered(ctx, userID, filter)
	if err != nil {
		return nil, 0, &ledger.StoreUnavailableError{Op: "list transactions", Err: err}
	}
	return transactions, total, nil
}

func (s *transactionService) record(operation string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"

		var partial *ledger.PartialApplicationError
		if errors.As(err, &partial) {
			outcome = "partial"
			s.metrics.RecordPartialApplication(operation)
			logrus.WithFields(logrus.Fields{
				"operation":      operation,
				"transaction_id": partial.TransactionID,
				"delta":          partial.Delta.String(),
			}).WithError(partial.Err).Error("Balance increment failed after record write")
		}
	}
	s.metrics.RecordLedgerOperation(operation, outcome, duration)
}

func (s *transactionService) invalidateSummary(ctx context.Context, userID primitive.ObjectID) {
	if err := s.cache.Delete(ctx, cache.SummaryKey(userID.Hex())); err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).
			Warn("Failed to invalidate summary cache")
	}
}
