package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/cache"
	"walletwise-api/internal/ledger"
	"walletwise-api/internal/models"
	"walletwise-api/internal/monitoring"
	"walletwise-api/internal/repository"
)

// Summary is the dashboard read model: the stored wallet balance plus
// aggregates derived from the current month's transactions.
type Summary struct {
	WalletBalance    decimal.Decimal            `json:"wallet_balance"`
	MonthlyIncome    decimal.Decimal            `json:"monthly_income"`
	MonthlyExpense   decimal.Decimal            `json:"monthly_expense"`
	CategorySpending map[string]decimal.Decimal `json:"category_spending"`
	WeeklySpending   []WeeklyBucket             `json:"weekly_spending"`
	Recent           []*models.Transaction      `json:"recent_transactions"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}

// WeeklyBucket is one week's expense total within the current month.
type WeeklyBucket struct {
	Week  int             `json:"week"`
	Total decimal.Decimal `json:"total"`
}

// DashboardService assembles the summary, cached per user until the next
// ledger mutation invalidates it.
type DashboardService interface {
	GetSummary(ctx context.Context, userID primitive.ObjectID) (*Summary, error)
}

type dashboardService struct {
	txRepo     repository.TransactionRepository
	userRepo   repository.UserRepository
	cache      cache.CacheService
	metrics    monitoring.MetricsService
	summaryTTL time.Duration
}

func NewDashboardService(
	txRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	cacheService cache.CacheService,
	metrics monitoring.MetricsService,
	summaryTTL time.Duration,
) DashboardService {
	return &dashboardService{
		txRepo:     txRepo,
		userRepo:   userRepo,
		cache:      cacheService,
		metrics:    metrics,
		summaryTTL: summaryTTL,
	}
}

func (s *dashboardService) GetSummary(ctx context.Context, userID primitive.ObjectID) (*Summary, error) {
	key := cache.SummaryKey(userID.Hex())

	var cached Summary
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.metrics.RecordCacheOperation("summary", true)
		return &cached, nil
	}
	if err != cache.ErrCacheMiss {
		logrus.WithError(err).WithField("user_id", userID.Hex()).
			Warn("Summary cache read failed, recomputing")
	}
	s.metrics.RecordCacheOperation("summary", false)

	summary, err := s.computeSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, summary, s.summaryTTL); err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).
			Warn("Failed to cache summary")
	}

	return summary, nil
}

func (s *dashboardService) computeSummary(ctx context.Context, userID primitive.ObjectID) (*Summary, error) {
	balance, err := s.userRepo.GetBalance(ctx, userID)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "get balance", Err: err}
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	monthly, err := s.txRepo.FindByUserInRange(ctx, userID, monthStart, now)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "list monthly transactions", Err: err}
	}

	summary := &Summary{
		WalletBalance:    balance,
		MonthlyIncome:    decimal.Zero,
		MonthlyExpense:   decimal.Zero,
		CategorySpending: make(map[string]decimal.Decimal),
		WeeklySpending: []WeeklyBucket{
			{Week: 1, Total: decimal.Zero},
			{Week: 2, Total: decimal.Zero},
			{Week: 3, Total: decimal.Zero},
			{Week: 4, Total: decimal.Zero},
			{Week: 5, Total: decimal.Zero},
		},
		GeneratedAt: now,
	}

	for _, tx := range monthly {
		switch tx.Kind {
		case models.KindIncome:
			summary.MonthlyIncome = summary.MonthlyIncome.Add(tx.Amount)
		case models.KindExpense:
			summary.MonthlyExpense = summary.MonthlyExpense.Add(tx.Amount)
			summary.CategorySpending[tx.Category] = summary.CategorySpending[tx.Category].Add(tx.Amount)

			week := (tx.Date.Day() - 1) / 7
			if week > 4 {
				week = 4
			}
			summary.WeeklySpending[week].Total = summary.WeeklySpending[week].Total.Add(tx.Amount)
		}
	}

	recent, err := s.txRepo.FindRecentByUser(ctx, userID, 5)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "list recent transactions", Err: err}
	}
	summary.Recent = recent

	return summary, nil
}
