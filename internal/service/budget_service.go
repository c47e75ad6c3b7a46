package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/ledger"
	"walletwise-api/internal/models"
	"walletwise-api/internal/repository"
)

// BudgetService manages monthly budgets and their spending status.
type BudgetService interface {
	Save(ctx context.Context, userID primitive.ObjectID, req *SaveBudgetRequest) (*models.Budget, error)
	Get(ctx context.Context, userID primitive.ObjectID, month string) (*BudgetStatus, error)
	Delete(ctx context.Context, userID primitive.ObjectID, month string) error
}

type SaveBudgetRequest struct {
	Month       string                  `json:"month" binding:"required,month"`
	TotalBudget decimal.Decimal         `json:"total_budget" binding:"required"`
	Categories  []models.BudgetCategory `json:"categories"`
}

// BudgetStatus pairs the stored budget with actual spending per category.
type BudgetStatus struct {
	Budget   *models.Budget             `json:"budget"`
	Spent    map[string]decimal.Decimal `json:"spent"`
	Total    decimal.Decimal            `json:"total_spent"`
	Exceeded []string                   `json:"exceeded_categories"`
}

type budgetService struct {
	budgetRepo repository.BudgetRepository
	txRepo     repository.TransactionRepository
}

func NewBudgetService(budgetRepo repository.BudgetRepository, txRepo repository.TransactionRepository) BudgetService {
	return &budgetService{
		budgetRepo: budgetRepo,
		txRepo:     txRepo,
	}
}

func (s *budgetService) Save(ctx context.Context, userID primitive.ObjectID, req *SaveBudgetRequest) (*models.Budget, error) {
	budget := &models.Budget{
		UserID:      userID,
		Month:       req.Month,
		TotalBudget: req.TotalBudget,
		Categories:  req.Categories,
	}

	if err := budget.Validate(); err != nil {
		return nil, &ledger.ValidationError{Reason: err.Error()}
	}
	budget.RecalculatePercentages()

	if err := s.budgetRepo.Upsert(ctx, budget); err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "save budget", Err: err}
	}

	return budget, nil
}

func (s *budgetService) Get(ctx context.Context, userID primitive.ObjectID, month string) (*BudgetStatus, error) {
	budget, err := s.budgetRepo.GetByUserAndMonth(ctx, userID, month)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "get budget", Err: err}
	}
	if budget == nil {
		return nil, &ledger.NotFoundError{Resource: "budget", ID: month}
	}

	from, to, err := models.MonthBounds(month)
	if err != nil {
		return nil, &ledger.ValidationError{Reason: err.Error()}
	}

	transactions, err := s.txRepo.FindByUserInRange(ctx, userID, from, to)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "list month transactions", Err: err}
	}

	status := &BudgetStatus{
		Budget: budget,
		Spent:  make(map[string]decimal.Decimal),
		Total:  decimal.Zero,
	}

	for _, tx := range transactions {
		if tx.Kind != models.KindExpense {
			continue
		}
		status.Spent[tx.Category] = status.Spent[tx.Category].Add(tx.Amount)
		status.Total = status.Total.Add(tx.Amount)
	}

	for _, category := range budget.Categories {
		if status.Spent[category.Name].GreaterThan(category.Amount) {
			status.Exceeded = append(status.Exceeded, category.Name)
		}
	}

	return status, nil
}

func (s *budgetService) Delete(ctx context.Context, userID primitive.ObjectID, month string) error {
	budget, err := s.budgetRepo.GetByUserAndMonth(ctx, userID, month)
	if err != nil {
		return &ledger.StoreUnavailableError{Op: "get budget", Err: err}
	}
	if budget == nil {
		return &ledger.NotFoundError{Resource: "budget", ID: month}
	}

	if err := s.budgetRepo.Delete(ctx, userID, month); err != nil {
		return &ledger.StoreUnavailableError{Op: "delete budget", Err: err}
	}
	return nil
}
