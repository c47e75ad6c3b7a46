package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/ledger"
	"walletwise-api/internal/models"
	"walletwise-api/internal/repository"
)

type MockBudgetRepository struct {
	mock.Mock
}

func (m *MockBudgetRepository) Upsert(ctx context.Context, budget *models.Budget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

func (m *MockBudgetRepository) GetByUserAndMonth(ctx context.Context, userID primitive.ObjectID, month string) (*models.Budget, error) {
	args := m.Called(ctx, userID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Budget), args.Error(1)
}

func (m *MockBudgetRepository) GetLatestByUser(ctx context.Context, userID primitive.ObjectID) (*models.Budget, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Budget), args.Error(1)
}

func (m *MockBudgetRepository) Delete(ctx context.Context, userID primitive.ObjectID, month string) error {
	args := m.Called(ctx, userID, month)
	return args.Error(0)
}

func (m *MockBudgetRepository) CreateIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByUserFiltered(ctx context.Context, userID primitive.ObjectID, filter repository.TransactionFilter) ([]*models.Transaction, int64, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*models.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindRecentByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByUserInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CreateIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func expenseOn(day time.Time, category string, amount int64) *models.Transaction {
	return &models.Transaction{
		ID:       primitive.NewObjectID(),
		Kind:     models.KindExpense,
		Amount:   decimal.NewFromInt(amount),
		Category: category,
		Date:     day,
	}
}

func TestBudgetService_SaveValidatesAndRecalculates(t *testing.T) {
	budgetRepo := new(MockBudgetRepository)
	txRepo := new(MockTransactionRepository)
	svc := NewBudgetService(budgetRepo, txRepo)
	userID := primitive.NewObjectID()

	budgetRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Budget")).Return(nil)

	budget, err := svc.Save(context.Background(), userID, &SaveBudgetRequest{
		Month:       "2026-08",
		TotalBudget: decimal.NewFromInt(2000),
		Categories: []models.BudgetCategory{
			{Name: "food", Amount: decimal.NewFromInt(500)},
			{Name: "transport", Amount: decimal.NewFromInt(250)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "25", budget.Categories[0].Percentage.String())
	assert.Equal(t, "12.5", budget.Categories[1].Percentage.String())
	budgetRepo.AssertExpectations(t)
}

func TestBudgetService_SaveRejectsOverAllocation(t *testing.T) {
	budgetRepo := new(MockBudgetRepository)
	txRepo := new(MockTransactionRepository)
	svc := NewBudgetService(budgetRepo, txRepo)
	userID := primitive.NewObjectID()

	_, err := svc.Save(context.Background(), userID, &SaveBudgetRequest{
		Month:       "2026-08",
		TotalBudget: decimal.NewFromInt(100),
		Categories: []models.BudgetCategory{
			{Name: "food", Amount: decimal.NewFromInt(150)},
		},
	})

	var validationErr *ledger.ValidationError
	require.ErrorAs(t, err, &validationErr)
	budgetRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestBudgetService_GetReportsSpendingAndExceededCategories(t *testing.T) {
	budgetRepo := new(MockBudgetRepository)
	txRepo := new(MockTransactionRepository)
	svc := NewBudgetService(budgetRepo, txRepo)
	userID := primitive.NewObjectID()

	budgetRepo.On("GetByUserAndMonth", mock.Anything, userID, "2026-08").Return(&models.Budget{
		UserID:      userID,
		Month:       "2026-08",
		TotalBudget: decimal.NewFromInt(1000),
		Categories: []models.BudgetCategory{
			{Name: "food", Amount: decimal.NewFromInt(300)},
			{Name: "transport", Amount: decimal.NewFromInt(200)},
		},
	}, nil)

	day := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	txRepo.On("FindByUserInRange", mock.Anything, userID, mock.Anything, mock.Anything).Return([]*models.Transaction{
		expenseOn(day, "food", 250),
		expenseOn(day, "food", 120),
		expenseOn(day, "transport", 50),
		{
			ID:       primitive.NewObjectID(),
			Kind:     models.KindIncome,
			Amount:   decimal.NewFromInt(5000),
			Category: "salary",
			Date:     day,
		},
	}, nil)

	status, err := svc.Get(context.Background(), userID, "2026-08")
	require.NoError(t, err)

	assert.Equal(t, "370", status.Spent["food"].String())
	assert.Equal(t, "50", status.Spent["transport"].String())
	assert.Equal(t, "420", status.Total.String())
	assert.Equal(t, []string{"food"}, status.Exceeded)
}

func TestBudgetService_GetMissingBudgetIsNotFound(t *testing.T) {
	budgetRepo := new(MockBudgetRepository)
	txRepo := new(MockTransactionRepository)
	svc := NewBudgetService(budgetRepo, txRepo)
	userID := primitive.NewObjectID()

	budgetRepo.On("GetByUserAndMonth", mock.Anything, userID, "2026-01").Return(nil, nil)

	_, err := svc.Get(context.Background(), userID, "2026-01")

	var notFound *ledger.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "budget", notFound.Resource)
}

func TestBudgetService_GetStoreFailureIsUnavailable(t *testing.T) {
	budgetRepo := new(MockBudgetRepository)
	txRepo := new(MockTransactionRepository)
	svc := NewBudgetService(budgetRepo, txRepo)
	userID := primitive.NewObjectID()

	budgetRepo.On("GetByUserAndMonth", mock.Anything, userID, "2026-08").
		Return(nil, errors.New("connection reset"))

	_, err := svc.Get(context.Background(), userID, "2026-08")

	var unavailable *ledger.StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)
}
