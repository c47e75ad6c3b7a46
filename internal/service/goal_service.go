package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/ledger"
	"walletwise-api/internal/models"
	"walletwise-api/internal/repository"
)

// GoalService manages savings goals and contributions toward them.
type GoalService interface {
	Create(ctx context.Context, userID primitive.ObjectID, req *CreateGoalRequest) (*models.SavingsGoal, error)
	List(ctx context.Context, userID primitive.ObjectID) ([]*GoalWithProgress, error)
	Contribute(ctx context.Context, userID, goalID primitive.ObjectID, amount decimal.Decimal) (*models.SavingsGoal, error)
	Delete(ctx context.Context, userID, goalID primitive.ObjectID) error
}

type CreateGoalRequest struct {
	Name         string          `json:"name" binding:"required"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
	Deadline     time.Time       `json:"deadline"`
}

type GoalWithProgress struct {
	*models.SavingsGoal
	Progress decimal.Decimal `json:"progress"`
}

type goalService struct {
	goalRepo repository.GoalRepository
}

func NewGoalService(goalRepo repository.GoalRepository) GoalService {
	return &goalService{goalRepo: goalRepo}
}

func (s *goalService) Create(ctx context.Context, userID primitive.ObjectID, req *CreateGoalRequest) (*models.SavingsGoal, error) {
	goal := &models.SavingsGoal{
		UserID:        userID,
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: decimal.Zero,
		Deadline:      req.Deadline,
	}

	if err := goal.Validate(); err != nil {
		return nil, &ledger.ValidationError{Reason: err.Error()}
	}

	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "create goal", Err: err}
	}

	return goal, nil
}

func (s *goalService) List(ctx context.Context, userID primitive.ObjectID) ([]*GoalWithProgress, error) {
	goals, err := s.goalRepo.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "list goals", Err: err}
	}

	out := make([]*GoalWithProgress, 0, len(goals))
	for _, goal := range goals {
		out = append(out, &GoalWithProgress{
			SavingsGoal: goal,
			Progress:    goal.Progress(),
		})
	}
	return out, nil
}

func (s *goalService) Contribute(ctx context.Context, userID, goalID primitive.ObjectID, amount decimal.Decimal) (*models.SavingsGoal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &ledger.ValidationError{Reason: "contribution must be greater than zero"}
	}

	goal, err := s.goalRepo.GetByID(ctx, userID, goalID)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "get goal", Err: err}
	}
	if goal == nil {
		return nil, &ledger.NotFoundError{Resource: "savings goal", ID: goalID.Hex()}
	}

	if err := s.goalRepo.AddContribution(ctx, userID, goalID, amount); err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "add contribution", Err: err}
	}

	goal.CurrentAmount = goal.CurrentAmount.Add(amount)
	return goal, nil
}

func (s *goalService) Delete(ctx context.Context, userID, goalID primitive.ObjectID) error {
	goal, err := s.goalRepo.GetByID(ctx, userID, goalID)
	if err != nil {
		return &ledger.StoreUnavailableError{Op: "get goal", Err: err}
	}
	if goal == nil {
		return &ledger.NotFoundError{Resource: "savings goal", ID: goalID.Hex()}
	}

	if err := s.goalRepo.Delete(ctx, userID, goalID); err != nil {
		return &ledger.StoreUnavailableError{Op: "delete goal", Err: err}
	}
	return nil
}
