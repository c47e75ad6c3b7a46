package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"walletwise-api/internal/models"
)

// BudgetRepository persists monthly budgets, one document per user and month.
type BudgetRepository interface {
	Upsert(ctx context.Context, budget *models.Budget) error
	GetByUserAndMonth(ctx context.Context, userID primitive.ObjectID, month string) (*models.Budget, error)
	GetLatestByUser(ctx context.Context, userID primitive.ObjectID) (*models.Budget, error)
	Delete(ctx context.Context, userID primitive.ObjectID, month string) error
	CreateIndexes(ctx context.Context) error
}

type budgetRepository struct {
	collection *mongo.Collection
}

func NewBudgetRepository(db *mongo.Database) BudgetRepository {
	return &budgetRepository{
		collection: db.Collection("budgets"),
	}
}

func (r *budgetRepository) Upsert(ctx context.Context, budget *models.Budget) error {
	budget.UpdatedAt = time.Now()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = budget.UpdatedAt
	}

	filter := bson.M{"user_id": budget.UserID, "month": budget.Month}
	update := bson.M{
		"$set": bson.M{
			"total_budget": budget.TotalBudget,
			"categories":   budget.Categories,
			"updated_at":   budget.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"user_id":    budget.UserID,
			"month":      budget.Month,
			"created_at": budget.CreatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}

	if result.UpsertedID != nil {
		budget.ID = result.UpsertedID.(primitive.ObjectID)
	}

	return nil
}

func (r *budgetRepository) GetByUserAndMonth(ctx context.Context, userID primitive.ObjectID, month string) (*models.Budget, error) {
	var budget models.Budget
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "month": month}).Decode(&budget)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &budget, nil
}

func (r *budgetRepository) GetLatestByUser(ctx context.Context, userID primitive.ObjectID) (*models.Budget, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "month", Value: -1}})

	var budget models.Budget
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&budget)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest budget: %w", err)
	}
	return &budget, nil
}

func (r *budgetRepository) Delete(ctx context.Context, userID primitive.ObjectID, month string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID, "month": month})
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("budget not found for deletion")
	}

	return nil
}

func (r *budgetRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "month", Value: -1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create budget indexes: %w", err)
	}

	return nil
}
