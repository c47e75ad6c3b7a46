package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"walletwise-api/internal/models"
)

// GoalRepository persists savings goals.
type GoalRepository interface {
	Create(ctx context.Context, goal *models.SavingsGoal) error
	GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.SavingsGoal, error)
	GetAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.SavingsGoal, error)
	Update(ctx context.Context, goal *models.SavingsGoal) error
	AddContribution(ctx context.Context, userID, id primitive.ObjectID, amount decimal.Decimal) error
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	CreateIndexes(ctx context.Context) error
}

type goalRepository struct {
	collection *mongo.Collection
}

func NewGoalRepository(db *mongo.Database) GoalRepository {
	return &goalRepository{
		collection: db.Collection("savings_goals"),
	}
}

func (r *goalRepository) Create(ctx context.Context, goal *models.SavingsGoal) error {
	goal.CreatedAt = time.Now()
	goal.UpdatedAt = time.Now()
	goal.IsActive = true

	result, err := r.collection.InsertOne(ctx, goal)
	if err != nil {
		return fmt.Errorf("failed to create savings goal: %w", err)
	}

	goal.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *goalRepository) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.SavingsGoal, error) {
	var goal models.SavingsGoal
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&goal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get savings goal: %w", err)
	}
	return &goal, nil
}

func (r *goalRepository) GetAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.SavingsGoal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings goals: %w", err)
	}
	defer cursor.Close(ctx)

	var goals []*models.SavingsGoal
	for cursor.Next(ctx) {
		var goal models.SavingsGoal
		if err := cursor.Decode(&goal); err != nil {
			continue
		}
		goals = append(goals, &goal)
	}

	return goals, cursor.Err()
}

func (r *goalRepository) Update(ctx context.Context, goal *models.SavingsGoal) error {
	goal.UpdatedAt = time.Now()

	filter := bson.M{"_id": goal.ID, "user_id": goal.UserID}
	update := bson.M{
		"$set": bson.M{
			"name":           goal.Name,
			"target_amount":  goal.TargetAmount,
			"current_amount": goal.CurrentAmount,
			"deadline":       goal.Deadline,
			"is_active":      goal.IsActive,
			"updated_at":     goal.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update savings goal: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("savings goal not found for update")
	}

	return nil
}

// AddContribution bumps the saved amount with a single-field $inc, same
// discipline as the wallet balance.
func (r *goalRepository) AddContribution(ctx context.Context, userID, id primitive.ObjectID, amount decimal.Decimal) error {
	encoded, err := primitive.ParseDecimal128(amount.String())
	if err != nil {
		return fmt.Errorf("failed to encode contribution amount: %w", err)
	}

	filter := bson.M{"_id": id, "user_id": userID}
	update := bson.M{
		"$inc": bson.M{"current_amount": encoded},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add goal contribution: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("savings goal not found for contribution")
	}

	return nil
}

func (r *goalRepository) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete savings goal: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("savings goal not found for deletion")
	}

	return nil
}

func (r *goalRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create savings goal indexes: %w", err)
	}

	return nil
}
