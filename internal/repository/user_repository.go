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

// UserRepository persists user accounts and their stored wallet balance.
//
// IncrementBalance is the only way request-path code may move the balance;
// it maps to a single-field $inc so concurrent deltas compound server-side
// without a read-modify-write window. SetBalance overwrites the stored value
// and is reserved for the reconciler.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByStudentID(ctx context.Context, studentID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	IncrementBalance(ctx context.Context, userID primitive.ObjectID, delta decimal.Decimal) error
	SetBalance(ctx context.Context, userID primitive.ObjectID, value decimal.Decimal) error
	GetBalance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, error)
	ListUserIDs(ctx context.Context) ([]primitive.ObjectID, error)
	CreateIndexes(ctx context.Context) error
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"student_id": studentID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by student ID: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	// The stored balance is excluded so a profile save can never clobber a
	// concurrent increment.
	update := bson.M{
		"$set": bson.M{
			"full_name":        user.FullName,
			"phone_number":     user.PhoneNumber,
			"department":       user.Department,
			"year":             user.Year,
			"currency":         user.Currency,
			"date_format":      user.DateFormat,
			"language":         user.Language,
			"income_frequency": user.IncomeFrequency,
			"income_sources":   user.IncomeSources,
			"priorities":       user.Priorities,
			"risk_tolerance":   user.RiskTolerance,
			"updated_at":       user.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found for update")
	}

	return nil
}

func (r *userRepository) IncrementBalance(ctx context.Context, userID primitive.ObjectID, delta decimal.Decimal) error {
	amount, err := primitive.ParseDecimal128(delta.String())
	if err != nil {
		return fmt.Errorf("failed to encode balance delta: %w", err)
	}

	filter := bson.M{"_id": userID}
	update := bson.M{
		"$inc": bson.M{"wallet_balance": amount},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment wallet balance: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found for balance increment")
	}

	return nil
}

func (r *userRepository) SetBalance(ctx context.Context, userID primitive.ObjectID, value decimal.Decimal) error {
	amount, err := primitive.ParseDecimal128(value.String())
	if err != nil {
		return fmt.Errorf("failed to encode balance value: %w", err)
	}

	filter := bson.M{"_id": userID}
	update := bson.M{
		"$set": bson.M{
			"wallet_balance": amount,
			"updated_at":     time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set wallet balance: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found for balance overwrite")
	}

	return nil
}

func (r *userRepository) GetBalance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, error) {
	opts := options.FindOne().SetProjection(bson.M{"wallet_balance": 1})

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return decimal.Zero, fmt.Errorf("user not found")
		}
		return decimal.Zero, fmt.Errorf("failed to get wallet balance: %w", err)
	}

	return user.WalletBalance, nil
}

func (r *userRepository) ListUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}

	return ids, cursor.Err()
}

// CreateIndexes creates the indexes for the user collection.
func (r *userRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	return nil
}
