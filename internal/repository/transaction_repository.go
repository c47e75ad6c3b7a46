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

// TransactionRepository persists transaction records. Lookups are always
// scoped to the owning user; a record owned by someone else behaves as
// missing and is reported as (nil, nil).
type TransactionRepository interface {
	Insert(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error)
	FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error)
	FindByUserFiltered(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter) ([]*models.Transaction, int64, error)
	FindRecentByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error)
	FindByUserInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Transaction, error)
	CreateIndexes(ctx context.Context) error
}

// TransactionFilter narrows a listing query. Zero values mean "no filter".
type TransactionFilter struct {
	Kind     string
	Category string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}

type transactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) TransactionRepository {
	return &transactionRepository{
		collection: db.Collection("transactions"),
	}
}

func (r *transactionRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	tx.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&tx)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	tx.UpdatedAt = time.Now()

	filter := bson.M{"_id": tx.ID, "user_id": tx.UserID}
	update := bson.M{"$set": tx}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("transaction not found for update")
	}

	return nil
}

// Delete removes the record and returns it, so the caller knows the exact
// effect to reverse even when another writer raced the deletion.
func (r *transactionRepository) Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&tx)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	for cursor.Next(ctx) {
		var tx models.Transaction
		if err := cursor.Decode(&tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, cursor.Err()
}

func (r *transactionRepository) FindByUserFiltered(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter) ([]*models.Transaction, int64, error) {
	query := bson.M{"user_id": userID}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	dateRange := bson.M{}
	if !filter.From.IsZero() {
		dateRange["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		dateRange["$lte"] = filter.To
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	for cursor.Next(ctx) {
		var tx models.Transaction
		if err := cursor.Decode(&tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, total, cursor.Err()
}

func (r *transactionRepository) FindRecentByUser(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error) {
	if limit < 1 {
		limit = 5
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	for cursor.Next(ctx) {
		var tx models.Transaction
		if err := cursor.Decode(&tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, cursor.Err()
}

// FindByUserInRange returns every transaction dated within [from, to],
// unpaginated. Used by the dashboard aggregates.
func (r *transactionRepository) FindByUserInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Transaction, error) {
	query := bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": from, "$lte": to},
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions in range: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	for cursor.Next(ctx) {
		var tx models.Transaction
		if err := cursor.Decode(&tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, cursor.Err()
}

// CreateIndexes creates the indexes the transaction queries rely on.
func (r *transactionRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "date", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "category", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "kind", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create transaction indexes: %w", err)
	}

	return nil
}
