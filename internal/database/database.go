package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"walletwise-api/internal/config"
	"walletwise-api/internal/repository"
)

type Database struct {
	MongoDB      *mongo.Database
	Repositories *Repositories
}

type Repositories struct {
	User        repository.UserRepository
	Transaction repository.TransactionRepository
	Budget      repository.BudgetRepository
	Goal        repository.GoalRepository
}

func Initialize(ctx context.Context, cfg *config.Config) (*Database, error) {
	mongoDB, err := initializeMongoDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	repos := &Repositories{
		User:        repository.NewUserRepository(mongoDB),
		Transaction: repository.NewTransactionRepository(mongoDB),
		Budget:      repository.NewBudgetRepository(mongoDB),
		Goal:        repository.NewGoalRepository(mongoDB),
	}

	if err := createIndexes(ctx, repos); err != nil {
		return nil, fmt.Errorf("failed to create database indexes: %w", err)
	}

	return &Database{
		MongoDB:      mongoDB,
		Repositories: repos,
	}, nil
}

func initializeMongoDB(ctx context.Context, cfg config.DatabaseConfig) (*mongo.Database, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize)).
		SetMinPoolSize(uint64(cfg.MinPoolSize)).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.SelectionTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(cfg.Database), nil
}

func createIndexes(ctx context.Context, repos *Repositories) error {
	if err := repos.User.CreateIndexes(ctx); err != nil {
		return err
	}
	if err := repos.Transaction.CreateIndexes(ctx); err != nil {
		return err
	}
	if err := repos.Budget.CreateIndexes(ctx); err != nil {
		return err
	}
	return repos.Goal.CreateIndexes(ctx)
}

func (db *Database) Close(ctx context.Context) error {
	if db.MongoDB == nil {
		return nil
	}
	if err := db.MongoDB.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close MongoDB: %w", err)
	}
	return nil
}

// HealthCheck pings the primary.
func (db *Database) HealthCheck(ctx context.Context) error {
	if err := db.MongoDB.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("MongoDB health check failed: %w", err)
	}
	return nil
}
