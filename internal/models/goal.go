package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SavingsGoal represents a savings target a user is working toward.
type SavingsGoal struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name          string             `bson:"name" json:"name"`
	TargetAmount  decimal.Decimal    `bson:"target_amount" json:"target_amount"`
	CurrentAmount decimal.Decimal    `bson:"current_amount" json:"current_amount"`
	Deadline      time.Time          `bson:"deadline,omitempty" json:"deadline,omitempty"`
	IsActive      bool               `bson:"is_active" json:"is_active"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Validate validates the savings goal data.
func (g *SavingsGoal) Validate() error {
	if g.UserID.IsZero() {
		return fmt.Errorf("user ID is required")
	}

	if g.Name == "" {
		return fmt.Errorf("goal name is required")
	}

	if g.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("target amount must be greater than zero")
	}

	if g.CurrentAmount.LessThan(decimal.Zero) {
		return fmt.Errorf("current amount cannot be negative")
	}

	return nil
}

// Progress returns the completion percentage, capped at 100.
func (g *SavingsGoal) Progress() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
