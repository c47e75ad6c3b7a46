package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Budget represents a user's spending plan for one month, split across
// categories. Month is formatted as "2006-01"; one document exists per user
// and month.
type Budget struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Month       string             `bson:"month" json:"month"`
	TotalBudget decimal.Decimal    `bson:"total_budget" json:"total_budget"`
	Categories  []BudgetCategory   `bson:"categories" json:"categories"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MonthBounds returns the [start, end] instants of a "2006-01" month string.
func MonthBounds(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, want YYYY-MM: %s", month)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// BudgetCategory is one slice of the monthly budget.
type BudgetCategory struct {
	Name         string          `bson:"name" json:"name"`
	CategoryType string          `bson:"category_type,omitempty" json:"category_type,omitempty"`
	Amount       decimal.Decimal `bson:"amount" json:"amount"`
	Percentage   decimal.Decimal `bson:"percentage" json:"percentage"`
}

// Validate validates the budget, including that category amounts do not exceed
// the total.
func (b *Budget) Validate() error {
	if b.UserID.IsZero() {
		return fmt.Errorf("user ID is required")
	}

	if _, _, err := MonthBounds(b.Month); err != nil {
		return err
	}

	if b.TotalBudget.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("total budget must be greater than zero")
	}

	allocated := decimal.Zero
	for _, c := range b.Categories {
		if c.Name == "" {
			return fmt.Errorf("category name is required")
		}
		if c.Amount.LessThan(decimal.Zero) {
			return fmt.Errorf("category amount cannot be negative")
		}
		if c.CategoryType != "" && !isOneOf(c.CategoryType, Categories) {
			return fmt.Errorf("invalid category type: %s", c.CategoryType)
		}
		allocated = allocated.Add(c.Amount)
	}

	if allocated.GreaterThan(b.TotalBudget) {
		return fmt.Errorf("allocated amount %s exceeds total budget %s",
			allocated.String(), b.TotalBudget.String())
	}

	return nil
}

// RecalculatePercentages derives each category's share from its amount.
func (b *Budget) RecalculatePercentages() {
	if b.TotalBudget.IsZero() {
		return
	}
	hundred := decimal.NewFromInt(100)
	for i := range b.Categories {
		b.Categories[i].Percentage = b.Categories[i].Amount.
			Div(b.TotalBudget).Mul(hundred).Round(2)
	}
}
