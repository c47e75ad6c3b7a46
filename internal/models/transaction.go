package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionKind discriminates the direction of a transaction. Amounts are
// always stored positive; the kind carries the sign.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// IsValid reports whether the kind is one of the two supported values.
func (k TransactionKind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// Categories accepted for transactions. Shared between expense and income
// entries to keep the transaction API consistent with the dashboard.
var Categories = []string{
	// Expense categories
	"food",
	"transport",
	"shopping",
	"entertainment",
	"education",
	"healthcare",
	"housing",

	// Income categories
	"pocket_money",
	"salary",
	"freelance",
	"gift",
	"investment",

	// Shared
	"other",
}

// PaymentMethods accepted for transactions.
var PaymentMethods = []string{"cash", "card", "upi", "online"}

// Moods accepted for transactions.
var Moods = []string{"happy", "stressed", "bored", "sad", "calm", "neutral"}

// Transaction represents a single income or expense entry owned by a user.
type Transaction struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Kind          TransactionKind    `bson:"kind" json:"kind"`
	Amount        decimal.Decimal    `bson:"amount" json:"amount"`
	Category      string             `bson:"category" json:"category"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"`
	Mood          string             `bson:"mood" json:"mood"`
	Date          time.Time          `bson:"date" json:"date"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SignedEffect is the directional contribution of a transaction to its owner's
// wallet balance: positive for income, negative for expense. This is the single
// sign convention for the whole service; no other code may reimplement it.
func SignedEffect(kind TransactionKind, amount decimal.Decimal) decimal.Decimal {
	if kind == KindIncome {
		return amount
	}
	return amount.Neg()
}

// SignedEffect returns the transaction's own signed contribution.
func (t *Transaction) SignedEffect() decimal.Decimal {
	return SignedEffect(t.Kind, t.Amount)
}

// Validate validates the transaction data.
func (t *Transaction) Validate() error {
	if t.UserID.IsZero() {
		return fmt.Errorf("user ID is required")
	}

	if !t.Kind.IsValid() {
		return fmt.Errorf("kind must be either income or expense, got %q", t.Kind)
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("amount must be greater than zero")
	}

	if !isOneOf(t.Category, Categories) {
		return fmt.Errorf("invalid category: %s", t.Category)
	}

	if t.PaymentMethod != "" && !isOneOf(t.PaymentMethod, PaymentMethods) {
		return fmt.Errorf("invalid payment method: %s", t.PaymentMethod)
	}

	if t.Mood != "" && !isOneOf(t.Mood, Moods) {
		return fmt.Errorf("invalid mood: %s", t.Mood)
	}

	return nil
}

// ApplyDefaults fills the descriptive fields the caller left empty.
func (t *Transaction) ApplyDefaults() {
	if t.PaymentMethod == "" {
		t.PaymentMethod = "cash"
	}
	if t.Mood == "" {
		t.Mood = "neutral"
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
}

func isOneOf(value string, allowed []string) bool {
	for _, v := range allowed {
		if value == v {
			return true
		}
	}
	return false
}
