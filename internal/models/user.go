package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// User represents a registered student account. WalletBalance is the stored
// running balance; it is written only by the ledger's increment step and the
// reconciler's overwrite, never read-modified-written by request handlers.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	StudentID    string             `bson:"student_id" json:"student_id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`

	PhoneNumber string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Department  string `bson:"department,omitempty" json:"department,omitempty"`
	Year        string `bson:"year,omitempty" json:"year,omitempty"`

	// Profile settings
	Currency   string `bson:"currency" json:"currency"`
	DateFormat string `bson:"date_format" json:"date_format"`
	Language   string `bson:"language" json:"language"`

	// Financial settings
	IncomeFrequency string `bson:"income_frequency" json:"income_frequency"`
	IncomeSources   string `bson:"income_sources,omitempty" json:"income_sources,omitempty"`
	Priorities      string `bson:"priorities" json:"priorities"`
	RiskTolerance   string `bson:"risk_tolerance" json:"risk_tolerance"`

	WalletBalance decimal.Decimal `bson:"wallet_balance" json:"wallet_balance"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewUser creates a user with default settings and a zero wallet balance.
func NewUser(studentID, fullName, email string) *User {
	now := time.Now()
	return &User{
		StudentID:       studentID,
		FullName:        fullName,
		Email:           email,
		Year:            "1st",
		Currency:        "USD",
		DateFormat:      "MM/DD/YYYY",
		Language:        "English",
		IncomeFrequency: "Monthly",
		Priorities:      "Saving",
		RiskTolerance:   "Moderate",
		WalletBalance:   decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SetPassword hashes and stores the given password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// ComparePassword checks a candidate password against the stored hash.
func (u *User) ComparePassword(candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// Validate validates the user data.
func (u *User) Validate() error {
	if u.StudentID == "" {
		return fmt.Errorf("student ID is required")
	}

	if u.Email == "" {
		return fmt.Errorf("email is required")
	}

	return nil
}
