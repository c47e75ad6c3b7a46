package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/models"
)

// TransactionStore is the document collection holding transaction records.
// Lookups are user-scoped; a record owned by another user behaves as missing.
type TransactionStore interface {
	Insert(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error)
	FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error)
}

// BalanceStore holds the per-user wallet balance. IncrementBalance must be
// atomic at the storage layer (a single-document field increment), so that
// concurrent deltas against the same user compound correctly without the
// caller reading and rewriting the value. SetBalance is reserved for the
// reconciler.
type BalanceStore interface {
	IncrementBalance(ctx context.Context, userID primitive.ObjectID, delta decimal.Decimal) error
	SetBalance(ctx context.Context, userID primitive.ObjectID, value decimal.Decimal) error
	GetBalance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, error)
}

// Ledger keeps a user's wallet balance synchronized with their transaction
// set. Every create, update, and delete pairs the record mutation with a
// balance increment by the operation's net signed delta.
type Ledger interface {
	Create(ctx context.Context, userID primitive.ObjectID, input *CreateInput) (*models.Transaction, error)
	Update(ctx context.Context, userID, txID primitive.ObjectID, changes *UpdateInput) (*models.Transaction, error)
	Delete(ctx context.Context, userID, txID primitive.ObjectID) error
}

// CreateInput carries the fields for a new transaction.
type CreateInput struct {
	Kind          models.TransactionKind
	Amount        decimal.Decimal
	Category      string
	Description   string
	PaymentMethod string
	Mood          string
	Date          time.Time
}

// UpdateInput carries an optional mutation per field; nil means keep the
// stored value. Only Kind and Amount affect the balance.
type UpdateInput struct {
	Kind          *models.TransactionKind
	Amount        *decimal.Decimal
	Category      *string
	Description   *string
	PaymentMethod *string
	Mood          *string
	Date          *time.Time
}

type txLedger struct {
	transactions TransactionStore
	balances     BalanceStore
}

// New creates a Ledger over the given stores.
func New(transactions TransactionStore, balances BalanceStore) Ledger {
	return &txLedger{
		transactions: transactions,
		balances:     balances,
	}
}

func (l *txLedger) Create(ctx context.Context, userID primitive.ObjectID, input *CreateInput) (*models.Transaction, error) {
	if !input.Kind.IsValid() {
		return nil, &ValidationError{Reason: "kind must be either income or expense"}
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Reason: "amount must be greater than zero"}
	}

	tx := &models.Transaction{
		UserID:        userID,
		Kind:          input.Kind,
		Amount:        input.Amount,
		Category:      input.Category,
		Description:   input.Description,
		PaymentMethod: input.PaymentMethod,
		Mood:          input.Mood,
		Date:          input.Date,
	}
	tx.ApplyDefaults()

	if err := tx.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	// The record write goes first: if it fails nothing has changed, and if
	// the increment after it fails the record remains the source of truth
	// for reconciliation.
	if err := l.transactions.Insert(ctx, tx); err != nil {
		return nil, &StoreUnavailableError{Op: "insert transaction", Err: err}
	}

	delta := tx.SignedEffect()
	if err := l.balances.IncrementBalance(ctx, userID, delta); err != nil {
		return nil, &PartialApplicationError{
			TransactionID: tx.ID.Hex(),
			Delta:         delta,
			Err:           err,
		}
	}

	return tx, nil
}

func (l *txLedger) Update(ctx context.Context, userID, txID primitive.ObjectID, changes *UpdateInput) (*models.Transaction, error) {
	if changes.Amount != nil && changes.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Reason: "amount must be greater than zero"}
	}
	if changes.Kind != nil && !changes.Kind.IsValid() {
		return nil, &ValidationError{Reason: "kind must be either income or expense"}
	}

	tx, err := l.transactions.FindByID(ctx, userID, txID)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "find transaction", Err: err}
	}
	if tx == nil {
		return nil, &NotFoundError{ID: txID.Hex()}
	}

	// Reverse the old effect, then apply the resolved new one. Unsupplied
	// financial fields fall back to the stored values, so a purely
	// descriptive change nets to zero.
	reverse := tx.SignedEffect().Neg()

	if changes.Kind != nil {
		tx.Kind = *changes.Kind
	}
	if changes.Amount != nil {
		tx.Amount = *changes.Amount
	}
	if changes.Category != nil {
		tx.Category = *changes.Category
	}
	if changes.Description != nil {
		tx.Description = *changes.Description
	}
	if changes.PaymentMethod != nil {
		tx.PaymentMethod = *changes.PaymentMethod
	}
	if changes.Mood != nil {
		tx.Mood = *changes.Mood
	}
	if changes.Date != nil {
		tx.Date = *changes.Date
	}

	if err := tx.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	delta := reverse.Add(tx.SignedEffect())

	if err := l.transactions.Update(ctx, tx); err != nil {
		return nil, &StoreUnavailableError{Op: "update transaction", Err: err}
	}

	if !delta.IsZero() {
		if err := l.balances.IncrementBalance(ctx, userID, delta); err != nil {
			return nil, &PartialApplicationError{
				TransactionID: tx.ID.Hex(),
				Delta:         delta,
				Err:           err,
			}
		}
	}

	return tx, nil
}

func (l *txLedger) Delete(ctx context.Context, userID, txID primitive.ObjectID) error {
	removed, err := l.transactions.Delete(ctx, userID, txID)
	if err != nil {
		return &StoreUnavailableError{Op: "delete transaction", Err: err}
	}
	if removed == nil {
		return &NotFoundError{ID: txID.Hex()}
	}

	delta := removed.SignedEffect().Neg()
	if err := l.balances.IncrementBalance(ctx, userID, delta); err != nil {
		return &PartialApplicationError{
			TransactionID: txID.Hex(),
			Delta:         delta,
			Err:           err,
		}
	}

	return nil
}
