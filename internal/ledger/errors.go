package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError rejects a request before any store mutation. Fully
// recoverable, no side effects.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NotFoundError reports a record that does not exist or is not owned by the
// calling user. Rejected before any mutation.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "transaction"
	}
	return fmt.Sprintf("%s not found: %s", resource, e.ID)
}

// StoreUnavailableError wraps a transient store failure that happened before
// any write took effect. Safe for the caller to retry.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// PartialApplicationError reports that the transaction record mutation
// succeeded but the balance increment failed or its outcome is unknown. The
// record is the source of truth; the stored balance has drifted until a
// reconciliation pass corrects it. Never retried blindly.
type PartialApplicationError struct {
	TransactionID string
	Delta         decimal.Decimal
	Err           error
}

func (e *PartialApplicationError) Error() string {
	return fmt.Sprintf("transaction %s persisted but balance increment of %s failed: %v",
		e.TransactionID, e.Delta.String(), e.Err)
}

func (e *PartialApplicationError) Unwrap() error {
	return e.Err
}
