package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserLister enumerates user IDs for the all-users reconciliation mode.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// Reconciler recomputes wallet balances top-down from the transaction set and
// overwrites stored balances that drifted. This is the only writer allowed to
// use SetBalance; everything else goes through increments.
type Reconciler interface {
	ReconcileUser(ctx context.Context, userID primitive.ObjectID) (*Report, error)
	ReconcileAll(ctx context.Context) (*BatchReport, error)
	ComputeDrift(ctx context.Context, userID primitive.ObjectID) (*Report, error)
}

// Report describes one user's reconciliation outcome. Old is the balance that
// was stored going in, New the recomputed total; Adjusted is true when the two
// differed and the stored value was overwritten.
type Report struct {
	UserID           primitive.ObjectID `json:"user_id"`
	Old              decimal.Decimal    `json:"old"`
	New              decimal.Decimal    `json:"new"`
	Drift            decimal.Decimal    `json:"drift"`
	TransactionCount int                `json:"transaction_count"`
	Adjusted         bool               `json:"adjusted"`
	ReconciledAt     time.Time          `json:"reconciled_at"`
}

// BatchReport aggregates an all-users reconciliation pass.
type BatchReport struct {
	TotalUsers    int           `json:"total_users"`
	AdjustedUsers int           `json:"adjusted_users"`
	Errors        int           `json:"errors"`
	Reports       []*Report     `json:"reports"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Elapsed       time.Duration `json:"elapsed"`
}

type reconciler struct {
	transactions TransactionStore
	balances     BalanceStore
	users        UserLister
}

// NewReconciler creates a Reconciler over the given stores.
func NewReconciler(transactions TransactionStore, balances BalanceStore, users UserLister) Reconciler {
	return &reconciler{
		transactions: transactions,
		balances:     balances,
		users:        users,
	}
}

// computeBalance folds the signed effect of every transaction. The same
// formula the incremental path uses, so a reconciliation pass cannot introduce
// a second sign convention.
func (r *reconciler) computeBalance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, int, error) {
	transactions, err := r.transactions.FindAllByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, 0, &StoreUnavailableError{Op: "list transactions", Err: err}
	}

	total := decimal.Zero
	for _, tx := range transactions {
		total = total.Add(tx.SignedEffect())
	}

	return total, len(transactions), nil
}

func (r *reconciler) ComputeDrift(ctx context.Context, userID primitive.ObjectID) (*Report, error) {
	computed, count, err := r.computeBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	stored, err := r.balances.GetBalance(ctx, userID)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "get balance", Err: err}
	}

	return &Report{
		UserID:           userID,
		Old:              stored,
		New:              computed,
		Drift:            computed.Sub(stored),
		TransactionCount: count,
		ReconciledAt:     time.Now(),
	}, nil
}

func (r *reconciler) ReconcileUser(ctx context.Context, userID primitive.ObjectID) (*Report, error) {
	report, err := r.ComputeDrift(ctx, userID)
	if err != nil {
		return nil, err
	}

	if report.Drift.IsZero() {
		return report, nil
	}

	if err := r.balances.SetBalance(ctx, userID, report.New); err != nil {
		return nil, &StoreUnavailableError{Op: "set balance", Err: err}
	}
	report.Adjusted = true

	logrus.WithFields(logrus.Fields{
		"user_id":      userID.Hex(),
		"old_balance":  report.Old.String(),
		"new_balance":  report.New.String(),
		"drift":        report.Drift.String(),
		"transactions": report.TransactionCount,
	}).Warn("Wallet balance drift corrected")

	return report, nil
}

func (r *reconciler) ReconcileAll(ctx context.Context) (*BatchReport, error) {
	start := time.Now()

	userIDs, err := r.users.ListUserIDs(ctx)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list users", Err: err}
	}

	batch := &BatchReport{
		TotalUsers: len(userIDs),
		Reports:    make([]*Report, 0, len(userIDs)),
		StartedAt:  start,
	}

	for _, userID := range userIDs {
		report, err := r.ReconcileUser(ctx, userID)
		if err != nil {
			batch.Errors++
			logrus.WithError(err).WithField("user_id", userID.Hex()).
				Error("Failed to reconcile user balance")
			continue
		}

		batch.Reports = append(batch.Reports, report)
		if report.Adjusted {
			batch.AdjustedUsers++
		}
	}

	batch.FinishedAt = time.Now()
	batch.Elapsed = batch.FinishedAt.Sub(batch.StartedAt)

	return batch, nil
}
