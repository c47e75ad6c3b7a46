package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/models"
)

func seedTransactions(t *testing.T, l Ledger, userID primitive.ObjectID) {
	t.Helper()
	ctx := context.Background()

	_, err := l.Create(ctx, userID, &CreateInput{
		Kind: models.KindIncome, Amount: decimal.NewFromInt(1000), Category: "salary",
	})
	require.NoError(t, err)

	_, err = l.Create(ctx, userID, &CreateInput{
		Kind: models.KindExpense, Amount: decimal.NewFromInt(150), Category: "food",
	})
	require.NoError(t, err)
}

func TestReconciler_NoDriftLeavesBalanceAlone(t *testing.T) {
	l, txs, balances := newTestLedger()
	r := NewReconciler(txs, balances, balances)
	userID := primitive.NewObjectID()

	seedTransactions(t, l, userID)

	report, err := r.ReconcileUser(context.Background(), userID)
	require.NoError(t, err)

	assert.False(t, report.Adjusted)
	assert.True(t, report.Drift.IsZero())
	assert.Equal(t, 2, report.TransactionCount)
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(850)))
}

func TestReconciler_CorrectsCorruptedBalance(t *testing.T) {
	l, txs, balances := newTestLedger()
	r := NewReconciler(txs, balances, balances)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	seedTransactions(t, l, userID)

	// Corrupt the stored balance behind the ledger's back.
	require.NoError(t, balances.SetBalance(ctx, userID, decimal.NewFromInt(900)))

	report, err := r.ReconcileUser(ctx, userID)
	require.NoError(t, err)

	assert.True(t, report.Adjusted)
	assert.True(t, report.Old.Equal(decimal.NewFromInt(900)))
	assert.True(t, report.New.Equal(decimal.NewFromInt(850)))
	assert.True(t, report.Drift.Equal(decimal.NewFromInt(-50)))
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(850)))
}

func TestReconciler_IsIdempotent(t *testing.T) {
	l, txs, balances := newTestLedger()
	r := NewReconciler(txs, balances, balances)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	seedTransactions(t, l, userID)
	require.NoError(t, balances.SetBalance(ctx, userID, decimal.NewFromInt(123)))

	first, err := r.ReconcileUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.Adjusted)

	second, err := r.ReconcileUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, second.Adjusted)
	assert.True(t, second.Drift.IsZero())
	assert.True(t, second.Old.Equal(first.New))
}

func TestReconciler_EmptyHistoryMeansZero(t *testing.T) {
	_, txs, balances := newTestLedger()
	r := NewReconciler(txs, balances, balances)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, balances.SetBalance(ctx, userID, decimal.NewFromInt(42)))

	report, err := r.ReconcileUser(ctx, userID)
	require.NoError(t, err)

	assert.True(t, report.Adjusted)
	assert.Equal(t, 0, report.TransactionCount)
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.Zero))
}

func TestReconciler_ComputeDriftIsReadOnly(t *testing.T) {
	l, txs, balances := newTestLedger()
	r := NewReconciler(txs, balances, balances)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	seedTransactions(t, l, userID)
	require.NoError(t, balances.SetBalance(ctx, userID, decimal.NewFromInt(500)))

	report, err := r.ComputeDrift(ctx, userID)
	require.NoError(t, err)

	assert.True(t, report.Drift.Equal(decimal.NewFromInt(350)))
	assert.False(t, report.Adjusted)
	// The stored balance must not have been touched.
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(500)))
}

func TestReconciler_ReconcileAll(t *testing.T) {
	l, txs, balances := newTestLedger()
	r := NewReconciler(txs, balances, balances)
	ctx := context.Background()

	healthy := primitive.NewObjectID()
	drifted := primitive.NewObjectID()

	seedTransactions(t, l, healthy)
	seedTransactions(t, l, drifted)
	require.NoError(t, balances.SetBalance(ctx, drifted, decimal.NewFromInt(9999)))

	batch, err := r.ReconcileAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.TotalUsers)
	assert.Equal(t, 1, batch.AdjustedUsers)
	assert.Equal(t, 0, batch.Errors)
	assert.Len(t, batch.Reports, 2)
	assert.True(t, mustBalance(t, balances, drifted).Equal(decimal.NewFromInt(850)))
	assert.True(t, mustBalance(t, balances, healthy).Equal(decimal.NewFromInt(850)))
}

func TestReconciler_RepairsPartialApplication(t *testing.T) {
	// A crash between record write and balance increment leaves the record
	// persisted and the balance stale. A reconciliation pass must converge
	// the stored balance to the fold over records.
	txs := newMemTransactionStore()
	balances := newMemBalanceStore()
	r := NewReconciler(txs, balances, balances)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Simulate the half-applied create: record inserted, increment never ran.
	orphan := &models.Transaction{
		UserID:   userID,
		Kind:     models.KindExpense,
		Amount:   decimal.NewFromInt(60),
		Category: "transport",
	}
	orphan.ApplyDefaults()
	require.NoError(t, txs.Insert(ctx, orphan))
	require.NoError(t, balances.SetBalance(ctx, userID, decimal.Zero))

	report, err := r.ReconcileUser(ctx, userID)
	require.NoError(t, err)

	assert.True(t, report.Adjusted)
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(-60)))
}
