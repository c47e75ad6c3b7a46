package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/models"
)

// In-memory stores backing the scenario tests. The balance store applies
// increments under a single lock, mirroring the atomicity contract the real
// store provides via a single-document field increment.

type memTransactionStore struct {
	mu  sync.Mutex
	txs map[primitive.ObjectID]*models.Transaction
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{txs: make(map[primitive.ObjectID]*models.Transaction)}
}

func (s *memTransactionStore) Insert(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = primitive.NewObjectID()
	clone := *tx
	s.txs[tx.ID] = &clone
	return nil
}

func (s *memTransactionStore) FindByID(_ context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return nil, nil
	}
	clone := *tx
	return &clone, nil
}

func (s *memTransactionStore) Update(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *tx
	s.txs[tx.ID] = &clone
	return nil
}

func (s *memTransactionStore) Delete(_ context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return nil, nil
	}
	delete(s.txs, id)
	return tx, nil
}

func (s *memTransactionStore) FindAllByUser(_ context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out, nil
}

type memBalanceStore struct {
	mu         sync.Mutex
	balances   map[primitive.ObjectID]decimal.Decimal
	increments int
}

func newMemBalanceStore() *memBalanceStore {
	return &memBalanceStore{balances: make(map[primitive.ObjectID]decimal.Decimal)}
}

func (s *memBalanceStore) IncrementBalance(_ context.Context, userID primitive.ObjectID, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = s.balances[userID].Add(delta)
	s.increments++
	return nil
}

func (s *memBalanceStore) SetBalance(_ context.Context, userID primitive.ObjectID, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = value
	return nil
}

func (s *memBalanceStore) GetBalance(_ context.Context, userID primitive.ObjectID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *memBalanceStore) ListUserIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(s.balances))
	for id := range s.balances {
		ids = append(ids, id)
	}
	return ids, nil
}

// Mock stores for failure-path tests.

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Insert(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionStore) Update(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Transaction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionStore) FindAllByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

type MockBalanceStore struct {
	mock.Mock
}

func (m *MockBalanceStore) IncrementBalance(ctx context.Context, userID primitive.ObjectID, delta decimal.Decimal) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *MockBalanceStore) SetBalance(ctx context.Context, userID primitive.ObjectID, value decimal.Decimal) error {
	args := m.Called(ctx, userID, value)
	return args.Error(0)
}

func (m *MockBalanceStore) GetBalance(ctx context.Context, userID primitive.ObjectID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func newTestLedger() (Ledger, *memTransactionStore, *memBalanceStore) {
	txs := newMemTransactionStore()
	balances := newMemBalanceStore()
	return New(txs, balances), txs, balances
}

func mustBalance(t *testing.T, balances *memBalanceStore, userID primitive.ObjectID) decimal.Decimal {
	t.Helper()
	balance, err := balances.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func TestSignedEffect(t *testing.T) {
	amount := decimal.NewFromInt(250)

	assert.True(t, models.SignedEffect(models.KindIncome, amount).Equal(decimal.NewFromInt(250)))
	assert.True(t, models.SignedEffect(models.KindExpense, amount).Equal(decimal.NewFromInt(-250)))
}

func TestLedger_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input *CreateInput
	}{
		{
			name: "zero amount",
			input: &CreateInput{
				Kind:     models.KindIncome,
				Amount:   decimal.Zero,
				Category: "salary",
			},
		},
		{
			name: "negative amount",
			input: &CreateInput{
				Kind:     models.KindExpense,
				Amount:   decimal.NewFromInt(-10),
				Category: "food",
			},
		},
		{
			name: "unknown kind",
			input: &CreateInput{
				Kind:     models.TransactionKind("transfer"),
				Amount:   decimal.NewFromInt(10),
				Category: "food",
			},
		},
		{
			name: "unknown category",
			input: &CreateInput{
				Kind:     models.KindExpense,
				Amount:   decimal.NewFromInt(10),
				Category: "yachts",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, balances := newTestLedger()
			userID := primitive.NewObjectID()

			_, err := l.Create(context.Background(), userID, tt.input)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Zero(t, balances.increments, "no balance mutation on validation failure")
		})
	}
}

func TestLedger_CreateThenDeleteRestoresBaseline(t *testing.T) {
	l, _, balances := newTestLedger()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	tx, err := l.Create(ctx, userID, &CreateInput{
		Kind:     models.KindIncome,
		Amount:   decimal.NewFromInt(5000),
		Category: "salary",
	})
	require.NoError(t, err)
	assert.False(t, tx.ID.IsZero(), "created transaction carries an assigned id")
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(5000)))

	require.NoError(t, l.Delete(ctx, userID, tx.ID))
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.Zero))
}

func TestLedger_UpdateAmountOfExpense(t *testing.T) {
	l, _, balances := newTestLedger()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Seed the stored balance the way a prior history would have.
	require.NoError(t, balances.SetBalance(ctx, userID, decimal.NewFromInt(1000)))

	tx, err := l.Create(ctx, userID, &CreateInput{
		Kind:     models.KindExpense,
		Amount:   decimal.NewFromInt(300),
		Category: "food",
	})
	require.NoError(t, err)
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(700)))

	newAmount := decimal.NewFromInt(500)
	_, err = l.Update(ctx, userID, tx.ID, &UpdateInput{Amount: &newAmount})
	require.NoError(t, err)

	// Reverse +300, apply -500: net -200 from 700.
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(500)))
}

func TestLedger_UpdateKindAndAmount(t *testing.T) {
	l, _, balances := newTestLedger()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	tx, err := l.Create(ctx, userID, &CreateInput{
		Kind:     models.KindIncome,
		Amount:   decimal.NewFromInt(100),
		Category: "gift",
	})
	require.NoError(t, err)

	expense := models.KindExpense
	amount := decimal.NewFromInt(40)
	updated, err := l.Update(ctx, userID, tx.ID, &UpdateInput{Kind: &expense, Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, models.KindExpense, updated.Kind)
	// Net effect relative to the pre-create baseline is exactly -40,
	// not +60 (double-counted) and not -140.
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(-40)))
}

func TestLedger_UpdateDescriptionOnlyLeavesBalanceAlone(t *testing.T) {
	l, _, balances := newTestLedger()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	tx, err := l.Create(ctx, userID, &CreateInput{
		Kind:     models.KindIncome,
		Amount:   decimal.NewFromInt(75),
		Category: "freelance",
	})
	require.NoError(t, err)
	incrementsAfterCreate := balances.increments

	desc := "logo design gig"
	updated, err := l.Update(ctx, userID, tx.ID, &UpdateInput{Description: &desc})
	require.NoError(t, err)

	assert.Equal(t, desc, updated.Description)
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(75)))
	assert.Equal(t, incrementsAfterCreate, balances.increments, "zero net delta skips the increment")
}

func TestLedger_UpdateMissingTransaction(t *testing.T) {
	l, _, _ := newTestLedger()
	userID := primitive.NewObjectID()

	_, err := l.Update(context.Background(), userID, primitive.NewObjectID(), &UpdateInput{})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestLedger_UpdateForeignTransaction(t *testing.T) {
	l, _, balances := newTestLedger()
	owner := primitive.NewObjectID()
	intruder := primitive.NewObjectID()
	ctx := context.Background()

	tx, err := l.Create(ctx, owner, &CreateInput{
		Kind:     models.KindIncome,
		Amount:   decimal.NewFromInt(200),
		Category: "salary",
	})
	require.NoError(t, err)

	amount := decimal.NewFromInt(999)
	_, err = l.Update(ctx, intruder, tx.ID, &UpdateInput{Amount: &amount})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, mustBalance(t, balances, owner).Equal(decimal.NewFromInt(200)))
}

func TestLedger_DeleteMissingTransaction(t *testing.T) {
	l, _, balances := newTestLedger()
	userID := primitive.NewObjectID()

	err := l.Delete(context.Background(), userID, primitive.NewObjectID())

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Zero(t, balances.increments)
}

func TestLedger_ConcurrentCreatesCompound(t *testing.T) {
	l, txs, balances := newTestLedger()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	amounts := []int64{100, 50, 25, 200, 75, 10, 40, 60}
	var wg sync.WaitGroup
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			_, err := l.Create(ctx, userID, &CreateInput{
				Kind:     models.KindIncome,
				Amount:   decimal.NewFromInt(amount),
				Category: "pocket_money",
			})
			assert.NoError(t, err)
		}(amount)
	}
	wg.Wait()

	var expected int64
	for _, a := range amounts {
		expected += a
	}
	assert.True(t, mustBalance(t, balances, userID).Equal(decimal.NewFromInt(expected)))

	all, err := txs.FindAllByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, len(amounts))
}

func TestLedger_DeltaCommutativity(t *testing.T) {
	ctx := context.Background()
	a := decimal.NewFromInt(130)
	b := decimal.NewFromInt(-45)

	first := newMemBalanceStore()
	userID := primitive.NewObjectID()
	require.NoError(t, first.IncrementBalance(ctx, userID, a))
	require.NoError(t, first.IncrementBalance(ctx, userID, b))

	second := newMemBalanceStore()
	require.NoError(t, second.IncrementBalance(ctx, userID, b))
	require.NoError(t, second.IncrementBalance(ctx, userID, a))

	left, _ := first.GetBalance(ctx, userID)
	right, _ := second.GetBalance(ctx, userID)
	assert.True(t, left.Equal(right))
}

func TestLedger_BalanceMatchesFoldAfterMixedOperations(t *testing.T) {
	l, txs, balances := newTestLedger()
	userID := primitive.NewObjectID()
	ctx := context.Background()

	first, err := l.Create(ctx, userID, &CreateInput{
		Kind: models.KindIncome, Amount: decimal.NewFromInt(1000), Category: "salary",
	})
	require.NoError(t, err)

	second, err := l.Create(ctx, userID, &CreateInput{
		Kind: models.KindExpense, Amount: decimal.NewFromInt(200), Category: "food",
	})
	require.NoError(t, err)

	_, err = l.Create(ctx, userID, &CreateInput{
		Kind: models.KindIncome, Amount: decimal.NewFromInt(50), Category: "gift",
	})
	require.NoError(t, err)

	newAmount := decimal.NewFromInt(350)
	_, err = l.Update(ctx, userID, second.ID, &UpdateInput{Amount: &newAmount})
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, userID, first.ID))

	all, err := txs.FindAllByUser(ctx, userID)
	require.NoError(t, err)

	fold := decimal.Zero
	for _, tx := range all {
		fold = fold.Add(tx.SignedEffect())
	}
	assert.True(t, mustBalance(t, balances, userID).Equal(fold))
}

func TestLedger_InsertFailureLeavesBalanceUntouched(t *testing.T) {
	txStore := &MockTransactionStore{}
	balanceStore := &MockBalanceStore{}
	l := New(txStore, balanceStore)

	txStore.On("Insert", mock.Anything, mock.AnythingOfType("*models.Transaction")).
		Return(errors.New("connection refused"))

	_, err := l.Create(context.Background(), primitive.NewObjectID(), &CreateInput{
		Kind:     models.KindIncome,
		Amount:   decimal.NewFromInt(100),
		Category: "salary",
	})

	var unavailable *StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)
	balanceStore.AssertNotCalled(t, "IncrementBalance", mock.Anything, mock.Anything, mock.Anything)
	txStore.AssertExpectations(t)
}

func TestLedger_IncrementFailureIsPartialApplication(t *testing.T) {
	txStore := &MockTransactionStore{}
	balanceStore := &MockBalanceStore{}
	l := New(txStore, balanceStore)

	txStore.On("Insert", mock.Anything, mock.AnythingOfType("*models.Transaction")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Transaction).ID = primitive.NewObjectID()
		}).
		Return(nil)
	balanceStore.On("IncrementBalance", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("deadline exceeded"))

	_, err := l.Create(context.Background(), primitive.NewObjectID(), &CreateInput{
		Kind:     models.KindExpense,
		Amount:   decimal.NewFromInt(30),
		Category: "transport",
	})

	var partial *PartialApplicationError
	require.ErrorAs(t, err, &partial)
	assert.True(t, partial.Delta.Equal(decimal.NewFromInt(-30)))
	txStore.AssertExpectations(t)
	balanceStore.AssertExpectations(t)
}

func TestLedger_DeleteIncrementFailureIsPartialApplication(t *testing.T) {
	txStore := &MockTransactionStore{}
	balanceStore := &MockBalanceStore{}
	l := New(txStore, balanceStore)

	userID := primitive.NewObjectID()
	txID := primitive.NewObjectID()
	removed := &models.Transaction{
		ID:     txID,
		UserID: userID,
		Kind:   models.KindIncome,
		Amount: decimal.NewFromInt(80),
	}

	txStore.On("Delete", mock.Anything, userID, txID).Return(removed, nil)
	balanceStore.On("IncrementBalance", mock.Anything, userID, mock.Anything).
		Return(errors.New("socket closed"))

	err := l.Delete(context.Background(), userID, txID)

	var partial *PartialApplicationError
	require.ErrorAs(t, err, &partial)
	assert.True(t, partial.Delta.Equal(decimal.NewFromInt(-80)))
	txStore.AssertExpectations(t)
	balanceStore.AssertExpectations(t)
}
