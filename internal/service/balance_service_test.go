package service

import (
	"context"
	"errors"
	"testing"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupRecalculator(t *testing.T) (*balanceRecalculator, *mocks.MockCustomerRepository, *mocks.MockTransactionRepository) {
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockCustomerRepository(ctrl)
	txns := mocks.NewMockTransactionRepository(ctrl)
	return NewBalanceRecalculator(customers, txns, newTestLogger()).(*balanceRecalculator), customers, txns
}

func TestBalanceRecalculator_NilCustomerIsZeroWithoutQuery(t *testing.T) {
	r, _, _ := setupRecalculator(t)

	bal, err := r.Recompute(context.Background(), nil, uuid.New(), nil)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	bal, err = r.Sync(context.Background(), nil, uuid.New(), nil)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestBalanceRecalculator_Sync(t *testing.T) {
	r, customers, txns := setupRecalculator(t)
	ctx := context.Background()
	tx := &mockTx{}
	userID, customerID := uuid.New(), uuid.New()

	txns.EXPECT().ListByCustomer(ctx, tx, userID, customerID).Return([]domain.Transaction{
		{Amount: dec("100"), Type: domain.TransactionTypeCredit},
		{Amount: dec("30"), Type: domain.TransactionTypeDebit},
		{Amount: dec("20"), Type: domain.TransactionTypeCredit},
	}, nil)
	customers.EXPECT().UpdateBalance(ctx, tx, userID, customerID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, _, _ uuid.UUID, bal decimal.Decimal) error {
			assert.Equal(t, "90", bal.String())
			return nil
		})

	bal, err := r.Sync(ctx, tx, userID, &customerID)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("90")))
}

func TestBalanceRecalculator_NoTransactionsIsZero(t *testing.T) {
	r, _, txns := setupRecalculator(t)
	userID, customerID := uuid.New(), uuid.New()

	txns.EXPECT().ListByCustomer(gomock.Any(), nil, userID, customerID).Return([]domain.Transaction{}, nil)

	bal, err := r.Recompute(context.Background(), nil, userID, &customerID)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestBalanceRecalculator_StoreFailure(t *testing.T) {
	r, customers, txns := setupRecalculator(t)
	userID, customerID := uuid.New(), uuid.New()

	txns.EXPECT().ListByCustomer(gomock.Any(), gomock.Any(), userID, customerID).Return(nil, errors.New("boom"))
	_, err := r.Sync(context.Background(), &mockTx{}, userID, &customerID)
	assert.Error(t, err)

	txns.EXPECT().ListByCustomer(gomock.Any(), gomock.Any(), userID, customerID).Return(nil, nil)
	customers.EXPECT().UpdateBalance(gomock.Any(), gomock.Any(), userID, customerID, gomock.Any()).Return(errors.New("boom"))
	_, err = r.Sync(context.Background(), &mockTx{}, userID, &customerID)
	assert.Error(t, err)
}

func TestBalanceRecalculator_SyncAll(t *testing.T) {
	r, customers, txns := setupRecalculator(t)
	ctx := context.Background()
	tx := &mockTx{}
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()

	customers.EXPECT().ListByUser(ctx, tx, userID).Return([]domain.Customer{{ID: a}, {ID: b}}, nil)
	txns.EXPECT().ListByCustomer(ctx, tx, userID, a).Return(nil, nil)
	txns.EXPECT().ListByCustomer(ctx, tx, userID, b).Return(nil, nil)
	customers.EXPECT().UpdateBalance(ctx, tx, userID, a, gomock.Any()).Return(nil)
	customers.EXPECT().UpdateBalance(ctx, tx, userID, b, gomock.Any()).Return(nil)

	n, err := r.SyncAll(ctx, tx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
