package service

import (
	"context"
	"fmt"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// balanceRecalculator derives a customer's balance from its linked
// transactions. It keeps no state between calls.
type balanceRecalculator struct {
	customerRepo ports.CustomerRepository
	txRepo       ports.TransactionRepository
	log          zerolog.Logger
}

// NewBalanceRecalculator creates a ports.BalanceRecalculator.
func NewBalanceRecalculator(
	customerRepo ports.CustomerRepository,
	txRepo ports.TransactionRepository,
	log zerolog.Logger,
) ports.BalanceRecalculator {
	return &balanceRecalculator{customerRepo: customerRepo, txRepo: txRepo, log: log}
}

func (r *balanceRecalculator) Recompute(ctx context.Context, tx pgx.Tx, userID uuid.UUID, customerID *uuid.UUID) (decimal.Decimal, error) {
	if customerID == nil {
		return decimal.Zero, nil
	}
	txns, err := r.txRepo.ListByCustomer(ctx, tx, userID, *customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list customer transactions: %w", err)
	}
	return domain.FoldBalance(txns), nil
}

func (r *balanceRecalculator) Sync(ctx context.Context, tx pgx.Tx, userID uuid.UUID, customerID *uuid.UUID) (decimal.Decimal, error) {
	if customerID == nil {
		return decimal.Zero, nil
	}
	balance, err := r.Recompute(ctx, tx, userID, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := r.customerRepo.UpdateBalance(ctx, tx, userID, *customerID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("update customer balance: %w", err)
	}
	r.log.Debug().
		Str("user_id", userID.String()).
		Str("customer_id", customerID.String()).
		Str("balance", balance.String()).
		Msg("customer balance synced")
	return balance, nil
}

func (r *balanceRecalculator) SyncAll(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	customers, err := r.customerRepo.ListByUser(ctx, tx, userID)
	if err != nil {
		return 0, fmt.Errorf("list customers: %w", err)
	}
	for i := range customers {
		if _, err := r.Sync(ctx, tx, userID, &customers[i].ID); err != nil {
			return i, err
		}
	}
	return len(customers), nil
}
