package service

import (
	"context"
	"fmt"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DefaultSummaryMonths is the monthly summary window when none is configured.
const DefaultSummaryMonths = 6

// LedgerServiceImpl implements ports.LedgerService. Every mutation runs in
// one store transaction that locks the affected customer row and resyncs its
// balance before commit.
type LedgerServiceImpl struct {
	txRepo        ports.TransactionRepository
	customerRepo  ports.CustomerRepository
	customers     ports.CustomerService
	recalc        ports.BalanceRecalculator
	transactor    ports.DBTransactor
	summaryMonths int
	now           func() time.Time
	log           zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. summaryMonths <= 0 falls
// back to DefaultSummaryMonths.
func NewLedgerService(
	txRepo ports.TransactionRepository,
	customerRepo ports.CustomerRepository,
	customers ports.CustomerService,
	recalc ports.BalanceRecalculator,
	transactor ports.DBTransactor,
	summaryMonths int,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if summaryMonths <= 0 {
		summaryMonths = DefaultSummaryMonths
	}
	return &LedgerServiceImpl{
		txRepo:        txRepo,
		customerRepo:  customerRepo,
		customers:     customers,
		recalc:        recalc,
		transactor:    transactor,
		summaryMonths: summaryMonths,
		now:           time.Now,
		log:           log,
	}
}

// Create records a transaction against the referenced customer, creating
// the customer by name if needed.
func (s *LedgerServiceImpl) Create(ctx context.Context, req ports.CreateTransactionRequest) (*domain.Transaction, error) {
	if req.Amount == nil || !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	if req.Type == nil || !req.Type.IsValid() {
		return nil, apperror.Validation("type must be credit or debit")
	}

	var txn *domain.Transaction
	err := retryOnNameRace(ctx, func() error {
		var err error
		txn, err = s.create(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("transaction_id", txn.ID.String()).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.String()).
		Msg("transaction created")
	return txn, nil
}

func (s *LedgerServiceImpl) create(ctx context.Context, req ports.CreateTransactionRequest) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	resolved, err := s.customers.ResolveRef(ctx, dbTx, req.UserID, req.Customer)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	txn := &domain.Transaction{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Amount:    *req.Amount,
		Type:      *req.Type,
		Note:      req.Note,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Date != nil {
		txn.Date = *req.Date
	}

	if resolved != nil {
		locked, err := s.lockCustomer(ctx, dbTx, req.UserID, &resolved.ID)
		if err != nil {
			return nil, err
		}
		if locked == nil {
			return nil, apperror.ErrInvalidCustomer()
		}
		txn.CustomerID = &locked.ID
		txn.CustomerName = locked.Name
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if err := s.syncAndCommit(ctx, dbTx, req.UserID, txn.CustomerID); err != nil {
		return nil, err
	}
	return txn, nil
}

// Update applies a partial patch. The customer link never changes.
func (s *LedgerServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	if patch.Type != nil && !patch.Type.IsValid() {
		return nil, apperror.Validation("type must be credit or debit")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, userID, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	if _, err := s.lockCustomer(ctx, dbTx, userID, txn.CustomerID); err != nil {
		return nil, err
	}

	patch.Apply(txn)
	txn.UpdatedAt = s.now().UTC()

	if err := s.txRepo.Update(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update transaction: %w", err))
	}
	if err := s.syncAndCommit(ctx, dbTx, userID, txn.CustomerID); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", userID.String()).Str("transaction_id", id.String()).Msg("transaction updated")
	return txn, nil
}

// Delete removes a transaction and resyncs the customer it was linked to.
func (s *LedgerServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, userID, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return apperror.ErrNotFound("transaction")
	}
	if _, err := s.lockCustomer(ctx, dbTx, userID, txn.CustomerID); err != nil {
		return err
	}

	if err := s.txRepo.Delete(ctx, dbTx, userID, id); err != nil {
		return apperror.InternalError(fmt.Errorf("delete transaction: %w", err))
	}
	if err := s.syncAndCommit(ctx, dbTx, userID, txn.CustomerID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID.String()).Str("transaction_id", id.String()).Msg("transaction deleted")
	return nil
}

// lockCustomer takes the row lock that serializes balance syncs of one
// customer. A nil id locks nothing.
func (s *LedgerServiceImpl) lockCustomer(ctx context.Context, tx pgx.Tx, userID uuid.UUID, customerID *uuid.UUID) (*domain.Customer, error) {
	if customerID == nil {
		return nil, nil
	}
	c, err := s.customerRepo.GetByIDForUpdate(ctx, tx, userID, *customerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock customer: %w", err))
	}
	return c, nil
}

func (s *LedgerServiceImpl) syncAndCommit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, customerID *uuid.UUID) error {
	if _, err := s.recalc.Sync(ctx, tx, userID, customerID); err != nil {
		return apperror.InternalError(fmt.Errorf("sync balance: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *LedgerServiceImpl) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	txns, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

// CustomerView lists a customer's transactions, matched by link or by
// snapshot name, together with the cached balance.
func (s *LedgerServiceImpl) CustomerView(ctx context.Context, userID uuid.UUID, customerName string) (*domain.CustomerView, error) {
	name := domain.NormalizeName(customerName)
	if name == "" {
		return nil, apperror.ErrNotFound("customer")
	}

	c, err := s.customerRepo.FindByName(ctx, nil, userID, name)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find customer by name: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("customer")
	}

	txns, err := s.txRepo.ListForCustomerView(ctx, userID, c.ID, c.Name)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list customer transactions: %w", err))
	}

	return &domain.CustomerView{
		CustomerID:   c.ID,
		CustomerName: c.Name,
		Balance:      c.Balance,
		Transactions: txns,
	}, nil
}

func (s *LedgerServiceImpl) Summary(ctx context.Context, filter domain.TransactionFilter) ([]domain.CustomerSummary, error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	summary, err := s.txRepo.SummaryByCustomer(ctx, filter)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("summarize transactions: %w", err))
	}
	return summary, nil
}

// MonthlySummary covers transactions dated from the same instant
// summaryMonths months ago, so the oldest month is usually partial.
func (s *LedgerServiceImpl) MonthlySummary(ctx context.Context, userID uuid.UUID) ([]domain.MonthlySummary, error) {
	since := monthsBack(s.now().UTC(), s.summaryMonths)
	summary, err := s.txRepo.MonthlySummary(ctx, userID, since)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("monthly summary: %w", err))
	}
	return summary, nil
}

// monthsBack returns now moved back n calendar months. Day overflow
// normalises forward, as time.AddDate does.
func monthsBack(now time.Time, n int) time.Time {
	return now.AddDate(0, -n, 0)
}

func validateRange(f domain.TransactionFilter) error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return apperror.Validation("from must not be after to")
	}
	return nil
}
