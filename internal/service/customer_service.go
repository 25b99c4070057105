package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CustomerServiceImpl implements ports.CustomerService.
type CustomerServiceImpl struct {
	customerRepo ports.CustomerRepository
	txRepo       ports.TransactionRepository
	userRepo     ports.UserRepository
	recalc       ports.BalanceRecalculator
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewCustomerService creates a new CustomerServiceImpl.
func NewCustomerService(
	customerRepo ports.CustomerRepository,
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	recalc ports.BalanceRecalculator,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *CustomerServiceImpl {
	return &CustomerServiceImpl{
		customerRepo: customerRepo,
		txRepo:       txRepo,
		userRepo:     userRepo,
		recalc:       recalc,
		transactor:   transactor,
		log:          log,
	}
}

func (s *CustomerServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]domain.Customer, error) {
	customers, err := s.customerRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list customers: %w", err))
	}
	return customers, nil
}

// Create adds a customer. Names are trimmed and must be unique per owner
// ignoring case.
func (s *CustomerServiceImpl) Create(ctx context.Context, userID uuid.UUID, name, phone string) (*domain.Customer, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return nil, apperror.Validation("customer name is required")
	}

	existing, err := s.customerRepo.FindByName(ctx, nil, userID, name)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find customer by name: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateName()
	}

	c := newCustomer(userID, name, phone)
	if err := s.customerRepo.Create(ctx, nil, c); err != nil {
		if errors.Is(err, ports.ErrUniqueViolation) {
			return nil, apperror.ErrDuplicateName()
		}
		return nil, apperror.InternalError(fmt.Errorf("create customer: %w", err))
	}

	s.log.Info().Str("user_id", userID.String()).Str("customer_id", c.ID.String()).Msg("customer created")
	return c, nil
}

// Update renames a customer and/or changes its phone. Existing transaction
// snapshots keep the old name.
func (s *CustomerServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, req ports.CustomerUpdate) (*domain.Customer, error) {
	var name string
	if req.Name != nil {
		name = domain.NormalizeName(*req.Name)
		if name == "" {
			return nil, apperror.Validation("customer name is required")
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.customerRepo.GetByIDForUpdate(ctx, dbTx, userID, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock customer: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("customer")
	}

	if req.Name != nil {
		other, err := s.customerRepo.FindByName(ctx, dbTx, userID, name)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("find customer by name: %w", err))
		}
		if other != nil && other.ID != c.ID {
			return nil, apperror.ErrDuplicateName()
		}
		c.Name = name
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.customerRepo.Update(ctx, dbTx, c); err != nil {
		if errors.Is(err, ports.ErrUniqueViolation) {
			return nil, apperror.ErrDuplicateName()
		}
		return nil, apperror.InternalError(fmt.Errorf("update customer: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("user_id", userID.String()).Str("customer_id", id.String()).Msg("customer updated")
	return c, nil
}

// Delete removes a customer. Its transactions stay, unlinked, under their
// snapshot names.
func (s *CustomerServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.customerRepo.GetByIDForUpdate(ctx, dbTx, userID, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock customer: %w", err))
	}
	if c == nil {
		return apperror.ErrNotFound("customer")
	}
	if err := s.customerRepo.Delete(ctx, dbTx, userID, id); err != nil {
		return apperror.InternalError(fmt.Errorf("delete customer: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("user_id", userID.String()).Str("customer_id", id.String()).Msg("customer deleted")
	return nil
}

// ResolveRef maps a customer reference to a customer inside tx.
//
// Identity wins: a present ID must name a customer of the owner, and a name
// sent alongside it must match that customer ignoring case. Without an ID a
// non-blank name finds or creates the customer. An empty reference resolves
// to nil.
//
// A concurrent create of the same name surfaces as an error wrapping
// ports.ErrUniqueViolation; the caller's transaction is then unusable and
// the whole operation should be retried.
func (s *CustomerServiceImpl) ResolveRef(ctx context.Context, tx pgx.Tx, userID uuid.UUID, ref domain.CustomerRef) (*domain.Customer, error) {
	name := domain.NormalizeName(ref.Name)

	if ref.ID != nil {
		c, err := s.customerRepo.GetByID(ctx, tx, userID, *ref.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get customer: %w", err))
		}
		if c == nil {
			return nil, apperror.ErrInvalidCustomer()
		}
		if name != "" && !domain.SameName(name, c.Name) {
			return nil, apperror.ErrInvalidCustomer()
		}
		return c, nil
	}

	if name == "" {
		return nil, nil
	}
	c, _, err := s.findOrCreate(ctx, tx, userID, name)
	return c, err
}

func (s *CustomerServiceImpl) findOrCreate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string) (*domain.Customer, bool, error) {
	c, err := s.customerRepo.FindByName(ctx, tx, userID, name)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("find customer by name: %w", err))
	}
	if c != nil {
		return c, false, nil
	}

	c = newCustomer(userID, name, "")
	if err := s.customerRepo.Create(ctx, tx, c); err != nil {
		if errors.Is(err, ports.ErrUniqueViolation) {
			return nil, false, err
		}
		return nil, false, apperror.InternalError(fmt.Errorf("create customer: %w", err))
	}
	return c, true, nil
}

// Backfill links every unlinked transaction of the owner to a customer named
// after its snapshot, creating customers as needed, then recomputes every
// customer balance of the owner. It runs in one transaction and a second run
// changes nothing.
func (s *CustomerServiceImpl) Backfill(ctx context.Context, userID uuid.UUID) (*domain.BackfillReport, error) {
	var report *domain.BackfillReport
	err := retryOnNameRace(ctx, func() error {
		var err error
		report, err = s.backfill(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Int("customers_created", report.CustomersCreated).
		Int64("transactions_linked", report.TransactionsLinked).
		Int("balances_recomputed", report.BalancesRecomputed).
		Msg("backfill completed")
	return report, nil
}

func (s *CustomerServiceImpl) backfill(ctx context.Context, userID uuid.UUID) (*domain.BackfillReport, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	names, err := s.txRepo.DistinctUnlinkedNames(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list unlinked names: %w", err))
	}

	report := &domain.BackfillReport{UserID: userID}
	for _, snapshot := range names {
		name := domain.NormalizeName(snapshot)
		if name == "" {
			continue
		}
		c, created, err := s.findOrCreate(ctx, dbTx, userID, name)
		if err != nil {
			return nil, err
		}
		if created {
			report.CustomersCreated++
		}
		n, err := s.txRepo.LinkByName(ctx, dbTx, userID, snapshot, c.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("link transactions: %w", err))
		}
		report.TransactionsLinked += n
	}

	synced, err := s.recalc.SyncAll(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("recompute balances: %w", err))
	}
	report.BalancesRecomputed = synced

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return report, nil
}

// BackfillAll runs Backfill for every user, oldest first, and stops at the
// first failure.
func (s *CustomerServiceImpl) BackfillAll(ctx context.Context) ([]domain.BackfillReport, error) {
	ids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list users: %w", err))
	}

	reports := make([]domain.BackfillReport, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := s.Backfill(ctx, id)
		if err != nil {
			return reports, fmt.Errorf("backfill user %s: %w", id, err)
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

func newCustomer(userID uuid.UUID, name, phone string) *domain.Customer {
	now := time.Now().UTC()
	return &domain.Customer{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Phone:     phone,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// maxNameRaceAttempts bounds retries of an operation that lost a
// find-or-create race on a customer name.
const maxNameRaceAttempts = 3

// retryOnNameRace runs op again while it fails with a unique violation from
// a concurrent customer create. Any other error, or the last attempt's
// violation mapped to DuplicateName, is returned.
func retryOnNameRace(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < maxNameRaceAttempts; attempt++ {
		if err = op(); !errors.Is(err, ports.ErrUniqueViolation) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return apperror.ErrDuplicateName()
}
