package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrUniqueViolation is returned by repositories when an insert or update
// collides with a unique constraint (customer name, user email or phone).
var ErrUniqueViolation = errors.New("unique constraint violation")

// Every method that takes a pgx.Tx runs inside that transaction. Where the
// doc says "tx may be nil", a nil tx runs the statement on the pool.
// Reads return (nil, nil) when the row does not exist or is not owned.

// UserRepository defines persistence operations for users and their wallets.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetByIdentifier looks up by email or phone.
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	// ListExcept returns every user but the given one, ordered by name.
	ListExcept(ctx context.Context, id uuid.UUID) ([]domain.User, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)
	UpdateWalletBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
}

// CustomerRepository defines persistence operations for customers. tx may be nil.
type CustomerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, customer *domain.Customer) error
	GetByID(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Customer, error)
	// GetByIDForUpdate locks the customer row; tx must not be nil.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Customer, error)
	// FindByName matches trim + case-fold equal names under the owner.
	FindByName(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string) (*domain.Customer, error)
	// ListByUser returns the owner's customers, newest first.
	ListByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.Customer, error)
	// Update writes name and phone.
	Update(ctx context.Context, tx pgx.Tx, customer *domain.Customer) error
	UpdateBalance(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID, balance decimal.Decimal) error
	// Delete removes the customer and unlinks its transactions.
	Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error
}

// TransactionRepository defines persistence operations for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Transaction, error)
	// Update writes amount, type, note and date.
	Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	Delete(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error
	// ListByCustomer returns the transactions linked to a customer by
	// identity. tx may be nil.
	ListByCustomer(ctx context.Context, tx pgx.Tx, userID, customerID uuid.UUID) ([]domain.Transaction, error)
	// ListForCustomerView returns transactions linked by identity or carrying
	// exactly the given snapshot name, date descending, without duplicates.
	ListForCustomerView(ctx context.Context, userID, customerID uuid.UUID, name string) ([]domain.Transaction, error)
	// List returns the owner's transactions within the filter, date descending.
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	// DistinctUnlinkedNames returns the non-empty snapshot names of
	// transactions without a customer link. tx may be nil.
	DistinctUnlinkedNames(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]string, error)
	// LinkByName links unlinked transactions whose snapshot equals name exactly.
	LinkByName(ctx context.Context, tx pgx.Tx, userID uuid.UUID, name string, customerID uuid.UUID) (int64, error)
	SummaryByCustomer(ctx context.Context, filter domain.TransactionFilter) ([]domain.CustomerSummary, error)
	// MonthlySummary aggregates transactions dated on or after since, ascending.
	MonthlySummary(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.MonthlySummary, error)
}

// PaymentRepository defines persistence operations for wallet payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	// ListByUser returns payments sent or received by the user, date descending.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRecord, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
