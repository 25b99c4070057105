package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"ledgerbook/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimitStore is a fixed-window request counter.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// AuthService defines registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
}

// RegisterRequest holds input for user registration. Identifier is an email
// when it contains "@", a phone number otherwise.
type RegisterRequest struct {
	Name       string
	Identifier string
	Password   string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// BalanceRecalculator recomputes customer balances from their transactions.
type BalanceRecalculator interface {
	// Recompute folds the customer's linked transactions. A nil customerID
	// yields zero without touching the store. tx may be nil.
	Recompute(ctx context.Context, tx pgx.Tx, userID uuid.UUID, customerID *uuid.UUID) (decimal.Decimal, error)
	// Sync recomputes and persists the customer's cached balance.
	Sync(ctx context.Context, tx pgx.Tx, userID uuid.UUID, customerID *uuid.UUID) (decimal.Decimal, error)
	// SyncAll syncs every customer of the owner and returns how many were written.
	SyncAll(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)
}

// CustomerService defines customer management and name resolution.
type CustomerService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Customer, error)
	Create(ctx context.Context, userID uuid.UUID, name, phone string) (*domain.Customer, error)
	Update(ctx context.Context, userID, id uuid.UUID, req CustomerUpdate) (*domain.Customer, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// ResolveRef resolves by identity first, then by name (find-or-create).
	// A nil result with nil error means the reference names no customer.
	ResolveRef(ctx context.Context, tx pgx.Tx, userID uuid.UUID, ref domain.CustomerRef) (*domain.Customer, error)
	Backfill(ctx context.Context, userID uuid.UUID) (*domain.BackfillReport, error)
	BackfillAll(ctx context.Context) ([]domain.BackfillReport, error)
}

// CustomerUpdate is a partial customer update. A nil field is left untouched.
type CustomerUpdate struct {
	Name  *string
	Phone *string
}

// LedgerService defines the transaction lifecycle.
type LedgerService interface {
	Create(ctx context.Context, req CreateTransactionRequest) (*domain.Transaction, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	CustomerView(ctx context.Context, userID uuid.UUID, customerName string) (*domain.CustomerView, error)
	Summary(ctx context.Context, filter domain.TransactionFilter) ([]domain.CustomerSummary, error)
	MonthlySummary(ctx context.Context, userID uuid.UUID) ([]domain.MonthlySummary, error)
}

// CreateTransactionRequest holds validated-at-the-edge input for a new
// transaction. Amount and Type are pointers so absence is detectable.
type CreateTransactionRequest struct {
	UserID   uuid.UUID
	Customer domain.CustomerRef
	Amount   *decimal.Decimal
	Type     *domain.TransactionType
	Note     string
	Date     *time.Time
}

// WalletService defines wallet transfers and top-ups.
type WalletService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.TransferResult, error)
	Topup(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRecord, error)
	Recipients(ctx context.Context, userID uuid.UUID) ([]domain.User, error)
}

// TransferRequest holds input for a wallet transfer.
type TransferRequest struct {
	SenderID       uuid.UUID
	ReceiverID     *uuid.UUID
	Amount         decimal.Decimal
	Note           string
	IdempotencyKey string // optional
}

// AuditService records audit entries without failing the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
