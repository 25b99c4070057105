package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a debtor or creditor tracked by a user. Balance is a cache of
// FoldBalance over the customer's linked transactions.
type Customer struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NormalizeName trims surrounding whitespace. Inner whitespace and
// punctuation are significant.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// NameKey is the comparison key for customer names under one owner.
func NameKey(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// SameName reports whether two names collide under trim and case folding.
func SameName(a, b string) bool {
	return strings.EqualFold(NormalizeName(a), NormalizeName(b))
}

// CustomerRef is a caller-supplied reference to a customer. ID takes
// precedence over Name.
type CustomerRef struct {
	ID   *uuid.UUID
	Name string
}

// IsEmpty reports whether the reference names no customer at all.
func (r CustomerRef) IsEmpty() bool {
	return r.ID == nil && NormalizeName(r.Name) == ""
}

// BackfillReport summarises one backfill run for an owner.
type BackfillReport struct {
	UserID             uuid.UUID `json:"user_id"`
	CustomersCreated   int       `json:"customers_created"`
	TransactionsLinked int64     `json:"transactions_linked"`
	BalancesRecomputed int       `json:"balances_recomputed"`
}
