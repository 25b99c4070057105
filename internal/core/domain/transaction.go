package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger entry relative to the customer.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// IsValid reports whether t is credit or debit.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// CashCustomerName labels unlinked transactions in summaries.
const CashCustomerName = "Cash Transactions"

// Transaction is a mutable ledger entry owned by one user. CustomerName is a
// snapshot of the linked customer's name at creation time (or a legacy free
// text name when CustomerID is nil).
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	CustomerID   *uuid.UUID      `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TransactionType `json:"type"`
	Note         string          `json:"note"`
	Date         time.Time       `json:"date"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Signed returns the amount with the sign it contributes to a balance.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsLinked reports whether the transaction references a customer by identity.
func (t *Transaction) IsLinked() bool {
	return t.CustomerID != nil
}

// FoldBalance is Σ credit − Σ debit over txs. Order is irrelevant.
func FoldBalance(txs []Transaction) decimal.Decimal {
	balance := decimal.Zero
	for i := range txs {
		balance = balance.Add(txs[i].Signed())
	}
	return balance
}

// TransactionPatch carries a partial update. A nil field is left untouched.
type TransactionPatch struct {
	Amount *decimal.Decimal
	Type   *TransactionType
	Note   *string
	Date   *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Type == nil && p.Note == nil && p.Date == nil
}

// Apply copies the present fields onto t.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
}

// TransactionFilter scopes a transaction listing. Both bounds are inclusive
// and optional.
type TransactionFilter struct {
	UserID uuid.UUID
	From   *time.Time
	To     *time.Time
}

// CustomerView is the per-customer transaction listing.
type CustomerView struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// CustomerSummary is the signed total of one snapshot name.
type CustomerSummary struct {
	CustomerName    string          `json:"customer_name"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	LastTransaction time.Time       `json:"last_transaction"`
}

// MonthlySummary is the credit and debit totals of one calendar month.
type MonthlySummary struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
}
