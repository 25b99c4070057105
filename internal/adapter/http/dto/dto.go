package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Identifier string `json:"identifier" binding:"required,max=254"` // email or phone
	Password   string `json:"password" binding:"required,min=6,max=128" sanitize:"-"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required" sanitize:"-"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         *string         `json:"email,omitempty"`
	Phone         *string         `json:"phone,omitempty"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User   UserResponse `json:"user"`
	Token  string       `json:"token"`
	Expiry int64        `json:"expiry"` // Unix timestamp
}

// CreateCustomerRequest is the request body for adding a customer.
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"max=100"`
	Phone string `json:"phone" binding:"max=32"`
}

// UpdateCustomerRequest is a partial customer update; absent fields are kept.
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Phone *string `json:"phone,omitempty" binding:"omitempty,max=32"`
}

// CreateTransactionRequest is the request body for recording a transaction.
// The customer is referenced by id, by name, or not at all.
type CreateTransactionRequest struct {
	CustomerID   *string          `json:"customer_id,omitempty" binding:"omitempty,uuid"`
	CustomerName string           `json:"customer_name" binding:"max=100"`
	Amount       *decimal.Decimal `json:"amount"`
	Type         *string          `json:"type" binding:"omitempty,ledger_type"`
	Note         string           `json:"note" binding:"max=500"`
	Date         *Date            `json:"date,omitempty"`
}

// UpdateTransactionRequest is a partial transaction update. The customer
// link cannot be changed.
type UpdateTransactionRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Type   *string          `json:"type,omitempty" binding:"omitempty,ledger_type"`
	Note   *string          `json:"note,omitempty" binding:"omitempty,max=500"`
	Date   *Date            `json:"date,omitempty"`
}

// DateRangeQuery is the optional inclusive range on listing endpoints.
type DateRangeQuery struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// Range parses the query. A date-only end bound covers the whole day.
func (q DateRangeQuery) Range() (from, to *time.Time, err error) {
	if q.StartDate != "" {
		t, _, err := ParseDate(q.StartDate)
		if err != nil {
			return nil, nil, fmt.Errorf("start_date: %w", err)
		}
		from = &t
	}
	if q.EndDate != "" {
		t, dateOnly, err := ParseDate(q.EndDate)
		if err != nil {
			return nil, nil, fmt.Errorf("end_date: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	return from, to, nil
}

// TransferRequest is the request body for a wallet transfer.
type TransferRequest struct {
	ReceiverID *string         `json:"receiver_id" binding:"omitempty,uuid"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note" binding:"max=500"`
}

// TopupRequest is the request body for adding money to the wallet.
type TopupRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse is the response for wallet balance queries.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// TopupResponse is the response for adding money to the wallet.
type TopupResponse struct {
	Message    string          `json:"message"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// TransferResponse is the response for a completed transfer.
type TransferResponse struct {
	Payment    PaymentResponse `json:"payment"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// PaymentResponse is one wallet payment.
type PaymentResponse struct {
	ID         string          `json:"id"`
	SenderID   string          `json:"sender_id"`
	ReceiverID string          `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Note       string          `json:"note"`
	Date       string          `json:"date"`
}

// PaymentParty names one side of a payment.
type PaymentParty struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// PaymentHistoryItem is a payment with both parties, seen from the caller.
type PaymentHistoryItem struct {
	PaymentResponse
	Direction string       `json:"direction"` // sent, received
	Sender    PaymentParty `json:"sender"`
	Receiver  PaymentParty `json:"receiver"`
}

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Date accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, _, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDate parses RFC 3339 or YYYY-MM-DD. dateOnly reports the latter.
func ParseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q: want RFC 3339 or YYYY-MM-DD", s)
}
