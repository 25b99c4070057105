package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an account holder. Exactly one of Email or Phone identifies the user.
type User struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Email         *string         `json:"email,omitempty"`
	Phone         *string         `json:"phone,omitempty"`
	PasswordHash  string          `json:"-"` // Never expose
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Identifier returns whichever of email or phone the user registered with.
func (u *User) Identifier() string {
	if u.Email != nil {
		return *u.Email
	}
	if u.Phone != nil {
		return *u.Phone
	}
	return ""
}

// CanDebit reports whether the wallet covers amount.
func (u *User) CanDebit(amount decimal.Decimal) bool {
	return u.WalletBalance.GreaterThanOrEqual(amount)
}

// IsEmailIdentifier reports whether a login identifier should be treated as
// an email address rather than a phone number.
func IsEmailIdentifier(identifier string) bool {
	return strings.Contains(identifier, "@")
}
