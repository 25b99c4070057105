package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a wallet transfer.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is an immutable record of a wallet transfer.
type Payment struct {
	ID         uuid.UUID       `json:"id"`
	SenderID   uuid.UUID       `json:"sender_id"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     PaymentStatus   `json:"status"`
	Note       string          `json:"note"`
	Date       time.Time       `json:"date"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PaymentParty is the public view of the other side of a payment.
type PaymentParty struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
	Phone *string   `json:"phone,omitempty"`
}

// PaymentRecord is a payment joined with both parties, as listed in history.
type PaymentRecord struct {
	Payment
	Sender   PaymentParty `json:"sender"`
	Receiver PaymentParty `json:"receiver"`
}

// Direction returns "sent" or "received" from the viewpoint of userID.
func (r *PaymentRecord) Direction(userID uuid.UUID) string {
	if r.SenderID == userID {
		return "sent"
	}
	return "received"
}

// TransferResult is returned by a successful transfer.
type TransferResult struct {
	NewBalance decimal.Decimal `json:"new_balance"`
	Payment    Payment         `json:"payment"`
}
