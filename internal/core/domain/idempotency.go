package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the result of a transfer so a retried request with
// the same key replays it instead of moving money twice.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "sender_id:transfer:client_key"
	PaymentID    uuid.UUID `json:"payment_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildTransferIdempotencyKey scopes a client key to its sender.
func BuildTransferIdempotencyKey(senderID uuid.UUID, clientKey string) string {
	return senderID.String() + ":transfer:" + clientKey
}
