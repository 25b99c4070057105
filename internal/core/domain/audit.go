package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister          AuditAction = "REGISTER"
	AuditActionLogin             AuditAction = "LOGIN"
	AuditActionCreateCustomer    AuditAction = "CREATE_CUSTOMER"
	AuditActionUpdateCustomer    AuditAction = "UPDATE_CUSTOMER"
	AuditActionDeleteCustomer    AuditAction = "DELETE_CUSTOMER"
	AuditActionBackfill          AuditAction = "BACKFILL"
	AuditActionCreateTransaction AuditAction = "CREATE_TRANSACTION"
	AuditActionUpdateTransaction AuditAction = "UPDATE_TRANSACTION"
	AuditActionDeleteTransaction AuditAction = "DELETE_TRANSACTION"
	AuditActionTransfer          AuditAction = "TRANSFER"
	AuditActionTopup             AuditAction = "TOPUP"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
