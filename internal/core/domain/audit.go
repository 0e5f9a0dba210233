package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionPOSCredit         AuditAction = "POS_CREDIT"
	AuditActionPOSDebit          AuditAction = "POS_DEBIT"
	AuditActionQRPayment         AuditAction = "QR_PAYMENT"
	AuditActionWebhook           AuditAction = "WEBHOOK"
	AuditActionRefund            AuditAction = "REFUND"
	AuditActionRotateCredentials AuditAction = "ROTATE_CREDENTIALS"
	AuditActionRevokeCredentials AuditAction = "REVOKE_CREDENTIALS"
)

// AuditLog records a single audited action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Actor        string      `json:"actor"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
