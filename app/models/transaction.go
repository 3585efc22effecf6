package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment gateway identifiers used across transaction-related models.
const (
	GatewayPayPal = "paypal"
	GatewayStripe = "stripe"
	GatewayPayOS  = "payos"
	GatewayVNPay  = "vnpay"
)

// Transaction statuses. Success, Failed and Cancelled are terminal:
// once reached, no further transition is permitted.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusSuccess   = "success"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// Transaction purposes.
const (
	TransactionPurposeMembership = "membership"
	TransactionPurposeAddon      = "addon"
)

// Transaction is the durable source of truth for "did money move".
// Rows are created by payment initiation, mutated only by the reconciler
// and never deleted (audit trail).
type Transaction struct {
	ID                  string          `gorm:"type:char(36);primaryKey" json:"id"`
	Gateway             string          `gorm:"type:varchar(20);not null;index:ux_transactions_gateway_reference,unique,priority:1" json:"gateway"`
	Reference           string          `gorm:"type:varchar(191);not null;index:ux_transactions_gateway_reference,unique,priority:2" json:"reference"`
	Amount              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency            string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Purpose             string          `gorm:"type:varchar(20);not null" json:"purpose"`
	ContextJSON         string          `gorm:"type:text" json:"-"`
	Status              string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	MembershipID        *string         `gorm:"type:char(36);default:null;index" json:"membership_id,omitempty"`
	PaymentURL          string          `gorm:"type:text" json:"payment_url,omitempty"`
	PaymentURLCreatedAt *time.Time      `gorm:"type:timestamp;default:null" json:"payment_url_created_at,omitempty"`
	CancellationReason  string          `gorm:"type:varchar(255);default:''" json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the transaction has reached a final status.
func (t *Transaction) IsTerminal() bool {
	return IsTerminalTransactionStatus(t.Status)
}

// IsTerminalTransactionStatus reports whether the given status is final.
func IsTerminalTransactionStatus(status string) bool {
	switch status {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	default:
		return false
	}
}

// TransactionAudit records reconciliation anomalies, e.g. a finalization
// attempt that contradicts an already recorded terminal outcome.
type TransactionAudit struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TransactionID string    `gorm:"type:char(36);not null;index" json:"transaction_id"`
	Event         string    `gorm:"type:varchar(50);not null" json:"event"`
	Detail        string    `gorm:"type:text" json:"detail"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
