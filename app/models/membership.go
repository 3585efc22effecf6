package models

import "time"

// Membership statuses.
const (
	MembershipStatusPendingPayment = "pending_payment"
	MembershipStatusActive         = "active"
	MembershipStatusExpired        = "expired"
	MembershipStatusSuspended      = "suspended"
	MembershipStatusCancelled      = "cancelled"
)

// Membership links a user and organization to a plan. It is derived state:
// it only ever becomes Active as a consequence of a Transaction reaching
// Success, never directly from a client request.
type Membership struct {
	ID                    string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID                string     `gorm:"type:char(36);not null;index:ux_memberships_user_org,unique,priority:1" json:"user_id"`
	OrgID                 string     `gorm:"type:char(36);not null;index:ux_memberships_user_org,unique,priority:2" json:"org_id"`
	PlanID                int        `gorm:"not null;index" json:"plan_id"`
	Status                string     `gorm:"type:varchar(20);not null;default:'pending_payment';index" json:"status"`
	StartDate             time.Time  `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate               *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	AutoRenew             bool       `gorm:"default:true" json:"auto_renew"`
	BillingCycleStartDate time.Time  `gorm:"type:timestamp;not null" json:"billing_cycle_start_date"`
	BillingCycleEndDate   time.Time  `gorm:"type:timestamp;not null" json:"billing_cycle_end_date"`
	LastResetDate         time.Time  `gorm:"type:timestamp;not null" json:"last_reset_date"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// MembershipAddon is a purchasable entitlement layered on top of a base
// membership plan. Created only when an addon purchase transaction succeeds.
type MembershipAddon struct {
	ID             string     `gorm:"type:char(36);primaryKey" json:"id"`
	MembershipID   string     `gorm:"type:char(36);not null;index" json:"membership_id"`
	OrgID          string     `gorm:"type:char(36);not null;index" json:"org_id"`
	AddonKey       string     `gorm:"type:varchar(100);not null" json:"addon_key"`
	Quantity       int        `gorm:"default:1" json:"quantity"`
	EffectiveFrom  *time.Time `gorm:"type:timestamp;default:null" json:"effective_from,omitempty"`
	EffectiveUntil *time.Time `gorm:"type:timestamp;default:null" json:"effective_until,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
