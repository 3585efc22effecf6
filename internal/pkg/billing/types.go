package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionContext is the business context captured at payment initiation
// and replayed at fulfillment time. Stored as JSON on the transaction row.
type TransactionContext struct {
	UserID       string `json:"user_id,omitempty"`
	OrgID        string `json:"org_id,omitempty"`
	PlanID       int    `json:"plan_id,omitempty"`
	AutoRenew    bool   `json:"auto_renew"`
	MembershipID string `json:"membership_id,omitempty"`
	AddonKey     string `json:"addon_key,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
}

// ProcessPaymentInput starts a payment and creates the pending transaction.
type ProcessPaymentInput struct {
	Gateway     string
	Amount      decimal.Decimal
	Currency    string
	Purpose     string
	Description string
	Context     TransactionContext
}

// ProcessPaymentResult carries the approval link back to the client.
type ProcessPaymentResult struct {
	TransactionID string `json:"transaction_id"`
	ApprovalURL   string `json:"approval_url"`
	SessionID     string `json:"session_id"`
}

// FinalizeResult is the outcome of a confirmation or webhook reconciliation.
type FinalizeResult struct {
	TransactionID      string `json:"transaction_id"`
	Status             string `json:"status"`
	MembershipID       string `json:"membership_id,omitempty"`
	AddonID            string `json:"addon_id,omitempty"`
	AccessToolsGranted bool   `json:"access_tools_granted"`
	// Idempotent marks a replayed finalization that matched the recorded
	// outcome; callers see the original result, not an error.
	Idempotent bool `json:"idempotent,omitempty"`
}

// CancelPaymentInput requests local + gateway-side cancellation.
type CancelPaymentInput struct {
	TransactionID string
	Reason        string
}

// CancelPaymentResult reports the cancellation outcome.
type CancelPaymentResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Gateway       string `json:"gateway"`
}

// QuotaDecision is the result of a consumption attempt.
type QuotaDecision struct {
	Allowed      bool   `json:"allowed"`
	ResourceKey  string `json:"resource_key"`
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	Unlimited    bool   `json:"unlimited"`
}

// UsageQuota is one resource snapshot in a usage report.
type UsageQuota struct {
	ResourceKey  string `json:"resource_key"`
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	Unlimited    bool   `json:"unlimited"`
	Exceeded     bool   `json:"exceeded"`
}

// UsageReport summarizes a membership's usage for the current cycle.
type UsageReport struct {
	MembershipID string       `json:"membership_id"`
	OrgID        string       `json:"org_id"`
	PlanName     string       `json:"plan_name"`
	Quotas       []UsageQuota `json:"quotas"`
	CycleStart   time.Time    `json:"cycle_start"`
	CycleEnd     time.Time    `json:"cycle_end"`
}
