package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/shopspring/decimal"
)

// Adapter error kinds. GatewayUnavailable is retryable; the others are not.
var (
	ErrUnsupportedGateway = errors.New("unsupported payment gateway")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMalformedPayload   = errors.New("malformed gateway payload")
)

// Provider-neutral payment outcome reported by a normalized event.
const (
	ProviderStatusCompleted = "completed"
	ProviderStatusFailed    = "failed"
	ProviderStatusCancelled = "cancelled"
	ProviderStatusPending   = "pending"
)

// CheckoutRequest carries everything an adapter needs to create an
// approval/checkout link for a pending transaction.
type CheckoutRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	ReturnURL     string
	CancelURL     string
}

// ApprovalResult is the normalized response of a checkout creation.
// SessionID is the gateway-assigned reference used for later reconciliation.
type ApprovalResult struct {
	ApprovalURL string
	SessionID   string
	ProviderRef string
}

// NormalizedPaymentEvent is the provider-agnostic shape of a confirmation
// payload or webhook. Normalization must be deterministic: the same raw
// payload always yields the same event, so content-hash dedup works as a
// fallback when a provider sends no event id.
type NormalizedPaymentEvent struct {
	Gateway        string
	EventID        string
	EventType      string
	Reference      string
	ProviderStatus string
	Amount         decimal.Decimal
	SignatureValid bool
}

// CancelRequest asks a gateway to void a not-yet-captured payment.
type CancelRequest struct {
	Reference string
	Reason    string
}

// Adapter is implemented once per supported gateway. Adapters keep no local
// state across calls. VerifyAndNormalize must never trust the payload's claim
// of an outcome: it verifies the signature or re-reads the gateway's own
// record, and flags SignatureValid accordingly.
type Adapter interface {
	Gateway() string
	CreateApprovalLink(ctx context.Context, req CheckoutRequest) (*ApprovalResult, error)
	VerifyAndNormalize(ctx context.Context, payload []byte, headers map[string]string) (*NormalizedPaymentEvent, error)
	CancelPayment(ctx context.Context, req CancelRequest) error
}

// FallbackEventID derives a deterministic event id from payload content for
// providers that do not send one.
func FallbackEventID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "hash:" + hex.EncodeToString(sum[:])
}
