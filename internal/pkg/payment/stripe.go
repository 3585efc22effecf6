package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/env"
	"github.com/shopspring/decimal"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com"

type StripeClient struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		APIBaseURL:    strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *StripeClient) Gateway() string {
	return models.GatewayStripe
}

type stripeSessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
}

func (c *StripeClient) CreateApprovalLink(ctx context.Context, req CheckoutRequest) (*ApprovalResult, error) {
	if c.SecretKey == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY is not configured", ErrGatewayRejected)
	}

	// Stripe checkout sessions use form encoding; amounts are minor units.
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.ReturnURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.TransactionID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	form.Set("line_items[0][price_data][unit_amount]", req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0))

	var session stripeSessionResponse
	err := doFormWithRetry(ctx, c.HTTPClient, http.MethodPost, c.APIBaseURL+"/v1/checkout/sessions",
		map[string]string{"Authorization": "Bearer " + c.SecretKey}, form, &session)
	if err != nil {
		return nil, err
	}
	if session.URL == "" || session.ID == "" {
		return nil, fmt.Errorf("%w: checkout session missing url or id", ErrMalformedPayload)
	}

	return &ApprovalResult{
		ApprovalURL: session.URL,
		SessionID:   session.ID,
		ProviderRef: session.PaymentIntent,
	}, nil
}

type stripeWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			AmountTotal   int64  `json:"amount_total"`
			Currency      string `json:"currency"`
			PaymentStatus string `json:"payment_status"`
			Status        string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

func (c *StripeClient) VerifyAndNormalize(ctx context.Context, payload []byte, headers map[string]string) (*NormalizedPaymentEvent, error) {
	var ev stripeWebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if ev.Data.Object.ID == "" {
		return nil, fmt.Errorf("%w: missing session reference", ErrMalformedPayload)
	}

	eventID := ev.ID
	if eventID == "" {
		eventID = FallbackEventID(payload)
	}

	return &NormalizedPaymentEvent{
		Gateway:        models.GatewayStripe,
		EventID:        eventID,
		EventType:      ev.Type,
		Reference:      ev.Data.Object.ID,
		ProviderStatus: stripeStatusToProviderStatus(ev.Type, ev.Data.Object.PaymentStatus),
		Amount:         decimal.New(ev.Data.Object.AmountTotal, -2),
		SignatureValid: c.signatureValid(payload, headers),
	}, nil
}

func (c *StripeClient) CancelPayment(ctx context.Context, req CancelRequest) error {
	if c.SecretKey == "" {
		return fmt.Errorf("%w: STRIPE_SECRET_KEY is not configured", ErrGatewayRejected)
	}
	return doJSONWithRetry(ctx, c.HTTPClient, http.MethodPost,
		c.APIBaseURL+"/v1/checkout/sessions/"+url.PathEscape(req.Reference)+"/expire",
		map[string]string{"Authorization": "Bearer " + c.SecretKey}, nil, nil)
}

// signatureValid checks the Stripe-Signature header. Stripe signs
// "<timestamp>.<payload>" with HMAC-SHA256; header carries t=..,v1=.. pairs.
func (c *StripeClient) signatureValid(payload []byte, headers map[string]string) bool {
	header := headers["Stripe-Signature"]
	if header == "" || c.WebhookSecret == "" {
		return false
	}

	var timestamp, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if timestamp == "" || v1 == "" {
		return false
	}

	signed := append([]byte(timestamp+"."), payload...)
	return VerifyHMACSHA256(signed, v1, c.WebhookSecret)
}

func stripeStatusToProviderStatus(eventType, paymentStatus string) string {
	switch strings.ToLower(eventType) {
	case "checkout.session.completed":
		if strings.EqualFold(paymentStatus, "paid") || strings.EqualFold(paymentStatus, "no_payment_required") {
			return ProviderStatusCompleted
		}
		return ProviderStatusPending
	case "checkout.session.async_payment_succeeded":
		return ProviderStatusCompleted
	case "checkout.session.async_payment_failed", "payment_intent.payment_failed":
		return ProviderStatusFailed
	case "checkout.session.expired":
		return ProviderStatusCancelled
	default:
		return ProviderStatusPending
	}
}
