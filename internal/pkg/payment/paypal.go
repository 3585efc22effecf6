package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/env"
	"github.com/shopspring/decimal"
)

const defaultPayPalAPIBaseURL = "https://api-m.sandbox.paypal.com"

type PayPalClient struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string

	HTTPClient *http.Client
}

func NewPayPalClientFromEnv() *PayPalClient {
	return &PayPalClient{
		ClientID:     strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("PAYPAL_CLIENT_SECRET", "")),
		APIBaseURL:   strings.TrimRight(env.GetEnv("PAYPAL_API_BASE_URL", defaultPayPalAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *PayPalClient) Gateway() string {
	return models.GatewayPayPal
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
	AppContext    paypalAppContext     `json:"application_context"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalAppContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (c *PayPalClient) CreateApprovalLink(ctx context.Context, req CheckoutRequest) (*ApprovalResult, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, fmt.Errorf("%w: PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET are not configured", ErrGatewayRejected)
	}

	order := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.TransactionID,
			Description: req.Description,
			Amount: paypalAmount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        req.Amount.StringFixed(2),
			},
		}},
		AppContext: paypalAppContext{
			ReturnURL: req.ReturnURL,
			CancelURL: req.CancelURL,
		},
	}

	var resp paypalOrderResponse
	err := doJSONWithRetry(ctx, c.HTTPClient, http.MethodPost, c.APIBaseURL+"/v2/checkout/orders",
		map[string]string{"Authorization": c.basicAuth()}, order, &resp)
	if err != nil {
		return nil, err
	}

	approvalURL := ""
	for _, link := range resp.Links {
		if strings.EqualFold(link.Rel, "approve") {
			approvalURL = link.Href
			break
		}
	}
	if approvalURL == "" {
		return nil, fmt.Errorf("%w: approval link missing in order response", ErrMalformedPayload)
	}

	return &ApprovalResult{
		ApprovalURL: approvalURL,
		SessionID:   resp.ID,
		ProviderRef: resp.ID,
	}, nil
}

type paypalWebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		Status            string `json:"status"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

type paypalOrderDetail struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount   paypalAmount `json:"amount"`
		Payments struct {
			Captures []struct {
				Status string       `json:"status"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// outcome reports the authoritative status and amount of an order, preferring
// the capture over the order shell once one exists.
func (o *paypalOrderDetail) outcome() (string, decimal.Decimal) {
	status := o.Status
	amount := decimal.Zero
	if len(o.PurchaseUnits) > 0 {
		unit := o.PurchaseUnits[0]
		if v, err := decimal.NewFromString(unit.Amount.Value); err == nil {
			amount = v
		}
		if len(unit.Payments.Captures) > 0 {
			capture := unit.Payments.Captures[0]
			status = capture.Status
			if v, err := decimal.NewFromString(capture.Amount.Value); err == nil {
				amount = v
			}
		}
	}
	return status, amount
}

// VerifyAndNormalize parses a PayPal webhook event or an executed-order
// confirmation payload. PayPal signs neither flow with a shared secret we can
// check locally, so the payload is only trusted for the order reference: the
// outcome and amount are re-read from PayPal's order API, and an order PayPal
// does not know about is flagged unverified.
func (c *PayPalClient) VerifyAndNormalize(ctx context.Context, payload []byte, headers map[string]string) (*NormalizedPaymentEvent, error) {
	var ev paypalWebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	reference := ev.Resource.SupplementaryData.RelatedIDs.OrderID
	if reference == "" {
		reference = ev.Resource.ID
	}
	if reference == "" {
		return nil, fmt.Errorf("%w: missing order reference", ErrMalformedPayload)
	}

	eventID := ev.ID
	if eventID == "" {
		eventID = FallbackEventID(payload)
	}

	event := &NormalizedPaymentEvent{
		Gateway:   models.GatewayPayPal,
		EventID:   eventID,
		EventType: ev.EventType,
		Reference: reference,
		Amount:    decimal.Zero,
	}

	order, err := c.verifyOrder(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		// PayPal rejected the lookup: the order does not exist or is not
		// ours. Record the event, but nothing downstream may act on it.
		event.ProviderStatus = ProviderStatusPending
		event.SignatureValid = false
		return event, nil
	}

	status, amount := order.outcome()
	event.ProviderStatus = paypalStatusToProviderStatus(status)
	event.Amount = amount
	event.SignatureValid = true
	return event, nil
}

// verifyOrder re-reads an order from PayPal and, when the buyer has approved
// it but no money moved yet, captures it. The confirm flow lands here with an
// APPROVED order; webhooks land here after PayPal captured on its own.
func (c *PayPalClient) verifyOrder(ctx context.Context, orderID string) (*paypalOrderDetail, error) {
	auth := map[string]string{"Authorization": c.basicAuth()}

	var order paypalOrderDetail
	err := doJSONWithRetry(ctx, c.HTTPClient, http.MethodGet,
		c.APIBaseURL+"/v2/checkout/orders/"+url.PathEscape(orderID), auth, nil, &order)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(order.Status, "APPROVED") {
		return &order, nil
	}

	var captured paypalOrderDetail
	err = doJSONWithRetry(ctx, c.HTTPClient, http.MethodPost,
		c.APIBaseURL+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", auth, nil, &captured)
	if err != nil {
		return nil, err
	}
	return &captured, nil
}

// CancelPayment is a local no-op for PayPal: an unapproved order simply
// expires, there is no voiding API for this flow.
func (c *PayPalClient) CancelPayment(ctx context.Context, req CancelRequest) error {
	return nil
}

func (c *PayPalClient) basicAuth() string {
	creds := base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	return "Basic " + creds
}

// paypalStatusToProviderStatus maps the order or capture status PayPal
// reports. The inbound event type never feeds this: only what PayPal's own
// record says may decide an outcome.
func paypalStatusToProviderStatus(status string) string {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return ProviderStatusCompleted
	case "DENIED", "DECLINED", "FAILED":
		return ProviderStatusFailed
	case "VOIDED":
		return ProviderStatusCancelled
	default:
		return ProviderStatusPending
	}
}
