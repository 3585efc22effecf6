package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/env"
	"github.com/shopspring/decimal"
)

const defaultPayOSAPIBaseURL = "https://api-merchant.payos.vn"

type PayOSClient struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	APIBaseURL  string

	HTTPClient *http.Client
}

func NewPayOSClientFromEnv() *PayOSClient {
	return &PayOSClient{
		ClientID:    strings.TrimSpace(env.GetEnv("PAYOS_CLIENT_ID", "")),
		APIKey:      strings.TrimSpace(env.GetEnv("PAYOS_API_KEY", "")),
		ChecksumKey: strings.TrimSpace(env.GetEnv("PAYOS_CHECKSUM_KEY", "")),
		APIBaseURL:  strings.TrimRight(env.GetEnv("PAYOS_API_BASE_URL", defaultPayOSAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *PayOSClient) Gateway() string {
	return models.GatewayPayOS
}

type payosCreateRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
}

type payosCreateResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL   string `json:"checkoutUrl"`
		OrderCode     int64  `json:"orderCode"`
		PaymentLinkID string `json:"paymentLinkId"`
	} `json:"data"`
}

func (c *PayOSClient) CreateApprovalLink(ctx context.Context, req CheckoutRequest) (*ApprovalResult, error) {
	if c.ClientID == "" || c.APIKey == "" {
		return nil, fmt.Errorf("%w: PAYOS_CLIENT_ID/PAYOS_API_KEY are not configured", ErrGatewayRejected)
	}

	// PayOS order codes are numeric; derive one from the timestamp.
	orderCode := time.Now().UnixMilli()

	body := payosCreateRequest{
		OrderCode:   orderCode,
		Amount:      req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	}

	var resp payosCreateResponse
	err := doJSONWithRetry(ctx, c.HTTPClient, http.MethodPost, c.APIBaseURL+"/v2/payment-requests",
		map[string]string{"x-client-id": c.ClientID, "x-api-key": c.APIKey}, body, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != "00" {
		return nil, fmt.Errorf("%w: payos code %s: %s", ErrGatewayRejected, resp.Code, resp.Desc)
	}
	if resp.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: checkout url missing", ErrMalformedPayload)
	}

	return &ApprovalResult{
		ApprovalURL: resp.Data.CheckoutURL,
		SessionID:   strconv.FormatInt(resp.Data.OrderCode, 10),
		ProviderRef: resp.Data.PaymentLinkID,
	}, nil
}

type payosWebhookPayload struct {
	Code      string `json:"code"`
	Desc      string `json:"desc"`
	Signature string `json:"signature"`
	Data      struct {
		OrderCode int64  `json:"orderCode"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
		Code      string `json:"code"`
	} `json:"data"`
}

func (c *PayOSClient) VerifyAndNormalize(ctx context.Context, payload []byte, headers map[string]string) (*NormalizedPaymentEvent, error) {
	var ev payosWebhookPayload
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if ev.Data.OrderCode == 0 {
		return nil, fmt.Errorf("%w: missing order code", ErrMalformedPayload)
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	status := ProviderStatusFailed
	if ev.Code == "00" && ev.Data.Code == "00" {
		status = ProviderStatusCompleted
	}

	eventID := ev.Data.Reference
	if eventID == "" {
		eventID = FallbackEventID(payload)
	}

	return &NormalizedPaymentEvent{
		Gateway:        models.GatewayPayOS,
		EventID:        eventID,
		EventType:      "payment." + status,
		Reference:      strconv.FormatInt(ev.Data.OrderCode, 10),
		ProviderStatus: status,
		Amount:         decimal.New(ev.Data.Amount, -2),
		SignatureValid: VerifyHMACSHA256(data, ev.Signature, c.ChecksumKey),
	}, nil
}

func (c *PayOSClient) CancelPayment(ctx context.Context, req CancelRequest) error {
	if c.ClientID == "" || c.APIKey == "" {
		return fmt.Errorf("%w: PAYOS_CLIENT_ID/PAYOS_API_KEY are not configured", ErrGatewayRejected)
	}
	body := map[string]string{"cancellationReason": req.Reason}
	return doJSONWithRetry(ctx, c.HTTPClient, http.MethodPost,
		c.APIBaseURL+"/v2/payment-requests/"+req.Reference+"/cancel",
		map[string]string{"x-client-id": c.ClientID, "x-api-key": c.APIKey}, body, nil)
}
