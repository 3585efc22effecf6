package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/mapforge-io/mapforge/internal/pkg/env"
	"github.com/shopspring/decimal"
)

const defaultVNPayPayURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"

// VNPayClient builds signed redirect URLs and verifies IPN callbacks.
// VNPay has no checkout-creation API; the approval link is the signed
// payment URL itself.
type VNPayClient struct {
	TmnCode    string
	HashSecret string
	PayURL     string

	HTTPClient *http.Client
	Now        func() time.Time
}

func NewVNPayClientFromEnv() *VNPayClient {
	return &VNPayClient{
		TmnCode:    strings.TrimSpace(env.GetEnv("VNPAY_TMN_CODE", "")),
		HashSecret: strings.TrimSpace(env.GetEnv("VNPAY_HASH_SECRET", "")),
		PayURL:     strings.TrimSpace(env.GetEnv("VNPAY_PAY_URL", defaultVNPayPayURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Now: time.Now,
	}
}

func (c *VNPayClient) Gateway() string {
	return models.GatewayVNPay
}

func (c *VNPayClient) CreateApprovalLink(ctx context.Context, req CheckoutRequest) (*ApprovalResult, error) {
	if c.TmnCode == "" || c.HashSecret == "" {
		return nil, fmt.Errorf("%w: VNPAY_TMN_CODE/VNPAY_HASH_SECRET are not configured", ErrGatewayRejected)
	}

	now := c.Now().UTC()
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", c.TmnCode)
	// VNPay amounts are in minor units times 100.
	params.Set("vnp_Amount", req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0))
	params.Set("vnp_CurrCode", strings.ToUpper(req.Currency))
	params.Set("vnp_TxnRef", req.TransactionID)
	params.Set("vnp_OrderInfo", req.Description)
	params.Set("vnp_ReturnUrl", req.ReturnURL)
	params.Set("vnp_CreateDate", now.Format("20060102150405"))

	signData := canonicalQuery(params)
	params.Set("vnp_SecureHash", hmacSHA512Hex(signData, c.HashSecret))

	return &ApprovalResult{
		ApprovalURL: c.PayURL + "?" + params.Encode(),
		SessionID:   req.TransactionID,
		ProviderRef: req.TransactionID,
	}, nil
}

// VerifyAndNormalize parses a VNPay IPN callback. The payload is the raw
// query string of the IPN request.
func (c *VNPayClient) VerifyAndNormalize(ctx context.Context, payload []byte, headers map[string]string) (*NormalizedPaymentEvent, error) {
	params, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	reference := params.Get("vnp_TxnRef")
	if reference == "" {
		return nil, fmt.Errorf("%w: missing vnp_TxnRef", ErrMalformedPayload)
	}

	amount := decimal.Zero
	if raw := params.Get("vnp_Amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad vnp_Amount %q", ErrMalformedPayload, raw)
		}
		amount = parsed.Div(decimal.NewFromInt(100))
	}

	secureHash := params.Get("vnp_SecureHash")
	verification := url.Values{}
	for key, values := range params {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		for _, v := range values {
			verification.Add(key, v)
		}
	}
	signatureValid := secureHash != "" && c.HashSecret != "" &&
		strings.EqualFold(hmacSHA512Hex(canonicalQuery(verification), c.HashSecret), secureHash)

	status := ProviderStatusFailed
	switch params.Get("vnp_ResponseCode") {
	case "00":
		status = ProviderStatusCompleted
	case "24":
		status = ProviderStatusCancelled
	}

	eventID := params.Get("vnp_TransactionNo")
	if eventID == "" {
		eventID = FallbackEventID(payload)
	}

	return &NormalizedPaymentEvent{
		Gateway:        models.GatewayVNPay,
		EventID:        eventID,
		EventType:      "ipn." + status,
		Reference:      reference,
		ProviderStatus: status,
		Amount:         amount,
		SignatureValid: signatureValid,
	}, nil
}

// CancelPayment is local-only: an unpaid VNPay URL simply expires.
func (c *VNPayClient) CancelPayment(ctx context.Context, req CancelRequest) error {
	return nil
}

// canonicalQuery renders params as sorted key=value pairs, the form VNPay
// signs. Deterministic ordering keeps signatures reproducible.
func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}
