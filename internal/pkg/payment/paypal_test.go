package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// paypalTestServer fakes the order API: GET returns the scripted order, a
// capture POST returns the scripted capture result.
func paypalTestServer(t *testing.T, orderJSON, captureJSON string) (*PayPalClient, *[]string) {
	t.Helper()

	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/capture"):
			w.Write([]byte(captureJSON))
		case r.Method == http.MethodGet:
			if orderJSON == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(orderJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := &PayPalClient{
		ClientID:     "id",
		ClientSecret: "secret",
		APIBaseURL:   srv.URL,
		HTTPClient:   srv.Client(),
	}
	return client, &requests
}

func TestPayPalVerifyAndNormalize(t *testing.T) {
	client, _ := paypalTestServer(t, `{
		"id": "ORDER-99",
		"status": "COMPLETED",
		"purchase_units": [{
			"amount": { "currency_code": "USD", "value": "29.99" },
			"payments": { "captures": [{ "status": "COMPLETED", "amount": { "currency_code": "USD", "value": "29.99" } }] }
		}]
	}`, "")

	raw := []byte(`{
		"id": "WH-1234",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "cap_1",
			"status": "COMPLETED",
			"supplementary_data": { "related_ids": { "order_id": "ORDER-99" } }
		}
	}`)

	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.Reference != "ORDER-99" {
		t.Fatalf("expected order reference, got %q", ev.Reference)
	}
	if ev.ProviderStatus != ProviderStatusCompleted {
		t.Fatalf("expected completed status, got %q", ev.ProviderStatus)
	}
	if !ev.Amount.Equal(decimal.RequireFromString("29.99")) {
		t.Fatalf("unexpected amount: %s", ev.Amount)
	}
	if ev.EventID != "WH-1234" {
		t.Fatalf("unexpected event id: %q", ev.EventID)
	}
	if !ev.SignatureValid {
		t.Fatalf("expected gateway-verified event to be valid")
	}
}

func TestPayPalOutcomeComesFromGatewayNotPayload(t *testing.T) {
	// The payload asserts a completed capture; the order API says the order
	// was only created. The gateway's answer wins.
	client, _ := paypalTestServer(t, `{"id":"ORDER-1","status":"CREATED","purchase_units":[{"amount":{"value":"29.99"}}]}`, "")

	raw := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"ORDER-1","status":"COMPLETED"}}`)
	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.ProviderStatus != ProviderStatusPending {
		t.Fatalf("fabricated completion must stay pending, got %q", ev.ProviderStatus)
	}
}

func TestPayPalUnknownOrderIsUnverified(t *testing.T) {
	client, _ := paypalTestServer(t, "", "")

	raw := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"ORDER-GONE","status":"COMPLETED"}}`)
	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.SignatureValid {
		t.Fatalf("order unknown to the gateway must be flagged unverified")
	}
	if ev.ProviderStatus != ProviderStatusPending {
		t.Fatalf("unverified event must stay pending, got %q", ev.ProviderStatus)
	}
}

func TestPayPalApprovedOrderGetsCaptured(t *testing.T) {
	client, requests := paypalTestServer(t,
		`{"id":"ORDER-2","status":"APPROVED","purchase_units":[{"amount":{"value":"10.00"}}]}`,
		`{"id":"ORDER-2","status":"COMPLETED","purchase_units":[{"amount":{"value":"10.00"},"payments":{"captures":[{"status":"COMPLETED","amount":{"value":"10.00"}}]}}]}`,
	)

	raw := []byte(`{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-2","status":"APPROVED"}}`)
	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.ProviderStatus != ProviderStatusCompleted {
		t.Fatalf("expected capture to complete the payment, got %q", ev.ProviderStatus)
	}
	if !ev.Amount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected capture amount, got %s", ev.Amount)
	}

	captured := false
	for _, req := range *requests {
		if strings.HasPrefix(req, "POST ") && strings.HasSuffix(req, "/capture") {
			captured = true
		}
	}
	if !captured {
		t.Fatalf("approved order was never captured: %v", *requests)
	}
}

func TestPayPalNormalizeIsDeterministic(t *testing.T) {
	client, _ := paypalTestServer(t, `{"id":"cap_2","status":"COMPLETED","purchase_units":[{"amount":{"value":"5.00"}}]}`, "")
	raw := []byte(`{"resource":{"id":"cap_2","status":"COMPLETED"}}`)

	first, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	second, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if first.EventID != second.EventID || first.Reference != second.Reference {
		t.Fatalf("normalization not deterministic: %+v vs %+v", first, second)
	}
	// No provider event id: content hash must kick in.
	if first.EventID == "" || first.EventID[:5] != "hash:" {
		t.Fatalf("expected content-hash fallback event id, got %q", first.EventID)
	}
}

func TestPayPalNormalizeRejectsMissingReference(t *testing.T) {
	client := &PayPalClient{}
	if _, err := client.VerifyAndNormalize(context.Background(), []byte(`{"event_type":"X"}`), nil); err == nil {
		t.Fatalf("expected error for payload without reference")
	}
}
