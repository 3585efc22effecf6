package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStripeVerifyAndNormalize(t *testing.T) {
	raw := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": { "object": { "id": "cs_test_1", "amount_total": 2999, "currency": "usd", "payment_status": "paid" } }
	}`)

	client := &StripeClient{}
	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.Reference != "cs_test_1" {
		t.Fatalf("unexpected reference: %q", ev.Reference)
	}
	if ev.ProviderStatus != ProviderStatusCompleted {
		t.Fatalf("expected completed, got %q", ev.ProviderStatus)
	}
	if !ev.Amount.Equal(decimal.RequireFromString("29.99")) {
		t.Fatalf("expected minor units conversion, got %s", ev.Amount)
	}
	if ev.SignatureValid {
		t.Fatalf("expected invalid signature without webhook secret")
	}
}

func TestStripeExpiredSessionMapsToCancelled(t *testing.T) {
	raw := []byte(`{"id":"evt_2","type":"checkout.session.expired","data":{"object":{"id":"cs_2"}}}`)
	client := &StripeClient{}
	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.ProviderStatus != ProviderStatusCancelled {
		t.Fatalf("expected cancelled, got %q", ev.ProviderStatus)
	}
}

func TestVNPayVerifyAndNormalize(t *testing.T) {
	client := &VNPayClient{TmnCode: "TEST", HashSecret: "secret"}

	params := url.Values{}
	params.Set("vnp_TxnRef", "tx-123")
	params.Set("vnp_Amount", "2999000")
	params.Set("vnp_ResponseCode", "00")
	params.Set("vnp_TransactionNo", "14400996")
	params.Set("vnp_SecureHash", hmacSHA512Hex(canonicalQuery(params), "secret"))

	ev, err := client.VerifyAndNormalize(context.Background(), []byte(params.Encode()), nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.Reference != "tx-123" {
		t.Fatalf("unexpected reference: %q", ev.Reference)
	}
	if !ev.SignatureValid {
		t.Fatalf("expected valid signature")
	}
	if ev.ProviderStatus != ProviderStatusCompleted {
		t.Fatalf("expected completed, got %q", ev.ProviderStatus)
	}
	if !ev.Amount.Equal(decimal.RequireFromString("29990")) {
		t.Fatalf("expected amount / 100, got %s", ev.Amount)
	}
}

func TestVNPayTamperedSignatureDetected(t *testing.T) {
	client := &VNPayClient{TmnCode: "TEST", HashSecret: "secret"}

	params := url.Values{}
	params.Set("vnp_TxnRef", "tx-123")
	params.Set("vnp_Amount", "100000")
	params.Set("vnp_ResponseCode", "00")
	params.Set("vnp_SecureHash", hmacSHA512Hex(canonicalQuery(params), "secret"))
	// Attacker bumps the amount after signing.
	params.Set("vnp_Amount", "1")

	ev, err := client.VerifyAndNormalize(context.Background(), []byte(params.Encode()), nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.SignatureValid {
		t.Fatalf("expected tampered payload to fail signature check")
	}
}

func TestPayOSVerifyAndNormalize(t *testing.T) {
	client := &PayOSClient{ChecksumKey: "checksum"}
	raw := []byte(`{"code":"00","desc":"success","signature":"","data":{"orderCode":4821,"amount":2999,"reference":"ref-1","code":"00"}}`)

	ev, err := client.VerifyAndNormalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	if ev.Reference != "4821" {
		t.Fatalf("unexpected reference: %q", ev.Reference)
	}
	if ev.ProviderStatus != ProviderStatusCompleted {
		t.Fatalf("expected completed, got %q", ev.ProviderStatus)
	}
	if ev.SignatureValid {
		t.Fatalf("expected empty signature to be invalid")
	}
}
