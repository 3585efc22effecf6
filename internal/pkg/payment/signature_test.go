package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestVerifyHMACSHA256(t *testing.T) {
	payload := []byte(`{"orderCode":1}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyHMACSHA256(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if VerifyHMACSHA256(payload, validSig, "other-secret") {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyHMACSHA256(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyHMACSHA256(payload, "", secret) {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestVerifyHMACSHA512RoundTrip(t *testing.T) {
	data := "vnp_Amount=100&vnp_TxnRef=tx"
	sig := hmacSHA512Hex(data, "secret")

	if !VerifyHMACSHA512([]byte(data), sig, "secret") {
		t.Fatalf("expected signature to validate")
	}
	if VerifyHMACSHA512([]byte(data+"x"), sig, "secret") {
		t.Fatalf("expected modified data to fail")
	}
}
