package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifyHMACSHA256 checks a hex-encoded HMAC-SHA256 signature over payload.
// PayOS signs webhook bodies this way.
func VerifyHMACSHA256(payload []byte, signatureHex, secret string) bool {
	return verifyHMACHex(payload, signatureHex, secret, sha256.New)
}

// VerifyHMACSHA512 checks a hex-encoded HMAC-SHA512 signature over payload.
// VNPay secure hashes use HMAC-SHA512.
func VerifyHMACSHA512(payload []byte, signatureHex, secret string) bool {
	return verifyHMACHex(payload, signatureHex, secret, sha512.New)
}

// hmacSHA512Hex signs data with HMAC-SHA512 and returns the hex digest.
func hmacSHA512Hex(data, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMACHex(payload []byte, signatureHex, secret string, hashFunc func() hash.Hash) bool {
	sig := strings.TrimSpace(signatureHex)
	key := strings.TrimSpace(secret)
	if sig == "" || key == "" {
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(hashFunc, []byte(key))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}
