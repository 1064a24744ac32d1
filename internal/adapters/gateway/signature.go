package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the gateway's signature of a webhook body
const SignatureHeader = "X-Gateway-Signature"

const signaturePrefix = "sha256="

// CalculateSignature returns the hex-encoded HMAC-SHA256 of the payload under the key
func CalculateSignature(key string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateSignature checks a webhook signature in constant time.
// Both the bare hex form and "sha256=<hex>" are accepted.
func ValidateSignature(key string, payload []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix)
	if key == "" || signature == "" {
		return false
	}
	expected := CalculateSignature(key, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
