package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header Paystack puts the body HMAC in.
const SignatureHeader = "x-paystack-signature"

// Sign returns the lowercase hex HMAC-SHA512 of body keyed with secret.
func Sign(body []byte, secret string) string {
	if secret == "" {
		return ""
	}

	h := hmac.New(sha512.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature validates the x-paystack-signature value against the raw
// request body. The body must be byte-exact; a re-encoded JSON body will
// generally not match and that is treated as a mismatch, not corrected.
func VerifySignature(body []byte, signature string, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}

	h := hmac.New(sha512.New, []byte(secret))
	h.Write(body)
	return hmac.Equal(given, h.Sum(nil))
}
