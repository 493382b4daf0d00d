// Package signature provides HMAC-SHA256 webhook signing and verification.
//
// The signature is computed over the exact request body bytes and carried in
// the X-Webhook-Signature header as a lowercase hex digest with no prefix.
// Receivers verify with HMAC_SHA256(secret, rawBody) == header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header is the HTTP header carrying the payload signature.
const Header = "X-Webhook-Signature"

// Sign generates the HMAC-SHA256 signature for the given payload.
// Returns the lowercase hex digest of HMAC_SHA256(secret, payload).
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
