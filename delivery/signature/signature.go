package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

/* Payload signing for outbound deliveries
 * The signature is computed over the exact body bytes that go on the wire,
 * so subscribers can verify without re-serializing
 */

// Sign returns the lowercase hex HMAC-SHA256 of the payload keyed by the
// subscription secret. This is the X-Hook-Signature header value.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature using constant-time comparison.
func Verify(secret string, payload []byte, received string) bool {
	expected, err := hex.DecodeString(received)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hmac.Equal(mac.Sum(nil), expected)
}
