// Package webhook implements the inbound OpenPhone webhook: signature
// verification, event dispatch, and the contact/activity flow against the CRM.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var (
	// ErrMissingSignature is returned when no signature header was provided.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMalformedSignature is returned when the header does not split into
	// at least four semicolon-delimited parts.
	ErrMalformedSignature = errors.New("malformed signature header")
	// ErrSignatureMismatch is returned when the computed digest does not
	// match the received one.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Verifier authenticates OpenPhone webhook deliveries. The signature header
// has the form "v;id;timestamp;hash" where hash is the base64 HMAC-SHA256 of
// "timestamp.body" keyed with the shared signing secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier from the configured signing secret. Secrets
// whose length matches a base64-encoded 32- or 64-byte key (44 or 88 chars)
// are decoded before use; anything else is treated as raw key bytes. An empty
// secret disables verification entirely.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return &Verifier{}
	}
	if len(secret) == 44 || len(secret) == 88 {
		if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil {
			return &Verifier{secret: decoded}
		}
	}
	return &Verifier{secret: []byte(secret)}
}

// Enabled reports whether a signing secret is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify checks the signature header against the exact raw request body
// bytes. The body must not be re-serialized before verification or the
// digest will not match. Returns nil when verification is disabled.
func (v *Verifier) Verify(header string, body []byte) error {
	if !v.Enabled() {
		return nil
	}
	if header == "" {
		return ErrMissingSignature
	}

	parts := strings.Split(header, ";")
	if len(parts) < 4 {
		return ErrMalformedSignature
	}

	computed := v.sign(parts[2], body)
	if !hmac.Equal([]byte(computed), []byte(parts[3])) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the signature header value for a timestamp and body. Used by
// tests and local tooling to produce valid deliveries.
func (v *Verifier) Sign(timestamp string, body []byte) string {
	return "hmac;1;" + timestamp + ";" + v.sign(timestamp, body)
}

func (v *Verifier) sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
