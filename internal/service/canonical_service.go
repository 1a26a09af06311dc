package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// UnsignedBody is the BODY_HASH sentinel for requests without a body.
const UnsignedBody = "UNSIGNED"

// CanonicalService implements ports.Canonicalizer. The canonical string
// is the exact byte sequence that is MAC'd; verifiers rebuild it from
// the request they actually received and never trust a caller-supplied
// digest.
type CanonicalService struct{}

// NewCanonicalService creates a new CanonicalService.
func NewCanonicalService() *CanonicalService {
	return &CanonicalService{}
}

// Canonical joins the five signed fields with newlines in fixed order:
// METHOD, PATH, BODY_HASH, TIMESTAMP, NONCE.
func (s *CanonicalService) Canonical(method, path, bodyHash, timestamp, nonce string) string {
	return strings.Join([]string{
		strings.ToUpper(method),
		path,
		bodyHash,
		timestamp,
		nonce,
	}, "\n")
}

// HashBody returns the hex SHA-256 digest of the raw body bytes.
// An absent body, an empty body, or the empty-object/null JSON forms
// all map to the UNSIGNED sentinel so that clients that skip body
// hashing for bodiless calls interoperate with proxies that inject
// an empty payload.
func (s *CanonicalService) HashBody(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		return UnsignedBody
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
