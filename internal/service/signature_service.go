package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// HMACSignatureService implements ports.SignatureService using
// HMAC-SHA256 with base64url (unpadded) output.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of canonical using secret.
// Returns the base64url-encoded signature without padding.
func (s *HMACSignatureService) Sign(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks signature against HMAC-SHA256(secret, canonical).
// Length mismatch rejects before any byte comparison; equal lengths
// compare in constant time.
func (s *HMACSignatureService) Verify(secret, canonical, signature string) bool {
	expected := s.Sign(secret, canonical)
	if len(expected) != len(signature) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
