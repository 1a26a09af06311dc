package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"tradelink/pkg/apperror"
)

// hashField is the payload field carrying the platform's signature; it
// is excluded from the signed material.
const hashField = "hash"

// PlatformVerifierService implements ports.PlatformVerifier for
// chat-platform login payloads. The platform signs a sorted key=value
// join of all payload fields, keyed by the SHA-256 of the bot token.
type PlatformVerifierService struct {
	key []byte
}

// NewPlatformVerifierService creates a verifier for the given bot token.
func NewPlatformVerifierService(botToken string) *PlatformVerifierService {
	key := sha256.Sum256([]byte(botToken))
	return &PlatformVerifierService{key: key[:]}
}

// VerifyLogin checks the payload signature and returns the asserted
// external user id. Any missing or mismatched piece yields the same
// short auth error: callers learn nothing about which check failed.
func (s *PlatformVerifierService) VerifyLogin(fields map[string]string) (string, error) {
	provided, ok := fields[hashField]
	if !ok || provided == "" {
		return "", apperror.ErrBadPlatformPayload()
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == hashField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(strings.Join(lines, "\n")))
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(expected) != len(provided) || !hmac.Equal([]byte(expected), []byte(provided)) {
		return "", apperror.ErrBadPlatformPayload()
	}

	userID := fields["id"]
	if userID == "" {
		return "", apperror.ErrBadPlatformPayload()
	}
	return userID, nil
}
