package ports

import (
	"context"
	"time"

	"tradelink/internal/core/domain"
)

// Canonicalizer builds the deterministic byte string that request
// signatures commit to. Pure functions, no state.
type Canonicalizer interface {
	// Canonical joins METHOD, PATH, BODY_HASH, TIMESTAMP, NONCE with
	// newlines, in that fixed order. The method is upper-cased.
	Canonical(method, path, bodyHash, timestamp, nonce string) string
	// HashBody returns the hex SHA-256 of the raw body bytes, or the
	// UNSIGNED sentinel for an absent/empty body.
	HashBody(raw []byte) string
}

// SignatureService produces and checks the keyed MAC over a canonical
// string. One shared secret per trust domain, selected by kid.
type SignatureService interface {
	// Sign returns the base64url (unpadded) HMAC-SHA256 of canonical.
	Sign(secret, canonical string) string
	// Verify recomputes the signature and compares in constant time.
	// Unequal lengths reject immediately.
	Verify(secret, canonical, signature string) bool
}

// CryptoService protects credential bundles at rest inside the vault.
type CryptoService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PlatformVerifier checks a chat-platform-issued signed login payload
// and recovers the stable external user id it asserts.
type PlatformVerifier interface {
	VerifyLogin(fields map[string]string) (string, error)
}

// NonceStore tracks seen nonces to close the replay window. Nonces are
// scoped per kid so trust domains cannot consume each other's entries.
type NonceStore interface {
	// CheckAndSet atomically records the nonce. True when the nonce is
	// new, false when it was already used within the TTL.
	CheckAndSet(ctx context.Context, kid, nonce string, ttl time.Duration) (bool, error)
}

// LinkStatus is the outcome of a status lookup.
type LinkStatus struct {
	Linked    bool
	SecretRef string
}

// LinkService is the linking/unlinking/status business logic composing
// the vault and the registry.
type LinkService interface {
	Status(ctx context.Context, userID string) (*LinkStatus, error)
	Link(ctx context.Context, userID string, bundle domain.CredentialBundle) (*LinkStatus, error)
	Unlink(ctx context.Context, userID string) error
}

// TradeService gates and submits order requests.
type TradeService interface {
	// Submit checks the execution link, resolves credentials, places
	// the order downstream, and appends an audit row.
	Submit(ctx context.Context, req domain.OrderRequest) error
}

// OrderPlacer submits an order to the downstream trading venue using
// the resolved credentials. The venue itself is outside this core.
type OrderPlacer interface {
	Place(ctx context.Context, creds domain.CredentialBundle, req domain.OrderRequest) error
}
