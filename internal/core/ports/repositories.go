package ports

import (
	"context"

	"tradelink/internal/core/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks tradelink/internal/core/ports LinkRepository,SecretVault,TradeAuditRepository,OrderPlacer,NonceStore,CryptoService,LinkService,TradeService,PlatformVerifier

// LinkRepository is the durable userId -> LinkRecord registry.
// Absence is a normal outcome: Get returns (nil, nil) when no record
// exists, and callers branch on that rather than on error text.
type LinkRepository interface {
	// Upsert sets the secret reference and clears any revocation.
	// Conflict key is the user id — at most one live record per user.
	Upsert(ctx context.Context, userID, secretRef string) (*domain.LinkRecord, error)
	// Revoke marks the link unusable for trading. Revoking an
	// already-revoked or never-linked user succeeds silently.
	Revoke(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*domain.LinkRecord, error)
}

// SecretVault manages per-user credential resources and their
// append-only versions. The method set mirrors external secret-manager
// semantics (create, add version, access latest version) so a cloud
// adapter can replace the bundled one without touching callers.
type SecretVault interface {
	// ResourceName derives the deterministic, environment-namespaced
	// resource name for a user. Pure; no I/O.
	ResourceName(userID string) string
	// Ensure idempotently creates the resource. A concurrent create
	// conflict is success, not an error.
	Ensure(ctx context.Context, userID string) (string, error)
	// AddVersion appends a new immutable version holding the bundle.
	// Prior versions are never overwritten or deleted.
	AddVersion(ctx context.Context, resourceName string, bundle domain.CredentialBundle) (string, error)
	// ReadLatest fetches the most recent version. (nil, nil) when the
	// resource or version does not exist.
	ReadLatest(ctx context.Context, resourceName string) (*domain.CredentialBundle, error)
}

// TradeAuditRepository appends trade audit rows. Rows are never updated.
type TradeAuditRepository interface {
	Create(ctx context.Context, audit *domain.TradeAudit) error
}
