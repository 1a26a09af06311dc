package service

import (
	"context"

	"tradelink/internal/core/domain"
	"tradelink/internal/core/ports"
	"tradelink/pkg/apperror"

	"github.com/rs/zerolog"
)

// LinkServiceImpl implements ports.LinkService by composing the secret
// vault and the link registry. Credential bundles pass through here on
// their way into the vault and are never logged or echoed back.
type LinkServiceImpl struct {
	vault ports.SecretVault
	links ports.LinkRepository
	log   zerolog.Logger
}

// NewLinkService creates a new LinkServiceImpl.
func NewLinkService(vault ports.SecretVault, links ports.LinkRepository, log zerolog.Logger) *LinkServiceImpl {
	return &LinkServiceImpl{vault: vault, links: links, log: log}
}

// Status reports whether the user holds an active execution link.
// Linked is true only when a record exists and is not revoked; the
// secret reference is reported whenever a record exists at all.
func (s *LinkServiceImpl) Status(ctx context.Context, userID string) (*ports.LinkStatus, error) {
	rec, err := s.links.Get(ctx, userID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(err)
	}
	if rec == nil {
		return &ports.LinkStatus{Linked: false}, nil
	}
	return &ports.LinkStatus{Linked: rec.Active(), SecretRef: rec.SecretRef}, nil
}

// Link stores a new credential version and activates the link:
// ensure the secret resource, append a version, upsert the registry.
// Re-linking an existing user appends a fresh version and clears any
// revocation; exactly one registry record remains.
func (s *LinkServiceImpl) Link(ctx context.Context, userID string, bundle domain.CredentialBundle) (*ports.LinkStatus, error) {
	name, err := s.vault.Ensure(ctx, userID)
	if err != nil {
		return nil, apperror.ErrStorageFailure(err)
	}

	versionRef, err := s.vault.AddVersion(ctx, name, bundle)
	if err != nil {
		return nil, apperror.ErrStorageFailure(err)
	}

	rec, err := s.links.Upsert(ctx, userID, name)
	if err != nil {
		return nil, apperror.ErrStorageFailure(err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("version_ref", versionRef).
		Msg("execution link established")

	return &ports.LinkStatus{Linked: true, SecretRef: rec.SecretRef}, nil
}

// Unlink revokes the link. The secret resource and its versions stay in
// the vault for audit and rollback; only the registry flag changes.
// Revoking a never-linked user is a silent success.
func (s *LinkServiceImpl) Unlink(ctx context.Context, userID string) error {
	if err := s.links.Revoke(ctx, userID); err != nil {
		return apperror.ErrStorageFailure(err)
	}

	s.log.Info().Str("user_id", userID).Msg("execution link revoked")
	return nil
}
