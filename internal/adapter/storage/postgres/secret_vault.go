package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradelink/internal/core/domain"
	"tradelink/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SecretVault implements ports.SecretVault on top of two tables:
// secret_resources (one row per user resource) and secret_versions
// (append-only, immutable payloads). Payloads are AES-256-GCM sealed
// before they touch the database; the plaintext bundle exists only in
// memory during AddVersion/ReadLatest.
type SecretVault struct {
	pool      Pool
	crypto    ports.CryptoService
	namespace string
	env       string
}

// NewSecretVault creates a vault scoped to one deployment environment.
func NewSecretVault(pool Pool, crypto ports.CryptoService, namespace, env string) *SecretVault {
	return &SecretVault{pool: pool, crypto: crypto, namespace: namespace, env: env}
}

// ResourceName derives the deterministic resource name for a user.
// The namespace/env prefix keeps dev and prod resources from ever
// colliding in a shared backend.
func (v *SecretVault) ResourceName(userID string) string {
	return fmt.Sprintf("%s/%s/users/%s/exchange-keys", v.namespace, v.env, userID)
}

// Ensure idempotently creates the secret resource. A concurrent create
// for the same user lands on the conflict arm and is success.
func (v *SecretVault) Ensure(ctx context.Context, userID string) (string, error) {
	name := v.ResourceName(userID)

	query := `INSERT INTO secret_resources (resource_name, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (resource_name) DO NOTHING`

	if _, err := v.pool.Exec(ctx, query, name, userID); err != nil {
		return "", fmt.Errorf("ensure secret resource: %w", err)
	}
	return name, nil
}

const (
	// addVersionRetries bounds re-allocation attempts when two writers
	// race for the same version number.
	addVersionRetries = 3

	uniqueViolation = "23505"
)

// AddVersion appends a new immutable version holding the sealed bundle.
// The version number is allocated inside the insert; when two writers
// race, the loser hits the (resource_name, version) primary key and
// simply re-allocates. Prior versions are never touched.
func (v *SecretVault) AddVersion(ctx context.Context, resourceName string, bundle domain.CredentialBundle) (string, error) {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshal credential bundle: %w", err)
	}

	sealed, err := v.crypto.Encrypt(string(payload))
	if err != nil {
		return "", fmt.Errorf("seal credential bundle: %w", err)
	}

	query := `INSERT INTO secret_versions (resource_name, version, payload_enc, created_at)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, NOW()
		FROM secret_versions WHERE resource_name = $1
		RETURNING version`

	for attempt := 0; ; attempt++ {
		var version int64
		err := v.pool.QueryRow(ctx, query, resourceName, sealed).Scan(&version)
		if err == nil {
			return fmt.Sprintf("%s/versions/%d", resourceName, version), nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && attempt < addVersionRetries {
			continue
		}
		return "", fmt.Errorf("add secret version: %w", err)
	}
}

// ReadLatest fetches and opens the newest version. An unknown resource
// or a resource with no versions yet returns (nil, nil): never-linked
// and unlinked users are a normal outcome here, not a failure.
func (v *SecretVault) ReadLatest(ctx context.Context, resourceName string) (*domain.CredentialBundle, error) {
	query := `SELECT payload_enc FROM secret_versions
		WHERE resource_name = $1 ORDER BY version DESC LIMIT 1`

	var sealed string
	err := v.pool.QueryRow(ctx, query, resourceName).Scan(&sealed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read latest secret version: %w", err)
	}

	payload, err := v.crypto.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("open credential bundle: %w", err)
	}

	bundle := &domain.CredentialBundle{}
	if err := json.Unmarshal([]byte(payload), bundle); err != nil {
		return nil, fmt.Errorf("unmarshal credential bundle: %w", err)
	}
	return bundle, nil
}
