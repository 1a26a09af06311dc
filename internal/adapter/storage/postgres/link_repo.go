package postgres

import (
	"context"
	"errors"
	"fmt"

	"tradelink/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LinkRepo implements ports.LinkRepository against the execution_links
// table. Records are upserted on user_id and never physically deleted.
type LinkRepo struct {
	pool Pool
}

// NewLinkRepo creates a new LinkRepo.
func NewLinkRepo(pool Pool) *LinkRepo {
	return &LinkRepo{pool: pool}
}

// Upsert writes the secret reference for a user and clears any
// revocation. The user_id conflict key guarantees at most one record.
func (r *LinkRepo) Upsert(ctx context.Context, userID, secretRef string) (*domain.LinkRecord, error) {
	query := `INSERT INTO execution_links (user_id, secret_ref, revoked_at, created_at, updated_at)
		VALUES ($1, $2, NULL, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET secret_ref = EXCLUDED.secret_ref, revoked_at = NULL, updated_at = NOW()
		RETURNING user_id, secret_ref, revoked_at, created_at, updated_at`

	rec := &domain.LinkRecord{}
	err := r.pool.QueryRow(ctx, query, userID, secretRef).Scan(
		&rec.UserID, &rec.SecretRef, &rec.RevokedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert execution link: %w", err)
	}
	return rec, nil
}

// Revoke stamps revoked_at on the user's record. Zero rows affected
// (never linked, or already revoked) is still success: the caller only
// cares that the link is not usable afterwards.
func (r *LinkRepo) Revoke(ctx context.Context, userID string) error {
	query := `UPDATE execution_links SET revoked_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke execution link: %w", err)
	}
	return nil
}

// Get fetches the record for a user. (nil, nil) when none exists.
func (r *LinkRepo) Get(ctx context.Context, userID string) (*domain.LinkRecord, error) {
	query := `SELECT user_id, secret_ref, revoked_at, created_at, updated_at
		FROM execution_links WHERE user_id = $1`

	rec := &domain.LinkRecord{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID, &rec.SecretRef, &rec.RevokedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get execution link: %w", err)
	}
	return rec, nil
}
