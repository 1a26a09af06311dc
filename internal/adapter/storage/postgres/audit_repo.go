package postgres

import (
	"context"
	"fmt"

	"tradelink/internal/core/domain"
)

// TradeAuditRepo implements ports.TradeAuditRepository. The table is
// append-only; there is deliberately no update or delete here.
type TradeAuditRepo struct {
	pool Pool
}

// NewTradeAuditRepo creates a new TradeAuditRepo.
func NewTradeAuditRepo(pool Pool) *TradeAuditRepo {
	return &TradeAuditRepo{pool: pool}
}

// Create inserts one audit row for an accepted trade request.
func (r *TradeAuditRepo) Create(ctx context.Context, a *domain.TradeAudit) error {
	query := `INSERT INTO trade_audit (id, user_id, market_id, side, size, limit_price, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.MarketID, string(a.Side), a.Size,
		a.LimitPrice, string(a.Status), a.Metadata, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade audit: %w", err)
	}
	return nil
}
