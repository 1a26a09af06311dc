package service

import (
	"context"
	"encoding/json"
	"time"

	"tradelink/internal/core/domain"
	"tradelink/internal/core/ports"
	"tradelink/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TradeServiceImpl implements ports.TradeService. The authorization
// gate is strict: no code path reaches the vault or the venue without
// first observing an active link record.
type TradeServiceImpl struct {
	links  ports.LinkRepository
	vault  ports.SecretVault
	audits ports.TradeAuditRepository
	placer ports.OrderPlacer
	log    zerolog.Logger
}

// NewTradeService creates a new TradeServiceImpl.
func NewTradeService(
	links ports.LinkRepository,
	vault ports.SecretVault,
	audits ports.TradeAuditRepository,
	placer ports.OrderPlacer,
	log zerolog.Logger,
) *TradeServiceImpl {
	return &TradeServiceImpl{links: links, vault: vault, audits: audits, placer: placer, log: log}
}

// Submit gates the request on the link registry, resolves the latest
// credential version, places the order downstream, and appends an
// audit row. Venue outcome does not change acceptance at this layer;
// richer order-lifecycle tracking lives downstream.
func (s *TradeServiceImpl) Submit(ctx context.Context, req domain.OrderRequest) error {
	rec, err := s.links.Get(ctx, req.UserID)
	if err != nil {
		return apperror.ErrStorageFailure(err)
	}
	if !rec.Active() {
		return apperror.ErrLinkMissingOrRevoked()
	}

	creds, err := s.vault.ReadLatest(ctx, rec.SecretRef)
	if err != nil {
		return apperror.ErrStorageFailure(err)
	}
	if creds == nil {
		return apperror.ErrSecretMissing()
	}

	venueErr := s.placer.Place(ctx, *creds, req)
	if venueErr != nil {
		s.log.Warn().
			Err(venueErr).
			Str("user_id", req.UserID).
			Str("market_id", req.MarketID).
			Msg("venue submission failed")
	}

	if err := s.audits.Create(ctx, buildAudit(req, venueErr)); err != nil {
		return apperror.ErrStorageFailure(err)
	}

	return nil
}

func buildAudit(req domain.OrderRequest, venueErr error) *domain.TradeAudit {
	meta := map[string]interface{}{}
	if req.Slippage != nil {
		meta["slippage"] = *req.Slippage
	}
	if venueErr != nil {
		meta["venue_error"] = venueErr.Error()
	}
	metaJSON, _ := json.Marshal(meta)

	return &domain.TradeAudit{
		ID:         uuid.New(),
		UserID:     req.UserID,
		MarketID:   req.MarketID,
		Side:       req.Side,
		Size:       req.Size,
		LimitPrice: req.LimitPrice,
		Status:     domain.TradeAuditAccepted,
		Metadata:   string(metaJSON),
		CreatedAt:  time.Now().UTC(),
	}
}
