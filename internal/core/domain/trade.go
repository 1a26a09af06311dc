package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderSide is the direction of a trade request.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderRequest is a validated request to place an order on the
// downstream trading venue for a linked user.
type OrderRequest struct {
	UserID     string
	MarketID   string
	Side       OrderSide
	Size       float64
	LimitPrice *float64
	Slippage   *float64
}

// TradeAuditStatus is the recorded disposition of a trade request.
type TradeAuditStatus string

const (
	TradeAuditAccepted TradeAuditStatus = "accepted"
)

// TradeAudit is one append-only row per accepted trade request. It is
// written for post-hoc reconciliation and never consulted for
// authorization decisions; rows are never mutated after insert.
type TradeAudit struct {
	ID         uuid.UUID        `json:"id"`
	UserID     string           `json:"user_id"`
	MarketID   string           `json:"market_id"`
	Side       OrderSide        `json:"side"`
	Size       float64          `json:"size"`
	LimitPrice *float64         `json:"limit_price,omitempty"`
	Status     TradeAuditStatus `json:"status"`
	Metadata   string           `json:"metadata,omitempty"` // JSON string
	CreatedAt  time.Time        `json:"created_at"`
}
