package handler

import (
	"tradelink/internal/adapter/http/dto"
	"tradelink/internal/core/domain"
	"tradelink/internal/core/ports"
	"tradelink/pkg/apperror"
	"tradelink/pkg/response"

	"github.com/gin-gonic/gin"
)

// TradeHandler handles the trade-service endpoints.
type TradeHandler struct {
	tradeSvc ports.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc ports.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// Submit handles POST /trade.
func (h *TradeHandler) Submit(c *gin.Context) {
	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	err := h.tradeSvc.Submit(c.Request.Context(), domain.OrderRequest{
		UserID:     req.UserID,
		MarketID:   req.MarketID,
		Side:       domain.OrderSide(req.Side),
		Size:       req.Size,
		LimitPrice: req.LimitPrice,
		Slippage:   req.Slippage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TradeResponse{Accepted: true})
}
