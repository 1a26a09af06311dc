package handler

import (
	"tradelink/internal/adapter/http/dto"
	"tradelink/internal/core/domain"
	"tradelink/internal/core/ports"
	"tradelink/pkg/apperror"
	"tradelink/pkg/response"

	"github.com/gin-gonic/gin"
)

// LinkHandler handles the link-service endpoints.
type LinkHandler struct {
	linkSvc ports.LinkService
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(linkSvc ports.LinkService) *LinkHandler {
	return &LinkHandler{linkSvc: linkSvc}
}

// Status handles GET /status.
func (h *LinkHandler) Status(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		response.Error(c, apperror.Validation("userId query parameter is required"))
		return
	}

	status, err := h.linkSvc.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.StatusResponse{Linked: status.Linked, SecretRef: status.SecretRef})
}

// Link handles POST /link.
func (h *LinkHandler) Link(c *gin.Context) {
	var req dto.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	status, err := h.linkSvc.Link(c.Request.Context(), req.UserID, domain.CredentialBundle{
		APIKey:     req.Credentials.APIKey,
		APISecret:  req.Credentials.APISecret,
		Passphrase: req.Credentials.Passphrase,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LinkResponse{Linked: status.Linked, SecretRef: status.SecretRef})
}

// Unlink handles POST /unlink.
func (h *LinkHandler) Unlink(c *gin.Context) {
	var req dto.UnlinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.linkSvc.Unlink(c.Request.Context(), req.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.UnlinkResponse{Linked: false})
}
