package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"tradelink/internal/adapter/http/dto"
	"tradelink/internal/adapter/linkclient"
	"tradelink/internal/core/ports"
	"tradelink/pkg/apperror"
	"tradelink/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PortalHandler bridges browser sessions to the link service. It
// verifies the platform-signed login payload, substitutes the verified
// user id, and forwards over the signed client. The link service's
// response passes through verbatim; the portal holds no session state.
type PortalHandler struct {
	verifier ports.PlatformVerifier
	links    *linkclient.Client
	log      zerolog.Logger
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(verifier ports.PlatformVerifier, links *linkclient.Client, log zerolog.Logger) *PortalHandler {
	return &PortalHandler{verifier: verifier, links: links, log: log}
}

// Status handles GET /portal/status. The platform login fields arrive
// as query parameters.
func (h *PortalHandler) Status(c *gin.Context) {
	fields := make(map[string]string)
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}

	userID, err := h.verifier.VerifyLogin(fields)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.relay(c, http.MethodGet, "/status", url.Values{"userId": {userID}}, nil)
}

// Link handles POST /portal/link.
func (h *PortalHandler) Link(c *gin.Context) {
	var req dto.PortalLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID, err := h.verifier.VerifyLogin(req.Auth)
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := json.Marshal(dto.LinkRequest{UserID: userID, Credentials: req.Credentials})
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	h.relay(c, http.MethodPost, "/link", nil, body)
}

// Unlink handles POST /portal/unlink.
func (h *PortalHandler) Unlink(c *gin.Context) {
	var req dto.PortalUnlinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID, err := h.verifier.VerifyLogin(req.Auth)
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := json.Marshal(dto.UnlinkRequest{UserID: userID})
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	h.relay(c, http.MethodPost, "/unlink", nil, body)
}

func (h *PortalHandler) relay(c *gin.Context, method, path string, query url.Values, body []byte) {
	relayed, err := h.links.Forward(c.Request.Context(), method, path, query, body)
	if err != nil {
		h.log.Error().Err(err).Str("path", path).Msg("link service unreachable")
		response.Error(c, apperror.ErrStorageFailure(err))
		return
	}

	contentType := relayed.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(relayed.Status, contentType, relayed.Body)
}
