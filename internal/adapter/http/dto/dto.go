package dto

// CredentialsDTO carries the exchange API credential triple. All three
// parts are mandatory; a partial bundle is rejected before anything is
// written to the vault.
type CredentialsDTO struct {
	APIKey     string `json:"apiKey" binding:"required,min=1,max=256"`
	APISecret  string `json:"apiSecret" binding:"required,min=1,max=256"`
	Passphrase string `json:"passphrase" binding:"required,min=1,max=256"`
}

// LinkRequest is the request body for creating or refreshing an
// execution link.
type LinkRequest struct {
	UserID      string         `json:"userId" binding:"required,max=64,safe_id"`
	Credentials CredentialsDTO `json:"credentials" binding:"required"`
}

// UnlinkRequest is the request body for revoking an execution link.
type UnlinkRequest struct {
	UserID string `json:"userId" binding:"required,max=64,safe_id"`
}

// TradeRequest is the request body for order submission.
type TradeRequest struct {
	UserID     string   `json:"userId" binding:"required,max=64,safe_id"`
	MarketID   string   `json:"marketId" binding:"required,max=128,safe_id"`
	Side       string   `json:"side" binding:"required,oneof=BUY SELL"`
	Size       float64  `json:"size" binding:"required,gt=0"`
	LimitPrice *float64 `json:"limitPrice,omitempty" binding:"omitempty,gt=0"`
	Slippage   *float64 `json:"slippage,omitempty" binding:"omitempty,gte=0,lte=1"`
}

// PortalLinkRequest is the portal-facing link request. Auth carries
// the platform-signed login fields (including its "hash" field); the
// verified user id, never a caller-supplied one, is forwarded.
type PortalLinkRequest struct {
	Auth        map[string]string `json:"auth" binding:"required"`
	Credentials CredentialsDTO    `json:"credentials" binding:"required"`
}

// PortalUnlinkRequest is the portal-facing unlink request.
type PortalUnlinkRequest struct {
	Auth map[string]string `json:"auth" binding:"required"`
}

// StatusResponse is the response body for the link status query.
type StatusResponse struct {
	Linked    bool   `json:"linked"`
	SecretRef string `json:"secretRef,omitempty"`
}

// LinkResponse is the response body for a successful link upsert.
type LinkResponse struct {
	Linked    bool   `json:"linked"`
	SecretRef string `json:"secretRef"`
}

// UnlinkResponse is the response body for a successful revocation.
type UnlinkResponse struct {
	Linked bool `json:"linked"`
}

// TradeResponse is the response body for an accepted order.
type TradeResponse struct {
	Accepted bool `json:"accepted"`
}
