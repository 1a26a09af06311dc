package handler

import (
	"tradelink/config"
	"tradelink/internal/adapter/http/middleware"
	"tradelink/internal/adapter/linkclient"
	redisStore "tradelink/internal/adapter/storage/redis"
	"tradelink/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LinkRouterDeps holds the link-service wiring.
type LinkRouterDeps struct {
	LinkSvc        ports.LinkService
	Canon          ports.Canonicalizer
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	Domain         config.TrustDomain
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// TradeRouterDeps holds the trade-service wiring.
type TradeRouterDeps struct {
	TradeSvc       ports.TradeService
	Canon          ports.Canonicalizer
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	Domain         config.TrustDomain
	RateLimitStore *redisStore.RateLimitStore
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// PortalRouterDeps holds the portal-bridge wiring.
type PortalRouterDeps struct {
	Verifier       ports.PlatformVerifier
	LinkClient     *linkclient.Client
	CSRFMinLen     int
	RateLimitStore *redisStore.RateLimitStore
	Logger         zerolog.Logger
}

// rl returns rate limiter middleware for the group, or a noop when the
// store is absent or the group has no rule.
func rl(store *redisStore.RateLimitStore, group string, log zerolog.Logger) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	rule, ok := middleware.DefaultRateLimitRules()[group]
	if !ok {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimiter(store, group, rule, log)
}

// SetupLinkRouter initialises the link-service engine. Every business
// route sits behind the portal↔link signing envelope; a failure inside
// the envelope check recovers to 401.
func SetupLinkRouter(deps LinkRouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger, true))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/healthz", Liveness)
	r.GET("/readyz", Readiness(deps.HealthCheckers...))

	signed := middleware.SignedAuth(deps.Domain, deps.Canon, deps.SigSvc, deps.NonceStore, deps.Logger)
	h := NewLinkHandler(deps.LinkSvc)

	api := r.Group("/", signed)
	{
		api.GET("/status", rl(deps.RateLimitStore, "status", deps.Logger), h.Status)
		api.POST("/link", rl(deps.RateLimitStore, "link", deps.Logger), h.Link)
		api.POST("/unlink", rl(deps.RateLimitStore, "unlink", deps.Logger), h.Unlink)
	}

	return r
}

// SetupTradeRouter initialises the trade-service engine.
func SetupTradeRouter(deps TradeRouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger, true))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/healthz", Liveness)
	r.GET("/readyz", Readiness(deps.HealthCheckers...))

	signed := middleware.SignedAuth(deps.Domain, deps.Canon, deps.SigSvc, deps.NonceStore, deps.Logger)
	h := NewTradeHandler(deps.TradeSvc)

	r.POST("/trade", signed, rl(deps.RateLimitStore, "trade", deps.Logger), h.Submit)

	return r
}

// SetupPortalRouter initialises the portal-bridge engine. The portal
// is browser-facing: no signing envelope inbound, CSRF on mutations,
// platform payload verification inside the handlers.
func SetupPortalRouter(deps PortalRouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger, false))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/healthz", Liveness)

	h := NewPortalHandler(deps.Verifier, deps.LinkClient, deps.Logger)
	limit := rl(deps.RateLimitStore, "portal", deps.Logger)
	csrf := middleware.CSRFGuard(deps.CSRFMinLen)

	// The token is required on every portal call, reads included.
	portal := r.Group("/portal", csrf)
	{
		portal.GET("/status", limit, h.Status)
		portal.POST("/link", limit, h.Link)
		portal.POST("/unlink", limit, h.Unlink)
	}

	return r
}
