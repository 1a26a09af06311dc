package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradelink/config"
	"tradelink/internal/core/ports"
	"tradelink/pkg/apperror"
	"tradelink/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header names for signed requests
	HeaderKid       = "x-kid"
	HeaderTimestamp = "x-ts"
	HeaderNonce     = "x-nonce"
	HeaderSignature = "x-sig"

	// Max clock skew between caller and service, in milliseconds
	maxClockSkewMs = 60_000

	// Nonce retention; must outlive the skew window on both sides
	nonceTTL = 120 * time.Second

	// Context keys
	CtxKid = "kid"
)

// timeNow is swapped out in tests to pin the skew window.
var timeNow = time.Now

// SignedAuth verifies the request-signing envelope for one trust
// domain. Check order: kid, header presence, timestamp window, nonce
// uniqueness, signature. Each rejection carries only a short category
// string.
func SignedAuth(
	domain config.TrustDomain,
	canon ports.Canonicalizer,
	sigSvc ports.SignatureService,
	nonces ports.NonceStore,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderKid) != domain.Kid {
			response.Error(c, apperror.ErrKidMismatch())
			c.Abort()
			return
		}

		tsStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)
		signature := c.GetHeader(HeaderSignature)
		if tsStr == "" || nonce == "" || signature == "" {
			response.Error(c, apperror.ErrMissingAuthHeaders())
			c.Abort()
			return
		}

		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.ErrTimestampOutOfWindow())
			c.Abort()
			return
		}
		drift := timeNow().UnixMilli() - ts
		if drift < 0 {
			drift = -drift
		}
		if drift > maxClockSkewMs {
			response.Error(c, apperror.ErrTimestampOutOfWindow())
			c.Abort()
			return
		}

		isNew, err := nonces.CheckAndSet(c.Request.Context(), domain.Kid, nonce, nonceTTL)
		if err != nil {
			log.Warn().Err(err).Msg("nonce store error, allowing request")
		} else if !isNew {
			response.Error(c, apperror.ErrNonceReplayed())
			c.Abort()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.Validation("cannot read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		// The body hash is recomputed from the bytes actually received;
		// a caller-supplied digest is never trusted.
		bodyHash := canon.HashBody(bodyBytes)

		// Proxies differ on whether the handler path or the pre-query
		// slice of the request URI was signed; accept either. Both
		// variants stay fully bound to method, body, time and nonce.
		if !verifyEither(sigSvc, canon, domain.Secret, c, bodyHash, tsStr, nonce, signature) {
			response.Error(c, apperror.ErrBadSignature())
			c.Abort()
			return
		}

		c.Set(CtxKid, domain.Kid)
		c.Next()
	}
}

func verifyEither(
	sigSvc ports.SignatureService,
	canon ports.Canonicalizer,
	secret string,
	c *gin.Context,
	bodyHash, ts, nonce, signature string,
) bool {
	method := c.Request.Method

	handlerPath := c.Request.URL.Path
	if sigSvc.Verify(secret, canon.Canonical(method, handlerPath, bodyHash, ts, nonce), signature) {
		return true
	}

	rawPath := c.Request.RequestURI
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		rawPath = rawPath[:i]
	}
	if rawPath == handlerPath {
		return false
	}
	return sigSvc.Verify(secret, canon.Canonical(method, rawPath, bodyHash, ts, nonce), signature)
}

// CSRFGuard requires a same-origin CSRF token header of minimum length
// on browser-facing routes.
func CSRFGuard(minLen int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(c.GetHeader("x-csrf-token")) < minLen {
			response.Error(c, apperror.ErrBadCSRFToken())
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger logs every HTTP request with latency and status.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery converts panics into generic responses. Signed surfaces
// recover to a generic 401 so an attacker cannot distinguish a crash
// from a failed check; everything else recovers to 500.
func Recovery(log zerolog.Logger, authSurface bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				if authSurface {
					c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorBody{
						ErrorCode: "AUTH_000",
						Message:   "unauthorized",
					})
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorBody{
					ErrorCode: "DEP_001",
					Message:   "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize limits the request body size. Oversized reads fail and
// the request is rejected.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
