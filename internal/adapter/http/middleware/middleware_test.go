package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"tradelink/config"
	"tradelink/internal/core/ports/mocks"
	"tradelink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

var (
	linkDomain  = config.TrustDomain{Kid: "portal-link-v1", Secret: "link-secret"}
	tradeDomain = config.TrustDomain{Kid: "bot-trade-v1", Secret: "trade-secret"}
)

func newSignedRouter(t *testing.T, domain config.TrustDomain, nonceNew bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	nonces := mocks.NewMockNonceStore(ctrl)
	nonces.EXPECT().
		CheckAndSet(gomock.Any(), domain.Kid, gomock.Any(), gomock.Any()).
		Return(nonceNew, nil).
		AnyTimes()

	r := gin.New()
	r.Use(SignedAuth(domain, service.NewCanonicalService(), service.NewHMACSignatureService(), nonces, zerolog.Nop()))
	r.POST("/link", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/status", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

// signRequest sets the four auth headers for the given envelope.
func signRequest(req *http.Request, domain config.TrustDomain, path string, body []byte, ts int64, nonce string) {
	canon := service.NewCanonicalService()
	sig := service.NewHMACSignatureService()

	canonical := canon.Canonical(req.Method, path, canon.HashBody(body), strconv.FormatInt(ts, 10), nonce)
	req.Header.Set(HeaderKid, domain.Kid)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, sig.Sign(domain.Secret, canonical))
}

func TestSignedAuth_ValidRequest(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	body := []byte(`{"userId":"123"}`)
	req := httptest.NewRequest(http.MethodPost, "/link", bytes.NewReader(body))
	signRequest(req, linkDomain, "/link", body, time.Now().UnixMilli(), "n-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignedAuth_KidMismatch(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	signRequest(req, linkDomain, "/status", nil, time.Now().UnixMilli(), "n-1")
	req.Header.Set(HeaderKid, "bot-trade-v1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "kid mismatch")
}

func TestSignedAuth_MissingHeaders(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(HeaderKid, linkDomain.Kid)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing auth headers")
}

func TestSignedAuth_NonNumericTimestamp(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	signRequest(req, linkDomain, "/status", nil, time.Now().UnixMilli(), "n-1")
	req.Header.Set(HeaderTimestamp, "not-a-number")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ts out of window")
}

func TestSignedAuth_WindowBoundary(t *testing.T) {
	// Pin the verifier's clock so the edge cases are exact.
	fixed := time.Now()
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = time.Now })

	cases := []struct {
		name   string
		offset int64
		want   int
	}{
		{"exactly at window edge", -60_000, http.StatusOK},
		{"one ms past window", -60_001, http.StatusUnauthorized},
		{"future within window", 30_000, http.StatusOK},
		{"future past window", 60_001, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newSignedRouter(t, linkDomain, true)

			ts := fixed.UnixMilli() + tc.offset
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			signRequest(req, linkDomain, "/status", nil, ts, fmt.Sprintf("n-%d", tc.offset))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestSignedAuth_NonceReplayed(t *testing.T) {
	r := newSignedRouter(t, linkDomain, false)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	signRequest(req, linkDomain, "/status", nil, time.Now().UnixMilli(), "seen-before")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "nonce replayed")
}

func TestSignedAuth_TamperedBody(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	signed := []byte(`{"userId":"123"}`)
	sent := []byte(`{"userId":"124"}`)
	req := httptest.NewRequest(http.MethodPost, "/link", bytes.NewReader(sent))
	signRequest(req, linkDomain, "/link", signed, time.Now().UnixMilli(), "n-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "bad signature")
}

func TestSignedAuth_CrossDomainSignatureRejected(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	// Envelope signed with the trade-domain secret but presented with
	// the link-domain kid.
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	signRequest(req, tradeDomain, "/status", nil, time.Now().UnixMilli(), "n-1")
	req.Header.Set(HeaderKid, linkDomain.Kid)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignedAuth_QueryStringPathVariant(t *testing.T) {
	r := newSignedRouter(t, linkDomain, true)

	// Signed over the pre-query slice; the handler path also matches
	// once the query string is stripped.
	req := httptest.NewRequest(http.MethodGet, "/status?userId=123", nil)
	signRequest(req, linkDomain, "/status", nil, time.Now().UnixMilli(), "n-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CSRFGuard(16))
	r.POST("/portal/link", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Absent token
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/portal/link", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Too short
	req := httptest.NewRequest(http.MethodPost, "/portal/link", nil)
	req.Header.Set("x-csrf-token", "short")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Long enough
	req = httptest.NewRequest(http.MethodPost, "/portal/link", nil)
	req.Header.Set("x-csrf-token", "0123456789abcdef")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_AuthSurfaceRecoversTo401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zerolog.Nop(), true))
	r.GET("/boom", func(c *gin.Context) { panic("unexpected") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "unexpected")
}

func TestRecovery_PlainSurfaceRecoversTo500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zerolog.Nop(), false))
	r.GET("/boom", func(c *gin.Context) { panic("unexpected") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
