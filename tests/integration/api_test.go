package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tradelink/config"
	httpHandler "tradelink/internal/adapter/http/handler"
	"tradelink/internal/adapter/linkclient"
	redisStorage "tradelink/internal/adapter/storage/redis"
	"tradelink/internal/core/ports"
	"tradelink/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp runs the link service, trade service, and portal bridge as
// real HTTP servers sharing in-memory storage and a miniredis nonce
// store. Everything except postgres and the venue is the production
// wiring.

const (
	testBotToken = "123456:test-bot-token"
)

var (
	linkDomain  = config.TrustDomain{Kid: "portal-link-v1", Secret: "integration-link-secret"}
	tradeDomain = config.TrustDomain{Kid: "bot-trade-v1", Secret: "integration-trade-secret"}
)

type testApp struct {
	linkSrv   *httptest.Server
	tradeSrv  *httptest.Server
	portalSrv *httptest.Server

	vault  *inMemoryVault
	links  *inMemoryLinkRepo
	audits *inMemoryAuditRepo
	placer *recordingPlacer

	canon  ports.Canonicalizer
	sigSvc ports.SignatureService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	nonceStore := redisStorage.NewNonceStore(rdb)

	canon := service.NewCanonicalService()
	sigSvc := service.NewHMACSignatureService()
	log := zerolog.Nop()

	links := newInMemoryLinkRepo()
	vault := newInMemoryVault("tradelink", "test")
	audits := newInMemoryAuditRepo()
	placer := &recordingPlacer{}

	linkRouter := httpHandler.SetupLinkRouter(httpHandler.LinkRouterDeps{
		LinkSvc:    service.NewLinkService(vault, links, log),
		Canon:      canon,
		SigSvc:     sigSvc,
		NonceStore: nonceStore,
		Domain:     linkDomain,
		Logger:     log,
	})
	linkSrv := httptest.NewServer(linkRouter)
	t.Cleanup(linkSrv.Close)

	tradeRouter := httpHandler.SetupTradeRouter(httpHandler.TradeRouterDeps{
		TradeSvc:   service.NewTradeService(links, vault, audits, placer, log),
		Canon:      canon,
		SigSvc:     sigSvc,
		NonceStore: nonceStore,
		Domain:     tradeDomain,
		Logger:     log,
	})
	tradeSrv := httptest.NewServer(tradeRouter)
	t.Cleanup(tradeSrv.Close)

	portalRouter := httpHandler.SetupPortalRouter(httpHandler.PortalRouterDeps{
		Verifier:   service.NewPlatformVerifierService(testBotToken),
		LinkClient: linkclient.New(linkSrv.URL, linkDomain, canon, sigSvc, linkSrv.Client()),
		CSRFMinLen: 16,
		Logger:     log,
	})
	portalSrv := httptest.NewServer(portalRouter)
	t.Cleanup(portalSrv.Close)

	return &testApp{
		linkSrv:   linkSrv,
		tradeSrv:  tradeSrv,
		portalSrv: portalSrv,
		vault:     vault,
		links:     links,
		audits:    audits,
		placer:    placer,
		canon:     canon,
		sigSvc:    sigSvc,
	}
}

// signedRequest sends one request carrying a fresh signing envelope in
// the given trust domain.
func (a *testApp) signedRequest(t *testing.T, domain config.TrustDomain, baseURL, method, path, rawQuery string, body []byte) *http.Response {
	t.Helper()
	return a.signedRequestNonce(t, domain, baseURL, method, path, rawQuery, body, uuid.NewString(), time.Now().UnixMilli())
}

func (a *testApp) signedRequestNonce(t *testing.T, domain config.TrustDomain, baseURL, method, path, rawQuery string, body []byte, nonce string, ts int64) *http.Response {
	t.Helper()

	target := baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)

	tsStr := strconv.FormatInt(ts, 10)
	canonical := a.canon.Canonical(method, path, a.canon.HashBody(body), tsStr, nonce)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-kid", domain.Kid)
	req.Header.Set("x-ts", tsStr)
	req.Header.Set("x-nonce", nonce)
	req.Header.Set("x-sig", a.sigSvc.Sign(domain.Secret, canonical))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func linkBody(userID string) []byte {
	return []byte(fmt.Sprintf(
		`{"userId":"%s","credentials":{"apiKey":"ak","apiSecret":"as","passphrase":"pp"}}`, userID))
}

func tradeBody(userID string) []byte {
	return []byte(fmt.Sprintf(
		`{"userId":"%s","marketId":"BTC-USD","side":"BUY","size":0.25}`, userID))
}

func TestLinkTradeLifecycle(t *testing.T) {
	app := newTestApp(t)
	userID := "100200300"

	// Not linked yet: status false, trading forbidden.
	resp := app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodGet, "/status", "userId="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["linked"])

	resp = app.signedRequest(t, tradeDomain, app.tradeSrv.URL, http.MethodPost, "/trade", "", tradeBody(userID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTHZ_001", decodeBody(t, resp)["error_code"])
	assert.Zero(t, app.placer.count())

	// Link.
	resp = app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodPost, "/link", "", linkBody(userID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["linked"])
	secretRef := body["secretRef"].(string)
	assert.Equal(t, "tradelink/test/users/"+userID+"/exchange-keys", secretRef)

	// Status reflects the link.
	resp = app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodGet, "/status", "userId="+userID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["linked"])
	assert.Equal(t, secretRef, body["secretRef"])

	// Trade goes through and is audited.
	resp = app.signedRequest(t, tradeDomain, app.tradeSrv.URL, http.MethodPost, "/trade", "", tradeBody(userID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["accepted"])
	assert.Equal(t, 1, app.placer.count())
	assert.Equal(t, 1, app.audits.count())

	// Unlink, then trading is forbidden again.
	resp = app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodPost, "/unlink", "", []byte(`{"userId":"`+userID+`"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["linked"])

	resp = app.signedRequest(t, tradeDomain, app.tradeSrv.URL, http.MethodPost, "/trade", "", tradeBody(userID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, app.placer.count())
}

func TestRelinkAppendsVersionKeepsRef(t *testing.T) {
	app := newTestApp(t)
	userID := "42"

	resp := app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodPost, "/link", "", linkBody(userID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeBody(t, resp)["secretRef"].(string)

	resp = app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodPost, "/link", "", linkBody(userID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody(t, resp)["secretRef"].(string)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, app.vault.versionCount(first))
}

func TestValidationRejections(t *testing.T) {
	app := newTestApp(t)

	// Partial credential bundle.
	partial := []byte(`{"userId":"42","credentials":{"apiKey":"ak","apiSecret":"as"}}`)
	resp := app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodPost, "/link", "", partial)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VAL_001", decodeBody(t, resp)["error_code"])
	assert.Zero(t, app.vault.versionCount(app.vault.ResourceName("42")))

	// Missing userId on status.
	resp = app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodGet, "/status", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing side on trade.
	noSide := []byte(`{"userId":"42","marketId":"BTC-USD","size":1}`)
	resp = app.signedRequest(t, tradeDomain, app.tradeSrv.URL, http.MethodPost, "/trade", "", noSide)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRejections(t *testing.T) {
	app := newTestApp(t)

	// No envelope at all.
	resp, err := http.Get(app.linkSrv.URL + "/status?userId=42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_001", decodeBody(t, resp)["error_code"])

	// Trade-domain secret presented to the link service under the
	// link kid.
	forged := config.TrustDomain{Kid: linkDomain.Kid, Secret: tradeDomain.Secret}
	resp = app.signedRequest(t, forged, app.linkSrv.URL, http.MethodGet, "/status", "userId=42", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_004", decodeBody(t, resp)["error_code"])

	// Stale timestamp.
	resp = app.signedRequestNonce(t, linkDomain, app.linkSrv.URL, http.MethodGet, "/status", "userId=42", nil,
		uuid.NewString(), time.Now().UnixMilli()-61_000)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_003", decodeBody(t, resp)["error_code"])

	// Nonce replay.
	nonce := uuid.NewString()
	resp = app.signedRequestNonce(t, linkDomain, app.linkSrv.URL, http.MethodGet, "/status", "userId=42", nil,
		nonce, time.Now().UnixMilli())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = app.signedRequestNonce(t, linkDomain, app.linkSrv.URL, http.MethodGet, "/status", "userId=42", nil,
		nonce, time.Now().UnixMilli())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_005", decodeBody(t, resp)["error_code"])
}

// signPlatformPayload reproduces the platform's login-widget signing:
// HMAC-SHA256 over the sorted key=value lines, keyed by the SHA-256 of
// the bot token.
func signPlatformPayload(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	key := sha256.Sum256([]byte(testBotToken))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPortalLinkEndToEnd(t *testing.T) {
	app := newTestApp(t)

	auth := map[string]string{
		"id":         "777",
		"first_name": "Ada",
		"auth_date":  strconv.FormatInt(time.Now().Unix(), 10),
	}
	auth["hash"] = signPlatformPayload(auth)

	payload, err := json.Marshal(map[string]any{
		"auth": auth,
		"credentials": map[string]string{
			"apiKey": "ak", "apiSecret": "as", "passphrase": "pp",
		},
	})
	require.NoError(t, err)

	// CSRF token missing: rejected before anything is forwarded.
	req, _ := http.NewRequest(http.MethodPost, app.portalSrv.URL+"/portal/link", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VAL_002", decodeBody(t, resp)["error_code"])

	// With CSRF: verified, forwarded under the signing envelope, and
	// the link-service body relayed verbatim.
	req, _ = http.NewRequest(http.MethodPost, app.portalSrv.URL+"/portal/link", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-csrf-token", "0123456789abcdef")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["linked"])
	assert.Equal(t, "tradelink/test/users/777/exchange-keys", body["secretRef"])

	// Forged platform hash never reaches the link service.
	auth["hash"] = strings.Repeat("0", 64)
	payload, _ = json.Marshal(map[string]any{
		"auth":        auth,
		"credentials": map[string]string{"apiKey": "ak", "apiSecret": "as", "passphrase": "pp"},
	})
	req, _ = http.NewRequest(http.MethodPost, app.portalSrv.URL+"/portal/link", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-csrf-token", "0123456789abcdef")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_006", decodeBody(t, resp)["error_code"])
}

func TestPortalStatusEndToEnd(t *testing.T) {
	app := newTestApp(t)

	auth := map[string]string{
		"id":        "888",
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
	}
	auth["hash"] = signPlatformPayload(auth)

	target := app.portalSrv.URL +
		"/portal/status?id=" + auth["id"] + "&auth_date=" + auth["auth_date"] + "&hash=" + auth["hash"]

	// Reads need the CSRF token too.
	resp, err := http.Get(target)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VAL_002", decodeBody(t, resp)["error_code"])

	req, _ := http.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("x-csrf-token", "0123456789abcdef")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["linked"])
}

func TestConcurrentReplaySingleUse(t *testing.T) {
	app := newTestApp(t)
	userID := "55"

	resp := app.signedRequest(t, linkDomain, app.linkSrv.URL, http.MethodPost, "/link", "", linkBody(userID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// One envelope fired concurrently: the nonce admits exactly one.
	nonce := uuid.NewString()
	ts := time.Now().UnixMilli()
	const workers = 8

	var wg sync.WaitGroup
	codes := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := app.signedRequestNonce(t, tradeDomain, app.tradeSrv.URL, http.MethodPost, "/trade", "", tradeBody(userID), nonce, ts)
			codes <- r.StatusCode
			r.Body.Close()
		}()
	}
	wg.Wait()
	close(codes)

	accepted := 0
	for code := range codes {
		if code == http.StatusOK {
			accepted++
		} else {
			assert.Equal(t, http.StatusUnauthorized, code)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, app.placer.count())
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, base := range []string{app.linkSrv.URL, app.tradeSrv.URL, app.portalSrv.URL} {
		resp, err := http.Get(base + "/healthz")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
		resp.Body.Close()
	}
}
