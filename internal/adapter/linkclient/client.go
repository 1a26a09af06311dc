// Package linkclient is the portal's signed HTTP client for the link
// service. Every outbound request carries a fresh signing envelope in
// the portal↔link trust domain; the link service's response is relayed
// back to the portal caller byte for byte.
package linkclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradelink/config"
	"tradelink/internal/core/ports"

	"github.com/google/uuid"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Relayed is a link-service response to pass through unmodified.
type Relayed struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client signs and forwards requests to the link service.
type Client struct {
	baseURL    string
	domain     config.TrustDomain
	canon      ports.Canonicalizer
	sigSvc     ports.SignatureService
	httpClient HTTPClient
}

func New(
	baseURL string,
	domain config.TrustDomain,
	canon ports.Canonicalizer,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		domain:     domain,
		canon:      canon,
		sigSvc:     sigSvc,
		httpClient: httpClient,
	}
}

// Forward signs the envelope over the bare path (the query string is
// not part of the canonical string) and sends the request. The body is
// forwarded exactly as given so the signature stays valid end to end.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body []byte) (*Relayed, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("linkclient: build request: %w", err)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := uuid.NewString()
	canonical := c.canon.Canonical(method, path, c.canon.HashBody(body), ts, nonce)

	req.Header.Set("x-kid", c.domain.Kid)
	req.Header.Set("x-ts", ts)
	req.Header.Set("x-nonce", nonce)
	req.Header.Set("x-sig", c.sigSvc.Sign(c.domain.Secret, canonical))
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("linkclient: read response: %w", err)
	}

	return &Relayed{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}
