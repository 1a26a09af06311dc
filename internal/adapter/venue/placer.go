// Package venue holds the default downstream order placer. It posts
// the order to the configured venue endpoint with the caller's
// resolved credentials; any exchange-specific behavior stays behind
// the OrderPlacer port.
package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"tradelink/internal/core/domain"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Placer submits orders to the trading venue over HTTP.
type Placer struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

func NewPlacer(baseURL string, httpClient HTTPClient, log zerolog.Logger) *Placer {
	return &Placer{baseURL: baseURL, httpClient: httpClient, log: log}
}

type orderPayload struct {
	MarketID   string   `json:"marketId"`
	Side       string   `json:"side"`
	Size       float64  `json:"size"`
	LimitPrice *float64 `json:"limitPrice,omitempty"`
	Slippage   *float64 `json:"slippage,omitempty"`
}

// Place posts the order. Credentials travel only in headers; they are
// never serialized into the body or logged.
func (p *Placer) Place(ctx context.Context, creds domain.CredentialBundle, req domain.OrderRequest) error {
	body, err := json.Marshal(orderPayload{
		MarketID:   req.MarketID,
		Side:       string(req.Side),
		Size:       req.Size,
		LimitPrice: req.LimitPrice,
		Slippage:   req.Slippage,
	})
	if err != nil {
		return fmt.Errorf("venue: marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("venue: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", creds.APIKey)
	httpReq.Header.Set("X-API-SECRET", creds.APISecret)
	httpReq.Header.Set("X-API-PASSPHRASE", creds.Passphrase)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("venue: place order: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("venue: order rejected with status %d", resp.StatusCode)
	}

	p.log.Debug().Str("market_id", req.MarketID).Str("side", string(req.Side)).Msg("order placed")
	return nil
}
