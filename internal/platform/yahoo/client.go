// Package yahoo reads quotes from the Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/httpx"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// DefaultUserAgent is sent because the endpoint rejects bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Client implements domain.PriceSource over the chart API.
type Client struct {
	http *httpx.Client
	now  func() time.Time
}

// NewClient creates a chart client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, cfg httpx.Config) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		http: httpx.NewClient(baseURL, cfg),
		now:  time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	Bid                *float64 `json:"bid"`
	Ask                *float64 `json:"ask"`
}

// Quote fetches the latest quote for ticker. The mid price is the regular
// market price; when that is missing but both sides of the book are present,
// the bid/ask midpoint is used instead.
func (c *Client) Quote(ctx context.Context, ticker string) (domain.Quote, error) {
	body, err := c.http.Get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), nil)
	if err != nil {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return domain.Quote{}, fmt.Errorf("yahoo: %s: %w", ticker, domain.ErrDataUnavailable)
		}
		return domain.Quote{}, fmt.Errorf("yahoo: quote %s: %w: %w", ticker, domain.ErrDataUnavailable, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("yahoo: decode %s: %w: %w", ticker, domain.ErrDataUnavailable, err)
	}
	if len(resp.Chart.Result) == 0 {
		return domain.Quote{}, fmt.Errorf("yahoo: no result for %s: %w", ticker, domain.ErrDataUnavailable)
	}

	meta := resp.Chart.Result[0].Meta
	q := domain.Quote{
		Symbol:    ticker,
		Bid:       positive(meta.Bid),
		Ask:       positive(meta.Ask),
		Mid:       positive(meta.RegularMarketPrice),
		Currency:  meta.Currency,
		Timestamp: c.now().UTC(),
	}
	if q.Currency == "" {
		q.Currency = domain.ReferenceCurrency
	}
	if q.Mid == 0 && q.Bid > 0 && q.Ask > 0 {
		q.Mid = (q.Bid + q.Ask) / 2
	}
	if q.Mid == 0 {
		return domain.Quote{}, fmt.Errorf("yahoo: no price for %s: %w", ticker, domain.ErrDataUnavailable)
	}
	q.Market = MarketFor(q.Currency)
	return q, nil
}

// MarketFor labels a venue from its trading currency.
func MarketFor(currency string) string {
	if currency == "USD" {
		return "NASDAQ/NYSE"
	}
	return "IDX"
}

func positive(v *float64) float64 {
	if v == nil || *v <= 0 {
		return 0
	}
	return *v
}

// Compile-time interface check.
var _ domain.PriceSource = (*Client)(nil)
