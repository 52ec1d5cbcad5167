// Package exchangerate reads conversion rates from the exchangerate-api v4
// endpoint.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/httpx"
)

// DefaultBaseURL is the public API host.
const DefaultBaseURL = "https://api.exchangerate-api.com"

// Client implements domain.RateSource.
type Client struct {
	http *httpx.Client
}

// NewClient creates a rate client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, cfg httpx.Config) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpx.NewClient(baseURL, cfg)}
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Rate returns how many units of to one unit of from buys. A currency missing
// from the response is reported as unavailable rather than defaulted.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	body, err := c.http.Get(ctx, "/v4/latest/"+url.PathEscape(from), nil)
	if err != nil {
		return 0, fmt.Errorf("exchangerate: latest %s: %w: %w", from, domain.ErrDataUnavailable, err)
	}

	var resp latestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("exchangerate: decode %s: %w: %w", from, domain.ErrDataUnavailable, err)
	}
	rate, ok := resp.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("exchangerate: no %s rate for %s: %w", to, from, domain.ErrDataUnavailable)
	}
	return rate, nil
}

// Compile-time interface check.
var _ domain.RateSource = (*Client)(nil)
