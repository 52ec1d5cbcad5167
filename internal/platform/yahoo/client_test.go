package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/platform/httpx"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		assert.Contains(t, r.UserAgent(), "Mozilla/5.0")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Quote(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/v8/finance/chart/BBCA.JK": `{"chart":{"result":[{"meta":{"symbol":"BBCA.JK","currency":"IDR","regularMarketPrice":9525,"bid":9500,"ask":9550}}],"error":null}}`,
		"/v8/finance/chart/TLK":     `{"chart":{"result":[{"meta":{"symbol":"TLK","regularMarketPrice":18.42}}],"error":null}}`,
		"/v8/finance/chart/UNVR":    `{"chart":{"result":[{"meta":{"currency":"USD","bid":3.1,"ask":3.3}}]}}`,
	})
	c := NewClient(srv.URL, httpx.Config{Timeout: time.Second})

	q, err := c.Quote(context.Background(), "BBCA.JK")
	require.NoError(t, err)
	assert.Equal(t, "BBCA.JK", q.Symbol)
	assert.Equal(t, "IDX", q.Market)
	assert.Equal(t, "IDR", q.Currency)
	assert.Equal(t, 9525.0, q.Mid)
	assert.Equal(t, 9500.0, q.Bid)
	assert.Equal(t, 9550.0, q.Ask)
	assert.False(t, q.Timestamp.IsZero())

	q, err = c.Quote(context.Background(), "TLK")
	require.NoError(t, err)
	assert.Equal(t, "USD", q.Currency, "currency defaults to USD")
	assert.Equal(t, "NASDAQ/NYSE", q.Market)
	assert.Zero(t, q.Bid)

	q, err = c.Quote(context.Background(), "UNVR")
	require.NoError(t, err)
	assert.InDelta(t, 3.2, q.Mid, 1e-9)
}

func TestClient_QuoteUnavailable(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/v8/finance/chart/EMPTY":   `{"chart":{"result":[],"error":null}}`,
		"/v8/finance/chart/NOPRICE": `{"chart":{"result":[{"meta":{"currency":"USD"}}]}}`,
		"/v8/finance/chart/BROKEN":  `{"chart":`,
	})
	c := NewClient(srv.URL, httpx.Config{Timeout: time.Second})

	for _, ticker := range []string{"EMPTY", "NOPRICE", "BROKEN", "MISSING"} {
		t.Run(ticker, func(t *testing.T) {
			_, err := c.Quote(context.Background(), ticker)
			assert.ErrorIs(t, err, domain.ErrDataUnavailable)
		})
	}
}
