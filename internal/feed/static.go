// Package feed provides price sources that do not talk to a live venue,
// plus decorators that apply to any domain.PriceSource.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// brokerTable is the simulated IDX broker book, in IDR.
var brokerTable = map[string]map[string]float64{
	"BBCA": {"idx": 9500.00, "idx_broker1": 9480.00, "idx_broker2": 9520.00},
	"UNVR": {"idx": 3200.00, "idx_broker1": 3190.00, "idx_broker2": 3210.00},
	"TLKM": {"idx": 3750.00, "idx_broker1": 3740.00, "idx_broker2": 3760.00},
	"GOTO": {"idx": 84.00, "idx_broker1": 83.50, "idx_broker2": 84.50},
	"ADRO": {"idx": 2800.00, "idx_broker1": 2790.00, "idx_broker2": 2810.00},
}

// BrokerTicker names a symbol on a simulated broker, e.g. "BBCA@idx".
func BrokerTicker(symbol, broker string) string {
	return symbol + "@" + broker
}

// Static serves quotes from a fixed table. It is safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	now    func() time.Time
}

// NewStatic creates a Static source. Quotes are keyed by ticker.
func NewStatic(quotes map[string]domain.Quote) *Static {
	cp := make(map[string]domain.Quote, len(quotes))
	for k, v := range quotes {
		cp[k] = v
	}
	return &Static{quotes: cp, now: time.Now}
}

// NewBrokerStatic creates a Static source holding the simulated broker book.
func NewBrokerStatic() *Static {
	quotes := make(map[string]domain.Quote)
	for symbol, brokers := range brokerTable {
		for broker, price := range brokers {
			quotes[BrokerTicker(symbol, broker)] = domain.Quote{
				Symbol:   symbol,
				Market:   broker,
				Mid:      price,
				Currency: "IDR",
			}
		}
	}
	return NewStatic(quotes)
}

// Set replaces or adds the quote for ticker.
func (s *Static) Set(ticker string, q domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[ticker] = q
}

// Quote implements domain.PriceSource. The returned quote is stamped with
// the current time.
func (s *Static) Quote(_ context.Context, ticker string) (domain.Quote, error) {
	s.mu.RLock()
	q, ok := s.quotes[ticker]
	s.mu.RUnlock()
	if !ok {
		return domain.Quote{}, fmt.Errorf("feed: %s: %w", ticker, domain.ErrDataUnavailable)
	}
	q.Timestamp = s.now().UTC()
	return q, nil
}

// BrokerWatches builds one watch per symbol with a listing on every broker.
// Symbols and brokers keep their given order, which fixes pair order.
func BrokerWatches(symbols, brokers []string) []domain.Watch {
	watches := make([]domain.Watch, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		w := domain.Watch{Symbol: symbol}
		for _, broker := range brokers {
			w.Listings = append(w.Listings, domain.Listing{
				Ticker: BrokerTicker(symbol, broker),
				Market: broker,
			})
		}
		watches = append(watches, w)
	}
	return watches
}

// Compile-time interface check.
var _ domain.PriceSource = (*Static)(nil)
