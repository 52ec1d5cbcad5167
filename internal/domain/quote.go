package domain

import "time"

// ReferenceCurrency is the currency every leg is normalized into.
const ReferenceCurrency = "USD"

// Listing is one venue on which a watched symbol trades.
type Listing struct {
	Ticker   string `toml:"ticker" json:"ticker"`
	Market   string `toml:"market" json:"market,omitempty"`
	Currency string `toml:"currency" json:"currency,omitempty"`
}

// Watch groups the listings of a single underlying.
type Watch struct {
	Symbol   string    `toml:"symbol" json:"symbol"`
	Listings []Listing `toml:"listings" json:"listings"`
}

// Quote is a price observation returned by a PriceSource. Bid and Ask are
// optional; zero means the venue did not publish them.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Market    string    `json:"market"`
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
	Mid       float64   `json:"mid_price"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// Label renders the venue the way it appears in reports, e.g. "IDX (IDR)".
func (q Quote) Label() string {
	return q.Market + " (" + q.Currency + ")"
}

// NormalizedPrice is a quote's mid price expressed in ReferenceCurrency.
type NormalizedPrice struct {
	Quote Quote
	USD   float64
	Rate  float64
}
