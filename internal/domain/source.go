package domain

import "context"

// PriceSource returns the latest quote for a venue ticker. It returns
// ErrDataUnavailable (possibly wrapped) when the venue has no usable price.
type PriceSource interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// RateSource returns the conversion rate from one currency to another.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}
