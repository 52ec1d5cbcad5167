package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrInvalidSpread   = errors.New("spread implies mismatched instruments")
	ErrRiskRejected    = errors.New("risk gate rejected")
	ErrPersistence     = errors.New("persistence failure")
	ErrLockHeld        = errors.New("lock already held")
	ErrRateLimited     = errors.New("rate limited")
)
