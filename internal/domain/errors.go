package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a cache or store lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrCacheUnavailable is returned when the cache backend cannot be
	// reached at all (as opposed to a miss).
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrRefreshInFlight is returned when a refresh is requested while
	// another refresh for the same snapshot is already running.
	ErrRefreshInFlight = errors.New("refresh already in flight")

	// ErrInvalidWallet is returned for wallet parameters that are not
	// well-formed hex addresses.
	ErrInvalidWallet = errors.New("invalid wallet address")
)

// NoDataError is returned by the event fetcher when pagination completed
// without accumulating a single event. It carries enough diagnostics to
// tell an upstream outage apart from an over-aggressive page cap.
type NoDataError struct {
	PagesFetched int
	Target       int
	HitPageCap   bool
	TimedOut     bool
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no events returned after %d pages (target %d, page cap hit: %t, timed out: %t)",
		e.PagesFetched, e.Target, e.HitPageCap, e.TimedOut)
}
