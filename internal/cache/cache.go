// Package cache keeps per-visitor state in Redis: the auth session, the
// transaction draft parked between the cart and checkout steps, and shared
// reference data fetched from the remote API.
package cache

import "errors"

var (
	ErrCacheMiss       = errors.New("cache miss")
	ErrSessionNotFound = errors.New("session not found")
	ErrDraftMissing    = errors.New("transaction draft not found")
)
