package cache

import (
	"time"
)

// CacheService holds short-lived operational state, currently the
// per-host rate-limit blocks consulted before page fetches.
type CacheService interface {
	// Get retrieves a value; a non-nil error means the key is absent
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value
	Delete(key string) error
}
