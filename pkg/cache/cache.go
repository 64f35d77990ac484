package cache

import "time"

// Cache is a small get/set/delete abstraction over a key-value store with
// per-key expiry. Values are strings; callers serialize structured data
// themselves (the leaderboard service stores JSON).
type Cache interface {
	// Get returns the value for key, or "" with a nil error when the key
	// does not exist or has expired.
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
	Delete(key string) error
}
