// Package cache defines the key/value store consumed by the pipeline.
package cache

import "time"

type Interface interface {
	// Get returns the stored bytes, or (nil, nil) when the key is absent.
	Get(key string) ([]byte, error)
	// Set stores val under key; ttl <= 0 means no expiry.
	Set(key string, val []byte, ttl time.Duration) error
}
