// Package jsonstore layers JSON (de)serialization over the byte cache.
//
// Failure policy: a corrupt or undecodable entry reads as a miss, and a
// failed write is reported as false and logged. Neither ever surfaces as an
// error, so cache trouble can degrade but never break the online path.
package jsonstore

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache"
)

type Store struct {
	store  cache.Interface
	logger *slog.Logger
}

func New(store cache.Interface, logger *slog.Logger) *Store {
	return &Store{store: store, logger: logger}
}

// GetJSON decodes the entry under key into out. It reports whether a valid
// entry was found; store errors and corrupt payloads both read as a miss.
func (s *Store) GetJSON(key string, out any) bool {
	b, err := s.store.Get(key)
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss", "key", key, "err", err)
		return false
	}
	if b == nil {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.logger.Warn("cache entry corrupt, treating as miss", "key", key, "err", err)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key. ttl <= 0 stores without expiry.
func (s *Store) SetJSON(key string, v any, ttl time.Duration) bool {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("cache value not serializable", "key", key, "err", err)
		return false
	}
	if err := s.store.Set(key, b, ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "err", err)
		return false
	}
	return true
}
