// Package keys derives the cache keys used by the occurrence pipeline.
//
// Keys are deterministic pure functions of the region (and, for the raw
// path, the request date and window length). City and state names are
// sanitized to a lowercase ASCII-safe slug; because sanitization is lossy
// for accented names, a short hash of the unsanitized pair is appended so
// distinct regions can never collide on one key.
package keys

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// RawOccurrences keys the interactive raw-incidents path. The current date
// is part of the key, so cached content rotates daily without explicit
// invalidation.
func RawOccurrences(city, state string, day time.Time, windowDays int) string {
	return fmt.Sprintf("occurrences:raw:%s:%s:%d", regionSlug(city, state),
		day.UTC().Format("2006-01-02"), windowDays) + hashSuffix(city, state)
}

// HotspotAnalysis keys the precomputed hotspot analysis. Intentionally not
// time-boxed: the background refresher overwrites it in place.
func HotspotAnalysis(city, state string) string {
	return "analysis:occurrences:" + regionSlug(city, state) + hashSuffix(city, state)
}

// AuthSession keys the cached incident-provider session.
func AuthSession() string {
	return "auth:session:crossfire"
}

func regionSlug(city, state string) string {
	return sanitize(state) + ":" + sanitize(city)
}

func hashSuffix(city, state string) string {
	sum := xxhash.Sum64String(normalize(state) + "\x00" + normalize(city))
	return fmt.Sprintf(":r=%016x", sum)
}

// normalize makes key derivation case-insensitive before hashing.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sanitize(s string) string {
	s = normalize(s)
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
