package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RosterEntry is one city the refresher precomputes hotspots for.
type RosterEntry struct {
	City         string
	State        string
	LookbackDays int
}

type Config struct {
	Addr     string
	LogLevel string

	RedisAddr      string
	CacheOpTimeout time.Duration

	GoogleMapsAPIKey string

	CrossfireBaseURL  string
	CrossfireEmail    string
	CrossfirePassword string

	UpstreamTimeout time.Duration

	RawWindowDays int
	RawTTL        time.Duration
	AuthTTL       time.Duration

	RefreshSchedule string
	Roster          []RosterEntry
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		GoogleMapsAPIKey: getenv("GOOGLE_MAPS_API_KEY", ""),

		CrossfireBaseURL:  getenv("CROSSFIRE_BASE_URL", "https://api-service.fogocruzado.org.br/api/v2"),
		CrossfireEmail:    getenv("CROSSFIRE_EMAIL", ""),
		CrossfirePassword: getenv("CROSSFIRE_PASSWORD", ""),

		UpstreamTimeout: getduration("UPSTREAM_TIMEOUT", 10*time.Second),

		RawWindowDays: getint("RAW_WINDOW_DAYS", 31),
		RawTTL:        getduration("RAW_TTL", time.Hour),
		// The provider does not document token validity, so stay short.
		AuthTTL: getduration("AUTH_TTL", 15*time.Minute),

		RefreshSchedule: getenv("REFRESH_SCHEDULE", "0 3 * * *"),
		Roster:          parseRoster(getenv("REFRESH_ROSTER", "Salvador|Bahia|365")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "Salvador|Bahia|365,Rio de Janeiro|Rio de Janeiro|180" into roster
// entries. The lookback field is optional and defaults to 365 days.
func parseRoster(s string) []RosterEntry {
	var out []RosterEntry
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.Split(p, "|")
		if len(parts) < 2 {
			continue
		}
		e := RosterEntry{
			City:         strings.TrimSpace(parts[0]),
			State:        strings.TrimSpace(parts[1]),
			LookbackDays: 365,
		}
		if e.City == "" || e.State == "" {
			continue
		}
		if len(parts) > 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && n > 0 {
				e.LookbackDays = n
			}
		}
		out = append(out, e)
	}
	return out
}
