package crossfire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/jsonstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/cache/keys"
	"github.com/vigiamaps/occurrence-hotspots/internal/observability"
	"github.com/vigiamaps/occurrence-hotspots/internal/pipeline"
)

// Session is a bearer token with the point in time we stop trusting it.
// The provider does not document token validity, so the expiry is our own
// conservative bound, not the provider's.
type Session struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// sessionRefreshBuffer keeps us from using a session that would expire
// mid-pipeline.
const sessionRefreshBuffer = time.Minute

// Authenticator exchanges credentials for a bearer token, caching the
// session in the shared store so back-to-back pipeline runs skip the
// redundant login round trip.
type Authenticator struct {
	http     *resty.Client
	email    string
	password string

	sessions   *jsonstore.Store // nil disables session reuse
	sessionTTL time.Duration

	logger *slog.Logger
	now    func() time.Time
}

func NewAuthenticator(http *resty.Client, email, password string, sessions *jsonstore.Store, sessionTTL time.Duration, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		http:       http,
		email:      email,
		password:   password,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Token returns a session token valid for at least one pipeline run,
// refreshing lazily when the cached one is absent or expiring.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if s, ok := a.cachedSession(); ok {
		a.logger.Debug("using cached provider session")
		return s.Token, nil
	}
	return a.login(ctx)
}

func (a *Authenticator) cachedSession() (Session, bool) {
	if a.sessions == nil {
		return Session{}, false
	}
	var s Session
	if !a.sessions.GetJSON(keys.AuthSession(), &s) {
		return Session{}, false
	}
	if s.Token == "" || a.now().After(s.Expiry.Add(-sessionRefreshBuffer)) {
		return Session{}, false
	}
	return s, true
}

func (a *Authenticator) login(ctx context.Context) (string, error) {
	start := time.Now()
	var out loginResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": a.email, "password": a.password}).
		SetResult(&out).
		Post("/auth/login")
	observability.ObserveUpstreamLatency("crossfire_auth", time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: login: %v", pipeline.ErrUpstreamUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: login: HTTP %d: %s",
			pipeline.ErrUpstreamRejected, resp.StatusCode(), snippet(resp.String()))
	}
	if out.Data.AccessToken == "" {
		return "", fmt.Errorf("%w: response carried no accessToken", pipeline.ErrAuthenticationFailed)
	}

	if a.sessions != nil {
		s := Session{Token: out.Data.AccessToken, Expiry: a.now().Add(a.sessionTTL)}
		if !a.sessions.SetJSON(keys.AuthSession(), s, a.sessionTTL) {
			a.logger.Warn("could not cache provider session")
		}
	}
	a.logger.Info("authenticated with incident provider")
	return out.Data.AccessToken, nil
}

func snippet(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max]
	}
	return s
}
