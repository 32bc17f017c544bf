package crossfire

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/jsonstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/cache/redisstore"
	"github.com/vigiamaps/occurrence-hotspots/internal/pipeline"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionStore(t *testing.T) *jsonstore.Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return jsonstore.New(redisstore.NewAdapter(rc, time.Second), discard())
}

func loginServer(t *testing.T, logins *atomic.Int64, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		logins.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestToken_LoginAndSessionReuse(t *testing.T) {
	var logins atomic.Int64
	srv := loginServer(t, &logins, http.StatusOK,
		map[string]any{"data": map[string]string{"accessToken": "tok-1"}})

	a := NewAuthenticator(NewHTTP(srv.URL, time.Second), "u@example.com", "pw",
		sessionStore(t), 15*time.Minute, discard())

	ctx := context.Background()
	tok, err := a.Token(ctx)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("token=%q", tok)
	}

	// second call inside the session TTL must not hit the provider again
	if _, err := a.Token(ctx); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if n := logins.Load(); n != 1 {
		t.Fatalf("logins=%d want 1", n)
	}
}

func TestToken_ExpiredSessionRefreshes(t *testing.T) {
	var logins atomic.Int64
	srv := loginServer(t, &logins, http.StatusOK,
		map[string]any{"data": map[string]string{"accessToken": "tok-1"}})

	a := NewAuthenticator(NewHTTP(srv.URL, time.Second), "u@example.com", "pw",
		sessionStore(t), 15*time.Minute, discard())

	ctx := context.Background()
	if _, err := a.Token(ctx); err != nil {
		t.Fatalf("Token: %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(20 * time.Minute) }
	if _, err := a.Token(ctx); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if n := logins.Load(); n != 2 {
		t.Fatalf("logins=%d want 2", n)
	}
}

func TestToken_OKResponseWithoutTokenIsAuthenticationFailed(t *testing.T) {
	var logins atomic.Int64
	srv := loginServer(t, &logins, http.StatusOK, map[string]any{"data": map[string]string{}})

	a := NewAuthenticator(NewHTTP(srv.URL, time.Second), "u@example.com", "pw",
		nil, 15*time.Minute, discard())

	_, err := a.Token(context.Background())
	if !errors.Is(err, pipeline.ErrAuthenticationFailed) {
		t.Fatalf("want ErrAuthenticationFailed, got %v", err)
	}
}

func TestToken_RejectedLogin(t *testing.T) {
	var logins atomic.Int64
	srv := loginServer(t, &logins, http.StatusUnauthorized,
		map[string]any{"error": "bad credentials"})

	a := NewAuthenticator(NewHTTP(srv.URL, time.Second), "u@example.com", "pw",
		nil, 15*time.Minute, discard())

	_, err := a.Token(context.Background())
	if !errors.Is(err, pipeline.ErrUpstreamRejected) {
		t.Fatalf("want ErrUpstreamRejected, got %v", err)
	}
}

func TestToken_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	a := NewAuthenticator(NewHTTP(addr, time.Second), "u@example.com", "pw",
		nil, 15*time.Minute, discard())

	_, err := a.Token(context.Background())
	if !errors.Is(err, pipeline.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable, got %v", err)
	}
}
