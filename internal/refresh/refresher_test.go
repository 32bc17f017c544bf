package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/keys"
	"github.com/vigiamaps/occurrence-hotspots/internal/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	city, state string
	daysAgo     int
	key         string
	hadDeadline bool
}

type fakeProc struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error // keyed by city
}

func (f *fakeProc) ProcessAndCache(ctx context.Context, city, state string, daysAgo int, cacheKey string) error {
	_, hasDeadline := ctx.Deadline()
	f.mu.Lock()
	f.calls = append(f.calls, call{city, state, daysAgo, cacheKey, hasDeadline})
	f.mu.Unlock()
	return f.fail[city]
}

func (f *fakeProc) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

var roster = []config.RosterEntry{
	{City: "Salvador", State: "Bahia", LookbackDays: 365},
	{City: "Rio de Janeiro", State: "Rio de Janeiro", LookbackDays: 180},
	{City: "Recife", State: "Pernambuco", LookbackDays: 365},
}

func TestRunAll_CoversRoster(t *testing.T) {
	proc := &fakeProc{}
	r := New(proc, roster, "0 3 * * *", time.Minute, discard())

	r.RunAll(context.Background())

	calls := proc.snapshot()
	if len(calls) != len(roster) {
		t.Fatalf("ran %d jobs, want %d", len(calls), len(roster))
	}
	for i, c := range calls {
		if c.city != roster[i].City || c.state != roster[i].State || c.daysAgo != roster[i].LookbackDays {
			t.Fatalf("job %d ran with %+v, roster entry %+v", i, c, roster[i])
		}
		if want := keys.HotspotAnalysis(roster[i].City, roster[i].State); c.key != want {
			t.Fatalf("job %d key=%q want %q", i, c.key, want)
		}
		if !c.hadDeadline {
			t.Fatalf("job %d ran without a timeout", i)
		}
	}
}

func TestRunAll_FailedCityDoesNotBlockOthers(t *testing.T) {
	proc := &fakeProc{fail: map[string]error{"Salvador": errors.New("upstream down")}}
	r := New(proc, roster, "0 3 * * *", time.Minute, discard())

	r.RunAll(context.Background())

	if got := len(proc.snapshot()); got != len(roster) {
		t.Fatalf("ran %d jobs, want %d despite one failure", got, len(roster))
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	r := New(&fakeProc{}, roster, "not a schedule", time.Minute, discard())
	if err := r.Start(); err == nil {
		t.Fatalf("invalid schedule must fail Start")
	}
}

func TestStart_ScheduledJobsFire(t *testing.T) {
	proc := &fakeProc{}
	// every-second schedule keeps the test fast
	r := New(proc, roster[:1], "@every 1s", time.Minute, discard())

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	deadline := time.After(3 * time.Second)
	for {
		if len(proc.snapshot()) > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("scheduled job never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
