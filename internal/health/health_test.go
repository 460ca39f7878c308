package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/glyphcard/internal/resilience"
	llmmock "github.com/MrWong99/glyphcard/pkg/provider/llm/mock"
	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
	phonememock "github.com/MrWong99/glyphcard/pkg/provider/phoneme/mock"
)

func pass(context.Context) error    { return nil }
func refused(context.Context) error { return errors.New("connection refused") }

func get(t *testing.T, h *Handler, path string) (int, Report) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var rep Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, rep
}

func TestHealthz_IgnoresChecks(t *testing.T) {
	t.Parallel()
	code, rep := get(t, New(Checker{Name: "cache", Check: refused}), "/healthz")
	if code != http.StatusOK || rep.Status != StatusOK || rep.Checks != nil {
		t.Errorf("/healthz = %d %+v, want 200 ok without checks", code, rep)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{name: "no checkers", wantCode: http.StatusOK, wantStatus: StatusOK},
		{
			name:       "all pass",
			checkers:   []Checker{{Name: "cache", Check: pass}, {Name: "llm", Check: pass}},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{"cache": StatusOK, "llm": StatusOK},
		},
		{
			name:       "required fails",
			checkers:   []Checker{{Name: "cache", Check: refused}, {Name: "llm", Check: pass}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"cache": StatusFail, "llm": StatusOK},
		},
		{
			name:       "optional fails",
			checkers:   []Checker{{Name: "phoneme", Check: refused, Optional: true}, {Name: "llm", Check: pass}},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"phoneme": StatusDegraded, "llm": StatusOK},
		},
		{
			name: "required failure wins over degraded",
			checkers: []Checker{
				{Name: "cache", Check: refused},
				{Name: "phoneme", Check: refused, Optional: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"phoneme": StatusDegraded, "cache": StatusFail},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, rep := get(t, New(tt.checkers...), "/readyz")
			if code != tt.wantCode || rep.Status != tt.wantStatus {
				t.Errorf("/readyz = %d %q, want %d %q", code, rep.Status, tt.wantCode, tt.wantStatus)
			}
			for name, want := range tt.wantChecks {
				got := rep.Checks[name]
				if got.Status != want {
					t.Errorf("checks[%s].status = %q, want %q", name, got.Status, want)
				}
				if (got.Error != "") != (want != StatusOK) {
					t.Errorf("checks[%s].error = %q", name, got.Error)
				}
			}
		})
	}
}

func TestRun_ChecksRunConcurrently(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	arrived := make(chan struct{}, 2)
	wait := func(ctx context.Context) error {
		arrived <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	go func() {
		<-arrived
		<-arrived
		close(release)
	}()

	rep := New(Checker{Name: "a", Check: wait}, Checker{Name: "b", Check: wait}).Run(context.Background())
	if rep.Status != StatusOK {
		t.Errorf("status = %q, want ok: %+v", rep.Status, rep.Checks)
	}
}

func TestRun_CheckerDeadline(t *testing.T) {
	t.Parallel()
	var deadline time.Time
	New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}}).Run(context.Background())

	if deadline.IsZero() {
		t.Fatal("checker context has no deadline")
	}
	if until := time.Until(deadline); until > checkTimeout {
		t.Errorf("deadline %v away, want at most %v", until, checkTimeout)
	}
}

// ── checkers ─────────────────────────────────────────────────────────────────

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type notInstalled struct{ phonememock.Provider }

func (*notInstalled) Available() bool { return false }

func TestPing(t *testing.T) {
	t.Parallel()
	c := Ping("cache", pinger{err: errors.New("dial tcp: refused")})
	if c.Name != "cache" || c.Optional {
		t.Errorf("checker = %+v, want required cache", c)
	}
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check() = nil, want error")
	}
	if err := Ping("cache", pinger{}).Check(context.Background()); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
}

func TestLLM(t *testing.T) {
	t.Parallel()
	if err := LLM(nil).Check(context.Background()); err == nil {
		t.Error("nil provider: Check() = nil, want error")
	}
	if err := LLM(&llmmock.Provider{}).Check(context.Background()); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
}

func TestPhonemeEngine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		p       phoneme.Provider
		wantErr bool
	}{
		{name: "nil", wantErr: true},
		{name: "healthy", p: &phonememock.Provider{Result: "a"}},
		{name: "unsupported locale is fine", p: &phonememock.Provider{Err: phoneme.ErrUnsupportedLocale}},
		{name: "engine unavailable", p: &phonememock.Provider{Err: phoneme.ErrUnavailable}, wantErr: true},
		{name: "not installed", p: &notInstalled{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := PhonemeEngine(tt.p, "en-us")
			if !c.Optional {
				t.Error("phoneme checker should be optional")
			}
			if err := c.Check(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBreakers(t *testing.T) {
	t.Parallel()
	snaps := func(states map[string]resilience.State) func() map[string]resilience.Snapshot {
		return func() map[string]resilience.Snapshot {
			out := map[string]resilience.Snapshot{}
			for name, st := range states {
				out[name] = resilience.Snapshot{State: st}
			}
			return out
		}
	}
	tests := []struct {
		name    string
		sources []func() map[string]resilience.Snapshot
		wantErr string
	}{
		{name: "no sources"},
		{name: "closed and half-open", sources: []func() map[string]resilience.Snapshot{
			snaps(map[string]resilience.State{"translit/rules": resilience.StateClosed, "translit/espeak-ng": resilience.StateHalfOpen}),
		}},
		{
			name: "open across sources",
			sources: []func() map[string]resilience.Snapshot{
				snaps(map[string]resilience.State{"translit/espeak-ng": resilience.StateOpen}),
				snaps(map[string]resilience.State{"openai": resilience.StateOpen, "ollama": resilience.StateClosed}),
			},
			wantErr: "circuit open: openai, translit/espeak-ng",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Breakers(tt.sources...)
			if !c.Optional || c.Name != "breakers" {
				t.Errorf("checker = %+v, want optional breakers", c)
			}
			err := c.Check(context.Background())
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Check() = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || err.Error() != tt.wantErr):
				t.Errorf("Check() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
