package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func pass(context.Context) error { return nil }

func failWith(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

// probe serves path through a router with h registered and decodes the body.
func probe(t *testing.T, h *Handler, path string) (int, report) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	if ct := rec.Header().Get("Content-Type"); rec.Code != http.StatusNotFound && ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var rep report
	if rec.Code != http.StatusNotFound {
		if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec.Code, rep
}

func TestHealthz_IgnoresCheckers(t *testing.T) {
	t.Parallel()
	h := New([]Checker{{Name: "lexicon", Check: failWith("not loaded")}})

	code, rep := probe(t, h, "/healthz")
	if code != http.StatusOK || rep.Status != "ok" {
		t.Errorf("healthz = %d %+v, want 200 ok", code, rep)
	}
	if len(rep.Checks) != 0 {
		t.Errorf("healthz should not report checks, got %v", rep.Checks)
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
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "lexicon", Check: pass},
				{Name: "events", Check: pass},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"lexicon": "ok", "events": "ok"},
		},
		{
			name: "one fails",
			checkers: []Checker{
				{Name: "lexicon", Check: pass},
				{Name: "events", Check: failWith("nats connection RECONNECTING")},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{"lexicon": "ok", "events": "fail: nats connection RECONNECTING"},
		},
		{
			name: "all fail",
			checkers: []Checker{
				{Name: "lexicon", Check: failWith("missing resource")},
				{Name: "events", Check: failWith("publish breaker open")},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{"lexicon": "fail: missing resource", "events": "fail: publish breaker open"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, rep := probe(t, New(tc.checkers), "/readyz")
			if code != tc.wantCode || rep.Status != tc.wantStatus {
				t.Errorf("readyz = %d %q, want %d %q", code, rep.Status, tc.wantCode, tc.wantStatus)
			}
			if len(rep.Checks) != len(tc.wantChecks) {
				t.Errorf("checks = %v, want %v", rep.Checks, tc.wantChecks)
			}
			for name, want := range tc.wantChecks {
				if got := rep.Checks[name]; got != want {
					t.Errorf("check %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_CheckTimeout(t *testing.T) {
	t.Parallel()
	h := New([]Checker{{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}, WithCheckTimeout(20*time.Millisecond))

	start := time.Now()
	code, rep := probe(t, h, "/readyz")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("readyz took %v, the check timeout was ignored", elapsed)
	}
	if code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", code)
	}
	if got := rep.Checks["slow"]; got != "fail: "+context.DeadlineExceeded.Error() {
		t.Errorf("slow = %q", got)
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	// Each checker waits until both are running.
	var running atomic.Int32
	both := make(chan struct{})
	wait := func(ctx context.Context) error {
		if running.Add(1) == 2 {
			close(both)
		}
		select {
		case <-both:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h := New([]Checker{{Name: "a", Check: wait}, {Name: "b", Check: wait}}, WithCheckTimeout(2*time.Second))

	if code, rep := probe(t, h, "/readyz"); code != http.StatusOK {
		t.Errorf("readyz = %d %+v, checks did not overlap", code, rep)
	}
}

func TestRegister_OnlyProbeRoutes(t *testing.T) {
	t.Parallel()
	if code, _ := probe(t, New(nil), "/livez"); code != http.StatusNotFound {
		t.Errorf("/livez = %d, want 404", code)
	}
}
