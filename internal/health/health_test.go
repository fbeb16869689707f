package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quizvox/quizvox/internal/intent"
)

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "failing", Check: func(context.Context) error {
		return errors.New("down")
	}})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if res := decodeResult(t, rec); res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
}

func TestReadyz_AllPass(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "a", Check: func(context.Context) error { return nil }},
		Checker{Name: "b", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	res := decodeResult(t, rec)
	if res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
	if res.Checks["a"] != "ok" || res.Checks["b"] != "ok" {
		t.Errorf("checks = %v", res.Checks)
	}
}

func TestReadyz_OneFails(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "good", Check: func(context.Context) error { return nil }},
		Checker{Name: "bad", Check: func(context.Context) error { return errors.New("boom") }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	res := decodeResult(t, rec)
	if res.Status != "fail" {
		t.Errorf("body status = %q, want fail", res.Status)
	}
	if res.Checks["good"] != "ok" {
		t.Errorf("checks[good] = %q", res.Checks["good"])
	}
	if res.Checks["bad"] != "fail: boom" {
		t.Errorf("checks[bad] = %q", res.Checks["bad"])
	}
}

func TestClassifierChecker(t *testing.T) {
	t.Parallel()

	healthy := ClassifierChecker(func(context.Context) intent.HealthStatus {
		return intent.HealthStatus{Status: "healthy"}
	})
	if err := healthy.Check(context.Background()); err != nil {
		t.Errorf("healthy classifier check failed: %v", err)
	}

	down := ClassifierChecker(func(context.Context) intent.HealthStatus {
		return intent.HealthStatus{Status: "error"}
	})
	if err := down.Check(context.Background()); err == nil {
		t.Error("expected failure when classifier status is error")
	}

	// A degraded but reachable service still counts as ready.
	degraded := ClassifierChecker(func(context.Context) intent.HealthStatus {
		return intent.HealthStatus{Status: "degraded"}
	})
	if err := degraded.Check(context.Background()); err != nil {
		t.Errorf("degraded classifier check failed: %v", err)
	}
}

func TestPingChecker(t *testing.T) {
	t.Parallel()

	ok := PingChecker("telemetry", func(context.Context) error { return nil })
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("passing ping failed: %v", err)
	}

	fail := PingChecker("telemetry", func(context.Context) error { return errors.New("refused") })
	if err := fail.Check(context.Background()); err == nil {
		t.Error("expected failing ping to error")
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New().Register(mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
