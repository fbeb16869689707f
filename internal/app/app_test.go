package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/quizvox/quizvox/internal/config"
	"github.com/quizvox/quizvox/internal/intent"
	"github.com/quizvox/quizvox/internal/telemetry"
)

// fakeClassifier satisfies router.RemoteClassifier without a network.
type fakeClassifier struct{}

func (fakeClassifier) ParseOne(ctx context.Context, text string) (intent.Result, error) {
	return intent.Result{
		Intent:     "navigate_next",
		Confidence: 0.9,
		Slots:      map[string]any{},
		Backend:    intent.BackendRemote,
	}, nil
}

func (fakeClassifier) ParseBatch(ctx context.Context, texts []string) ([]intent.Result, error) {
	return nil, errors.New("not scripted")
}

func (fakeClassifier) SupportedIntents(ctx context.Context) (map[string]intent.Info, error) {
	return map[string]intent.Info{}, nil
}

func (fakeClassifier) CheckHealth(ctx context.Context) intent.HealthStatus {
	return intent.HealthStatus{Status: "healthy", Backends: map[string]string{}}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.ServerConfig{ListenAddr: "127.0.0.1:0"},
		Classifier: config.ClassifierConfig{BaseURL: "http://localhost:8000"},
	}
}

func TestNew_WiresSubsystems(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(),
		WithRemoteClassifier(fakeClassifier{}),
		WithTelemetrySink(telemetry.Nop{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Router() == nil {
		t.Fatal("expected a wired router")
	}

	got := a.Router().ParseIntent(context.Background(), "next question")
	if got.Intent != "navigate_next" {
		t.Errorf("Intent = %q", got.Intent)
	}
}

func TestNew_RejectsMissingBaseURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Classifier.BaseURL = ""
	if _, err := New(context.Background(), cfg, WithTelemetrySink(telemetry.Nop{})); err == nil {
		t.Fatal("expected error without classifier base URL or injected client")
	}
}

func TestNew_FileTelemetryFromConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Telemetry = config.TelemetryConfig{
		Mode: config.TelemetryFile,
		Path: t.TempDir() + "/events.jsonl",
	}
	a, err := New(context.Background(), cfg, WithRemoteClassifier(fakeClassifier{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.sink.(*telemetry.FileSink); !ok {
		t.Errorf("sink type = %T, want *telemetry.FileSink", a.sink)
	}
}

func TestNew_PhoneticFallbackFromConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Fallback.PhoneticCorrection = true
	if _, err := New(context.Background(), cfg,
		WithRemoteClassifier(fakeClassifier{}),
		WithTelemetrySink(telemetry.Nop{}),
	); err != nil {
		t.Fatalf("New with phonetic correction: %v", err)
	}
}

func TestRun_ServesAndStops(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(),
		WithRemoteClassifier(fakeClassifier{}),
		WithTelemetrySink(telemetry.Nop{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Wait for the listener to come up.
	var addr string
	for i := 0; i < 100; i++ {
		if addr = a.Addr(); addr != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("listener never opened")
	}

	resp, err := http.Post("http://"+addr+"/api/intent/parse", "application/json",
		strings.NewReader(`{"text": "next question"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var result intent.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if result.Intent != "navigate_next" {
		t.Errorf("Intent = %q", result.Intent)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil on clean shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestShutdown_RunsClosersOnce(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(),
		WithRemoteClassifier(fakeClassifier{}),
		WithTelemetrySink(telemetry.Nop{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	calls := 0
	a.closers = append(a.closers, func() error {
		calls++
		return nil
	})

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if calls != 1 {
		t.Errorf("closer ran %d times, want 1", calls)
	}
}

func TestShutdown_DeadlineExceeded(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(),
		WithRemoteClassifier(fakeClassifier{}),
		WithTelemetrySink(telemetry.Nop{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.closers = append(a.closers, func() error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Shutdown with expired context = %v, want context.Canceled", err)
	}
}
