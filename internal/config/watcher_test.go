package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, baseURL string) {
	t.Helper()
	content := "classifier:\n  base_url: \"" + baseURL + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quizvox.yaml")
	writeConfig(t, path, "http://localhost:8000")

	w, err := NewWatcher(path, nil, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Classifier.BaseURL; got != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", got)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quizvox.yaml")
	if err := os.WriteFile(path, []byte("classifier: [not a mapping"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid initial config")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quizvox.yaml")
	writeConfig(t, path, "http://localhost:8000")

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(old, new *Config) {
		changed <- new
	}, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Backdate the mtime so the rewrite below is guaranteed to differ even on
	// filesystems with coarse timestamp resolution.
	past := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	writeConfig(t, path, "http://other:9000")

	select {
	case cfg := <-changed:
		if cfg.Classifier.BaseURL != "http://other:9000" {
			t.Errorf("reloaded BaseURL = %q", cfg.Classifier.BaseURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	if got := w.Current().Classifier.BaseURL; got != "http://other:9000" {
		t.Errorf("Current().BaseURL = %q after reload", got)
	}
}

func TestWatcher_InvalidUpdateKeepsOldConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quizvox.yaml")
	writeConfig(t, path, "http://localhost:8000")

	w, err := NewWatcher(path, func(old, new *Config) {
		t.Error("onChange must not fire for an invalid update")
	}, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	past := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.WriteFile(path, []byte("classifier:\n  base_url: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if got := w.Current().Classifier.BaseURL; got != "http://localhost:8000" {
		t.Errorf("Current().BaseURL = %q, want old value retained", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "quizvox.yaml")
	writeConfig(t, path, "http://localhost:8000")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
