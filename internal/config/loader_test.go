package config

import (
	"strings"
	"testing"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
classifier:
  base_url: "http://localhost:8000/api/intent-router"
  timeout_ms: 3000
cache:
  ttl_seconds: 300
  max_entries: 1024
fallback:
  phonetic_correction: true
telemetry:
  mode: file
  path: /var/log/quizvox/events.jsonl
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Classifier.BaseURL != "http://localhost:8000/api/intent-router" {
		t.Errorf("BaseURL = %q", cfg.Classifier.BaseURL)
	}
	if cfg.Classifier.TimeoutMS != 3000 {
		t.Errorf("TimeoutMS = %d", cfg.Classifier.TimeoutMS)
	}
	if cfg.Cache.TTLSeconds != 300 || cfg.Cache.MaxEntries != 1024 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !cfg.Fallback.PhoneticCorrection {
		t.Error("PhoneticCorrection = false, want true")
	}
	if cfg.Telemetry.Mode != TelemetryFile {
		t.Errorf("Telemetry.Mode = %q", cfg.Telemetry.Mode)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	yaml := `
classifier:
  base_url: "http://localhost:8000"
  retries: 3
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			Classifier: ClassifierConfig{BaseURL: "http://localhost:8000"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "missing classifier base_url",
			mutate:  func(c *Config) { c.Classifier.BaseURL = "" },
			wantSub: "classifier.base_url",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantSub: "server.log_level",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Classifier.TimeoutMS = -1 },
			wantSub: "classifier.timeout_ms",
		},
		{
			name:    "negative cache ttl",
			mutate:  func(c *Config) { c.Cache.TTLSeconds = -5 },
			wantSub: "cache.ttl_seconds",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Fallback.FuzzyThreshold = 1.5 },
			wantSub: "fallback.fuzzy_threshold",
		},
		{
			name:    "unknown nlu provider",
			mutate:  func(c *Config) { c.NLU = NLUConfig{Provider: "skynet", Model: "t800"} },
			wantSub: "nlu.provider",
		},
		{
			name:    "nlu provider without model",
			mutate:  func(c *Config) { c.NLU = NLUConfig{Provider: "openai"} },
			wantSub: "nlu.model",
		},
		{
			name:    "invalid telemetry mode",
			mutate:  func(c *Config) { c.Telemetry.Mode = "kafka" },
			wantSub: "telemetry.mode",
		},
		{
			name:    "file mode without path",
			mutate:  func(c *Config) { c.Telemetry.Mode = TelemetryFile },
			wantSub: "telemetry.path",
		},
		{
			name:    "http mode without endpoint",
			mutate:  func(c *Config) { c.Telemetry.Mode = TelemetryHTTP },
			wantSub: "telemetry.endpoint",
		},
		{
			name:    "postgres mode without dsn",
			mutate:  func(c *Config) { c.Telemetry.Mode = TelemetryPostgres },
			wantSub: "telemetry.postgres_dsn",
		},
		{
			name:    "tls without key file",
			mutate:  func(c *Config) { c.Server.TLS = &TLSConfig{CertFile: "cert.pem"} },
			wantSub: "server.tls.key_file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server:     ServerConfig{LogLevel: "loud"},
		Classifier: ClassifierConfig{TimeoutMS: -1},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, sub := range []string{"server.log_level", "classifier.base_url", "classifier.timeout_ms"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("joined error missing %q: %v", sub, err)
		}
	}
}

func TestValidate_MinimalConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{Classifier: ClassifierConfig{BaseURL: "http://localhost:8000"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("minimal config should validate: %v", err)
	}
}
