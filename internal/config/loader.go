package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidNLUProviders lists the LLM backends the NLU stage supports. Used by
// [Validate] to reject unknown provider names.
var ValidNLUProviders = []string{"openai", "anthropic", "gemini", "ollama", "mistral"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Classifier
	if cfg.Classifier.BaseURL == "" {
		errs = append(errs, errors.New("classifier.base_url is required"))
	}
	if cfg.Classifier.TimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("classifier.timeout_ms %d must not be negative", cfg.Classifier.TimeoutMS))
	}

	// Cache
	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds %d must not be negative", cfg.Cache.TTLSeconds))
	}
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries %d must not be negative", cfg.Cache.MaxEntries))
	}

	// Fallback thresholds
	if t := cfg.Fallback.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("fallback.phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Fallback.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("fallback.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}

	// NLU
	if cfg.NLU.Provider != "" {
		if !slices.Contains(ValidNLUProviders, cfg.NLU.Provider) {
			errs = append(errs, fmt.Errorf("nlu.provider %q is unknown; valid values: %v", cfg.NLU.Provider, ValidNLUProviders))
		}
		if cfg.NLU.Model == "" {
			errs = append(errs, errors.New("nlu.model is required when nlu.provider is set"))
		}
	}

	// Telemetry
	if cfg.Telemetry.Mode != "" && !cfg.Telemetry.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("telemetry.mode %q is invalid; valid values: off, file, http, postgres", cfg.Telemetry.Mode))
	}
	switch cfg.Telemetry.Mode {
	case TelemetryFile:
		if cfg.Telemetry.Path == "" {
			errs = append(errs, errors.New("telemetry.path is required when mode is file"))
		}
	case TelemetryHTTP:
		if cfg.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when mode is http"))
		}
	case TelemetryPostgres:
		if cfg.Telemetry.PostgresDSN == "" {
			errs = append(errs, errors.New("telemetry.postgres_dsn is required when mode is postgres"))
		}
	}
	if cfg.Telemetry.Mode == "" || cfg.Telemetry.Mode == TelemetryOff {
		slog.Debug("telemetry disabled; intent usage events will not be recorded")
	}

	return errors.Join(errs...)
}
