package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; changes to the
// listen address, classifier endpoint, or telemetry sink require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CacheChanged is true when the cache TTL or entry bound changed.
	CacheChanged bool
	NewCache     CacheConfig

	// FallbackChanged is true when the phonetic-correction toggle or its
	// thresholds changed.
	FallbackChanged bool
	NewFallback     FallbackConfig

	// RestartRequired is true when a change was detected in a section that
	// cannot be applied at runtime.
	RestartRequired bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CacheChanged || d.FallbackChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Cache != new.Cache {
		d.CacheChanged = true
		d.NewCache = new.Cache
	}

	if old.Fallback != new.Fallback {
		d.FallbackChanged = true
		d.NewFallback = new.Fallback
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		old.Classifier != new.Classifier ||
		old.NLU != new.NLU ||
		old.Telemetry != new.Telemetry {
		d.RestartRequired = true
	}

	return d
}

// tlsEqual compares two optional TLS blocks by value.
func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
