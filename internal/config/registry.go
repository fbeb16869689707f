package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quizvox/quizvox/internal/telemetry"
)

// ErrSinkNotRegistered is returned by [Registry.CreateSink] when no factory
// has been registered under the requested telemetry mode.
var ErrSinkNotRegistered = errors.New("config: telemetry sink not registered")

// Registry maps telemetry modes to sink constructor functions. It lets the
// application wire the sink implementations while keeping this package free
// of driver dependencies. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	sinks map[TelemetryMode]func(TelemetryConfig) (telemetry.Sink, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[TelemetryMode]func(TelemetryConfig) (telemetry.Sink, error)),
	}
}

// RegisterSink registers a telemetry sink factory under mode.
// Subsequent calls with the same mode overwrite the previous registration.
func (r *Registry) RegisterSink(mode TelemetryMode, factory func(TelemetryConfig) (telemetry.Sink, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[mode] = factory
}

// CreateSink instantiates the sink registered for cfg.Mode. An empty or
// "off" mode always yields [telemetry.Nop]; for any other mode a missing
// factory is [ErrSinkNotRegistered].
func (r *Registry) CreateSink(cfg TelemetryConfig) (telemetry.Sink, error) {
	if cfg.Mode == "" || cfg.Mode == TelemetryOff {
		return telemetry.Nop{}, nil
	}

	r.mu.RLock()
	factory, ok := r.sinks[cfg.Mode]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSinkNotRegistered, cfg.Mode)
	}
	return factory(cfg)
}
