// Package app wires all Quizvox subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithRemoteClassifier,
// WithTelemetrySink, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/quizvox/quizvox/internal/config"
	"github.com/quizvox/quizvox/internal/health"
	"github.com/quizvox/quizvox/internal/intent"
	"github.com/quizvox/quizvox/internal/intent/cache"
	"github.com/quizvox/quizvox/internal/intent/nlu"
	"github.com/quizvox/quizvox/internal/intent/remote"
	"github.com/quizvox/quizvox/internal/intent/router"
	"github.com/quizvox/quizvox/internal/phonetic"
	"github.com/quizvox/quizvox/internal/server"
	"github.com/quizvox/quizvox/internal/telemetry"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// App owns all subsystem lifetimes and serves the Quizvox intent API.
type App struct {
	cfg *config.Config

	// Subsystems — initialised in New, torn down in Shutdown.
	remote router.RemoteClassifier
	llm    router.LLMClassifier
	sink   telemetry.Sink
	router *router.Router
	httpd  *http.Server

	// listener is created in Run; Addr reports its address.
	mu       sync.Mutex
	listener net.Listener

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRemoteClassifier injects a classifier client instead of creating one
// from config.
func WithRemoteClassifier(rc router.RemoteClassifier) Option {
	return func(a *App) { a.remote = rc }
}

// WithLLMClassifier injects the optional LLM classifier instead of creating
// one from config.
func WithLLMClassifier(lc router.LLMClassifier) Option {
	return func(a *App) { a.llm = lc }
}

// WithTelemetrySink injects a telemetry sink instead of creating one from
// config.
func WithTelemetrySink(s telemetry.Sink) Option {
	return func(a *App) { a.sink = s }
}

// New creates an App by wiring all subsystems together: the remote
// classifier client, the local fallback classifier (with optional phonetic
// correction), the result cache, the optional LLM classifier, the telemetry
// sink, and the HTTP server. Use Option functions to inject test doubles for
// any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initRemote(); err != nil {
		return nil, fmt.Errorf("app: init classifier client: %w", err)
	}
	if err := a.initLLM(); err != nil {
		return nil, fmt.Errorf("app: init llm classifier: %w", err)
	}
	if err := a.initTelemetry(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}

	a.router = router.New(a.remote, a.buildFallback(),
		router.WithCache(a.buildCache()),
		router.WithLLMClassifier(a.llm),
		router.WithTelemetry(a.sink),
	)

	srv := server.New(a.router, nil, health.New(a.healthCheckers()...))
	a.httpd = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

// initRemote creates the classifier client unless one was injected.
func (a *App) initRemote() error {
	if a.remote != nil {
		return nil
	}
	var opts []remote.Option
	if a.cfg.Classifier.TimeoutMS > 0 {
		opts = append(opts, remote.WithTimeout(time.Duration(a.cfg.Classifier.TimeoutMS)*time.Millisecond))
	}
	client, err := remote.New(a.cfg.Classifier.BaseURL, opts...)
	if err != nil {
		return err
	}
	a.remote = client
	return nil
}

// initLLM creates the optional LLM classifier unless one was injected. An
// empty provider leaves the stage disabled.
func (a *App) initLLM() error {
	if a.llm != nil || a.cfg.NLU.Provider == "" {
		return nil
	}
	var opts []anyllmlib.Option
	if a.cfg.NLU.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(a.cfg.NLU.APIKey))
	}
	if a.cfg.NLU.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(a.cfg.NLU.BaseURL))
	}
	classifier, err := nlu.New(a.cfg.NLU.Provider, a.cfg.NLU.Model, opts...)
	if err != nil {
		return err
	}
	a.llm = classifier
	slog.Info("llm classifier enabled", "provider", a.cfg.NLU.Provider, "model", a.cfg.NLU.Model)
	return nil
}

// initTelemetry creates the configured sink unless one was injected.
func (a *App) initTelemetry(ctx context.Context) error {
	if a.sink != nil {
		return nil
	}
	reg := config.NewRegistry()
	registerBuiltinSinks(ctx, reg, a)

	sink, err := reg.CreateSink(a.cfg.Telemetry)
	if err != nil {
		return err
	}
	a.sink = sink
	if a.cfg.Telemetry.Mode != "" && a.cfg.Telemetry.Mode != config.TelemetryOff {
		slog.Info("telemetry enabled", "mode", a.cfg.Telemetry.Mode)
	}
	return nil
}

// registerBuiltinSinks wires the sink implementations that ship with Quizvox
// into reg. The postgres factory appends the pool closer to the app.
func registerBuiltinSinks(ctx context.Context, reg *config.Registry, a *App) {
	reg.RegisterSink(config.TelemetryFile, func(cfg config.TelemetryConfig) (telemetry.Sink, error) {
		return telemetry.NewFileSink(cfg.Path), nil
	})
	reg.RegisterSink(config.TelemetryHTTP, func(cfg config.TelemetryConfig) (telemetry.Sink, error) {
		return telemetry.NewHTTPSink(cfg.Endpoint)
	})
	reg.RegisterSink(config.TelemetryPostgres, func(cfg config.TelemetryConfig) (telemetry.Sink, error) {
		pg, err := telemetry.NewPGSink(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			pg.Close()
			return nil
		})
		return pg, nil
	})
}

// buildFallback assembles the local rule-table classifier, with phonetic
// correction when enabled.
func (a *App) buildFallback() *intent.Classifier {
	var opts []intent.ClassifierOption
	if a.cfg.Fallback.PhoneticCorrection {
		var popts []phonetic.Option
		if t := a.cfg.Fallback.PhoneticThreshold; t > 0 {
			popts = append(popts, phonetic.WithPhoneticThreshold(t))
		}
		if t := a.cfg.Fallback.FuzzyThreshold; t > 0 {
			popts = append(popts, phonetic.WithFuzzyThreshold(t))
		}
		corrector := phonetic.New(intent.CommandVocabulary(), popts...)
		opts = append(opts, intent.WithCorrector(corrector.Correct))
		slog.Debug("phonetic correction enabled")
	}
	return intent.NewClassifier(intent.DefaultRules(), opts...)
}

// buildCache creates the result cache from config.
func (a *App) buildCache() *cache.Cache {
	var opts []cache.Option
	if s := a.cfg.Cache.TTLSeconds; s > 0 {
		opts = append(opts, cache.WithTTL(time.Duration(s)*time.Second))
	}
	if n := a.cfg.Cache.MaxEntries; n > 0 {
		opts = append(opts, cache.WithMaxEntries(n))
	}
	return cache.New(opts...)
}

// healthCheckers builds the readiness checks: the classifier service always,
// the telemetry store when it supports pinging.
func (a *App) healthCheckers() []health.Checker {
	checkers := []health.Checker{
		health.ClassifierChecker(func(ctx context.Context) intent.HealthStatus {
			return a.remote.CheckHealth(ctx)
		}),
	}
	if pg, ok := a.sink.(*telemetry.PGSink); ok {
		checkers = append(checkers, health.PingChecker("telemetry", pg.Ping))
	}
	return checkers
}

// Router exposes the intent router, e.g. for embedding Quizvox in another
// process without the HTTP layer.
func (a *App) Router() *router.Router {
	return a.router
}

// Addr returns the address the HTTP listener is bound to, or "" before Run
// has opened it. Useful with a ":0" listen address in tests.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run opens the listener and serves the HTTP API until ctx is cancelled,
// then drains in-flight requests. It returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	slog.Info("app running", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var serveErr error
		if tls := a.cfg.Server.TLS; tls != nil {
			serveErr = a.httpd.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			serveErr = a.httpd.Serve(ln)
		}
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	})
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.httpd.Shutdown(drainCtx)
	})

	return g.Wait()
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
