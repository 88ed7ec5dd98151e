package engine

import (
	"context"

	"github.com/jonwraymond/packcache/config"
	"github.com/jonwraymond/packcache/idle"
	"github.com/jonwraymond/packcache/observe"
	"github.com/jonwraymond/packcache/store"
)

// Hooks is the lifecycle surface the host invokes. Engine implements it.
type Hooks interface {
	// Lookup resolves identifier+etag. A miss Result carries a Provide
	// follow-up accepting the freshly computed value.
	Lookup(ctx context.Context, identifier, etag string) (*store.Result, error)

	// Store persists a computed value under the configured storage mode.
	Store(ctx context.Context, identifier, etag string, data []byte) error

	// BeginIdle signals the start of a host idle period.
	BeginIdle()

	// EndIdle signals the end of a host idle period.
	EndIdle()

	// Shutdown completes all pending persistence work, including the
	// final archive write, before returning.
	Shutdown(ctx context.Context) error
}

// Engine is the cache engine facade.
type Engine struct {
	cfg       config.Config
	obs       observe.Observer
	ownObs    bool
	tracer    observe.Tracer
	logger    observe.Logger
	dispatch  *store.Dispatcher
	scheduler *idle.Scheduler
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	observer observe.Observer
	clock    idle.Clock
}

// WithObserver supplies a telemetry Observer. Without one the engine builds
// its own from the configured log level (no metrics or tracing), or stays
// silent when diagnostics are disabled.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithClock substitutes the idle scheduler's time source, for tests.
func WithClock(clock idle.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New creates an Engine for the given configuration.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	obs := o.observer
	ownObs := false
	if obs == nil {
		var err error
		obs, err = observe.NewObserver(context.Background(), observe.Config{
			ServiceName: "packcache",
			Version:     cfg.Version,
			Logging: observe.LoggingConfig{
				Enabled: cfg.LogLevel != "",
				Level:   cfg.LogLevel,
			},
		})
		if err != nil {
			return nil, err
		}
		ownObs = true
	}

	dispatch, err := store.NewDispatcher(&cfg, obs)
	if err != nil {
		return nil, err
	}

	scheduler := idle.NewScheduler(dispatch, idle.Config{
		IdleTimeout:    cfg.IdleTimeout,
		InitialTimeout: cfg.IdleTimeoutForInitialStore,
	}, o.clock, obs)

	return &Engine{
		cfg:       cfg,
		obs:       obs,
		ownObs:    ownObs,
		tracer:    observe.NewTracer(obs.Tracer()),
		logger:    obs.Logger().WithComponent("engine"),
		dispatch:  dispatch,
		scheduler: scheduler,
	}, nil
}

// Lookup resolves identifier+etag through the configured storage strategy.
// Never returns an error for cache problems; those degrade to a miss.
func (e *Engine) Lookup(ctx context.Context, identifier, etag string) (*store.Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, observe.OpMeta{
		Op:         "lookup",
		Identifier: identifier,
		Mode:       e.dispatch.Mode().String(),
	})
	result, err := e.dispatch.Lookup(ctx, identifier, etag)
	e.tracer.EndSpan(span, err)
	return result, err
}

// Store persists a computed value. Pack, idle, and background modes return
// with the work deferred or in flight; instant mode returns after the write.
func (e *Engine) Store(ctx context.Context, identifier, etag string, data []byte) error {
	ctx, span := e.tracer.StartSpan(ctx, observe.OpMeta{
		Op:         "store",
		Identifier: identifier,
		Mode:       e.dispatch.Mode().String(),
	})
	err := e.dispatch.Store(ctx, identifier, etag, data)
	e.tracer.EndSpan(span, err)
	return err
}

// BeginIdle arms the idle drain timer.
func (e *Engine) BeginIdle() {
	e.scheduler.BeginIdle()
}

// EndIdle cancels a pending drain trigger.
func (e *Engine) EndIdle() {
	e.scheduler.EndIdle()
}

// Shutdown flushes all pending persistence work, writes the final archive,
// and shuts down any engine-owned telemetry. Resolves only after everything
// is on disk.
func (e *Engine) Shutdown(ctx context.Context) error {
	ctx, span := e.tracer.StartSpan(ctx, observe.OpMeta{Op: "shutdown"})
	err := e.scheduler.Shutdown(ctx)
	if err != nil {
		e.logger.Warning(ctx, "shutdown flush incomplete", observe.Field{Key: "error", Value: err.Error()})
	}
	e.tracer.EndSpan(span, err)

	if e.ownObs {
		if obsErr := e.obs.Shutdown(ctx); obsErr != nil && err == nil {
			err = obsErr
		}
	}
	return err
}

// Ensure Engine implements Hooks
var _ Hooks = (*Engine)(nil)
