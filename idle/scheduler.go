package idle

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jonwraymond/packcache/observe"
)

// Action is one deferred persistence step, shared with the store package.
type Action = func(ctx context.Context) error

// Target is what the scheduler drains: the storage dispatcher's pending
// queue plus its end-of-drain and shutdown flush hooks.
type Target interface {
	// TakeAction removes and returns the oldest pending action.
	TakeAction() (Action, bool)

	// PendingLen returns the number of pending actions.
	PendingLen() int

	// Quiesce finishes a natural drain (garbage collection plus archive
	// persist in pack mode).
	Quiesce(ctx context.Context) error

	// FinalFlush completes all outstanding persistence work for shutdown.
	FinalFlush(ctx context.Context) error
}

// State is the scheduler's lifecycle state.
type State int

const (
	// StateActive: the host is busy; nothing armed.
	StateActive State = iota

	// StatePendingIdle: the idle timer is armed but has not fired.
	StatePendingIdle

	// StateDraining: the timer fired; queued actions run in bounded slices.
	StateDraining

	// StateQuiescent: the queue is empty and the pack persisted; waiting
	// for the next idle signal.
	StateQuiescent
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePendingIdle:
		return "pending-idle"
	case StateDraining:
		return "draining"
	case StateQuiescent:
		return "quiescent"
	default:
		return "active"
	}
}

// Drain slice bounds: one pass runs at most this many actions and at most
// this much wall clock before yielding control back to the host.
const (
	DefaultMaxActionsPerSlice = 100
	DefaultMaxSliceDuration   = 100 * time.Millisecond
)

// Config holds scheduler timing parameters.
type Config struct {
	// IdleTimeout is the delay between a begin-idle signal and draining.
	IdleTimeout time.Duration

	// InitialTimeout replaces IdleTimeout for the very first idle period
	// of the process, letting a first build's results hit disk sooner.
	InitialTimeout time.Duration

	// MaxActionsPerSlice bounds the actions run per drain pass.
	MaxActionsPerSlice int

	// MaxSliceDuration bounds the wall clock spent per drain pass.
	MaxSliceDuration time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxActionsPerSlice <= 0 {
		c.MaxActionsPerSlice = DefaultMaxActionsPerSlice
	}
	if c.MaxSliceDuration <= 0 {
		c.MaxSliceDuration = DefaultMaxSliceDuration
	}
	if c.InitialTimeout > c.IdleTimeout {
		c.InitialTimeout = c.IdleTimeout
	}
}

// Scheduler drives deferred persistence from the host's idle signals.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Shutdown: terminal; waits for any in-flight drain instead of canceling
//   it, then runs everything still pending synchronously.
type Scheduler struct {
	cfg    Config
	clock  Clock
	target Target

	logger  observe.Logger
	metrics observe.Metrics

	mu           sync.Mutex
	state        State
	timer        Timer
	firstIdle    bool
	idle         bool
	shuttingDown bool
	drainDone    chan struct{}
}

// NewScheduler creates a scheduler draining target on idle.
func NewScheduler(target Target, cfg Config, clock Clock, obs observe.Observer) *Scheduler {
	cfg.applyDefaults()
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		cfg:       cfg,
		clock:     clock,
		target:    target,
		logger:    obs.Logger().WithComponent("idle"),
		metrics:   obs.Metrics(),
		state:     StateActive,
		firstIdle: true,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginIdle signals that the host entered an idle period and arms the drain
// timer.
func (s *Scheduler) BeginIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown {
		return
	}
	s.idle = true

	if s.state != StateActive && s.state != StateQuiescent {
		return
	}

	delay := s.cfg.IdleTimeout
	if s.firstIdle && s.cfg.InitialTimeout < delay {
		delay = s.cfg.InitialTimeout
	}
	s.firstIdle = false
	s.state = StatePendingIdle
	s.timer = s.clock.AfterFunc(delay, s.onTimerFired)
}

// EndIdle signals that the host resumed work. A pending drain trigger is
// canceled; a drain already underway stops after its current slice, leaving
// the rest of the queue for the next idle period.
func (s *Scheduler) EndIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idle = false
	if s.state == StatePendingIdle {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.state = StateActive
	}
}

func (s *Scheduler) onTimerFired() {
	s.mu.Lock()
	if s.shuttingDown || s.state != StatePendingIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateDraining
	done := make(chan struct{})
	s.drainDone = done
	s.mu.Unlock()

	go s.drain(done)
}

// drain runs queued actions in bounded slices, yielding between passes so
// the host process may exit if nothing remains.
func (s *Scheduler) drain(done chan struct{}) {
	defer close(done)
	ctx := context.Background()

	for {
		empty := s.runSlice(ctx)

		s.mu.Lock()
		stop := s.shuttingDown || !s.idle
		if empty {
			s.state = StateQuiescent
			s.drainDone = nil
			quiesce := !s.shuttingDown
			s.mu.Unlock()
			if quiesce {
				if err := s.target.Quiesce(ctx); err != nil {
					s.logger.Warning(ctx, "quiesce failed", observe.Field{Key: "error", Value: err.Error()})
				}
			}
			return
		}
		if stop {
			s.state = StateActive
			s.drainDone = nil
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		runtime.Gosched()
	}
}

// runSlice runs one bounded drain pass. Returns true once the queue is empty.
func (s *Scheduler) runSlice(ctx context.Context) bool {
	start := s.clock.Now()
	ran := 0

	for ran < s.cfg.MaxActionsPerSlice && s.clock.Now().Sub(start) < s.cfg.MaxSliceDuration {
		action, ok := s.target.TakeAction()
		if !ok {
			break
		}
		if err := action(ctx); err != nil {
			s.logger.Warning(ctx, "deferred store failed", observe.Field{Key: "error", Value: err.Error()})
		}
		ran++
	}

	if ran > 0 {
		s.metrics.RecordDrainSlice(ctx, ran, s.clock.Now().Sub(start))
	}
	return s.target.PendingLen() == 0
}

// Shutdown synchronously completes every still-pending action, waits for any
// drain already underway, and flushes the dispatcher one final time. No
// further activity occurs after it returns.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	done := s.drainDone
	s.mu.Unlock()

	// An in-flight drain is waited for, never canceled.
	if done != nil {
		<-done
	}

	for {
		action, ok := s.target.TakeAction()
		if !ok {
			break
		}
		if err := action(ctx); err != nil {
			s.logger.Warning(ctx, "final store failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}

	err := s.target.FinalFlush(ctx)

	s.mu.Lock()
	s.state = StateQuiescent
	s.mu.Unlock()
	return err
}
