package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether no further ticks will do work.
func (s State) Terminal() bool {
	return s >= StateDone
}

// ProgressFunc receives the stage and item position after every tick.
type ProgressFunc func(kind StageKind, current, total int)

// TickObserver receives the stage and wall time of every tick that advanced an item.
type TickObserver func(kind StageKind, elapsed time.Duration)

// scheduler is the implementation of the Scheduler interface.
type scheduler struct {
	state    atomic.Int32
	cancel   atomic.Bool
	queue    []Stage
	active   Stage
	err      error
	progress ProgressFunc
	observer TickObserver
	logger   *slog.Logger
}

// Scheduler runs queued stages cooperatively, advancing exactly one item per tick.
// Only Cancel and State may be called from other goroutines.
type Scheduler interface {
	// Enqueue appends stages; they run in the order given.
	//
	// Parameters:
	//   - stages: the stages to append
	Enqueue(stages ...Stage)

	// Tick advances the active stage by one item, dequeuing the next stage when none is active.
	// A pending cancel takes effect here, before any work.
	//
	// Returns:
	//   - State: the state after the tick
	//   - error: the stage error once the scheduler has failed
	Tick() (State, error)

	// Cancel requests cancellation; it takes effect at the next tick.
	Cancel()

	// State returns the current state.
	State() State

	// Err returns the error that failed the run, if any.
	Err() error

	// Run ticks until a terminal state. Cancelling ctx requests cancellation.
	//
	// Parameters:
	//   - ctx: the context governing the run
	//
	// Returns:
	//   - State: the terminal state
	//   - error: the stage error when the run failed
	Run(ctx context.Context) (State, error)
}

var _ Scheduler = &scheduler{}

// SchedulerBuilderOption is a functional option for configuring a Scheduler.
type SchedulerBuilderOption func(*scheduler)

// WithProgress sets the per-tick progress callback.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SchedulerBuilderOption: option function to set the callback
func WithProgress(fn ProgressFunc) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.progress = fn
	}
}

// WithTickObserver sets the callback timing every tick.
//
// Parameters:
//   - fn: the observer
//
// Returns:
//   - SchedulerBuilderOption: option function to set the observer
func WithTickObserver(fn TickObserver) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.observer = fn
	}
}

// WithLogger sets the logger for stage transitions.
func WithLogger(logger *slog.Logger) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates an idle Scheduler with an empty queue.
//
// Parameters:
//   - options: variadic list of SchedulerBuilderOption to configure the scheduler
//
// Returns:
//   - Scheduler: the new scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{logger: slog.Default()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scheduler) Enqueue(stages ...Stage) {
	s.queue = append(s.queue, stages...)
}

func (s *scheduler) Cancel() {
	s.cancel.Store(true)
}

func (s *scheduler) State() State {
	return State(s.state.Load())
}

func (s *scheduler) Err() error {
	return s.err
}

func (s *scheduler) setState(st State) {
	s.state.Store(int32(st))
}

func (s *scheduler) Tick() (State, error) {
	st := s.State()
	if st.Terminal() {
		return st, s.err
	}
	if st == StateIdle {
		s.setState(StateRunning)
	}
	if s.cancel.Load() {
		s.logger.Debug("scheduler cancelled")
		s.setState(StateCancelled)
		return StateCancelled, nil
	}

	if s.active == nil {
		if len(s.queue) == 0 {
			s.setState(StateDone)
			return StateDone, nil
		}
		s.active, s.queue = s.queue[0], s.queue[1:]
		s.logger.Debug("stage started", "stage", s.active.Kind())
	}

	start := time.Now()
	kind := s.active.Kind()
	res, err := s.active.Step()
	if s.observer != nil {
		s.observer(kind, time.Since(start))
	}
	if err != nil {
		s.err = fmt.Errorf("stage %s: %w", kind, err)
		s.setState(StateFailed)
		return StateFailed, s.err
	}

	if s.progress != nil {
		current, total := s.active.Progress()
		s.progress(kind, current, total)
	}

	if res == StepDone {
		s.logger.Debug("stage finished", "stage", kind)
		s.active = nil
		if len(s.queue) == 0 {
			s.setState(StateDone)
			return StateDone, nil
		}
	}
	return StateRunning, nil
}

func (s *scheduler) Run(ctx context.Context) (State, error) {
	for {
		if ctx.Err() != nil {
			s.Cancel()
		}
		st, err := s.Tick()
		if st.Terminal() {
			return st, err
		}
	}
}
