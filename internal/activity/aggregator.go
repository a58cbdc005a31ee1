package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/activity.report/internal/monitoring"
	"github.com/banshee-data/activity.report/internal/timeutil"
)

// Feedback messages.
const (
	MessageReady    = "Ready"
	MessageStarted  = "Tracking started. Keep moving."
	MessageStopped  = "Tracking paused."
	MessageInactive = "You have been inactive for a while. Time to get up and move."
)

// Defaults for Options.
const (
	DefaultMilestoneSize     = 500
	DefaultInactivityTimeout = 1800 * time.Second
	DefaultMovementThreshold = 0.03
	DefaultTickInterval      = 10 * time.Second
	DefaultAccelRateHz       = 50.0
	DefaultGyroRateHz        = 50.0
)

// ErrInvalidOptions is wrapped by every construction precondition failure.
var ErrInvalidOptions = errors.New("invalid aggregator options")

const (
	accelerationStream = monitoring.StreamAcceleration
	rotationStream     = monitoring.StreamRotation
	stepsStream        = monitoring.StreamSteps
	tickStream         = monitoring.StreamInactivity
)

// anySession marks direct handler calls that are not bound to a producer session.
const anySession uint64 = 0

// Options configures an Aggregator.
type Options struct {
	MilestoneSize     int
	InactivityTimeout time.Duration
	// MovementThreshold is the acceleration magnitude, in g, above which a
	// sample counts as movement.
	MovementThreshold float64
	TickInterval      time.Duration
	AccelRateHz       float64
	GyroRateHz        float64
	// StrideLength is used for estimated distances; zero means DefaultStrideLength.
	StrideLength float64

	// Clock defaults to timeutil.RealClock.
	Clock timeutil.Clock
	// Notifier defaults to NopNotifier.
	Notifier Notifier
	// Motion and Steps may be nil, in which case that stream stays silent.
	Motion MotionSource
	Steps  StepSource
}

// DefaultOptions returns Options populated with the default tuning values.
func DefaultOptions() Options {
	return Options{
		MilestoneSize:     DefaultMilestoneSize,
		InactivityTimeout: DefaultInactivityTimeout,
		MovementThreshold: DefaultMovementThreshold,
		TickInterval:      DefaultTickInterval,
		AccelRateHz:       DefaultAccelRateHz,
		GyroRateHz:        DefaultGyroRateHz,
		StrideLength:      DefaultStrideLength,
	}
}

func (o Options) validate() error {
	if o.MilestoneSize <= 0 {
		return fmt.Errorf("%w: milestone size must be positive, got %d", ErrInvalidOptions, o.MilestoneSize)
	}
	if o.InactivityTimeout <= 0 {
		return fmt.Errorf("%w: inactivity timeout must be positive, got %v", ErrInvalidOptions, o.InactivityTimeout)
	}
	if o.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %v", ErrInvalidOptions, o.TickInterval)
	}
	if o.MovementThreshold < 0 {
		return fmt.Errorf("%w: movement threshold must be non-negative, got %f", ErrInvalidOptions, o.MovementThreshold)
	}
	if o.AccelRateHz <= 0 || o.GyroRateHz <= 0 {
		return fmt.Errorf("%w: sample rates must be positive, got accel=%f gyro=%f", ErrInvalidOptions, o.AccelRateHz, o.GyroRateHz)
	}
	if o.StrideLength < 0 {
		return fmt.Errorf("%w: stride length must be non-negative, got %f", ErrInvalidOptions, o.StrideLength)
	}
	return nil
}

// Observer receives the full snapshot after every mutation. Observers run
// synchronously on the mutating goroutine while the aggregator lock is held:
// they may call Snapshot, Subscribe or Unsubscribe but must not call Start,
// Stop or any On* handler.
type Observer func(Snapshot)

// Aggregator owns the ActivitySnapshot.
type Aggregator struct {
	opts     Options
	clock    timeutil.Clock
	notifier Notifier

	// lifecycleMu serialises Start and Stop, including the source calls they
	// make outside mu.
	lifecycleMu sync.Mutex

	// mu guards every field below and is held for the whole of each mutation.
	mu             sync.Mutex
	state          Snapshot
	lastMovementAt time.Time
	lastMilestone  int
	session        uint64

	current atomic.Pointer[Snapshot]

	observerMu sync.Mutex
	observers  map[string]Observer
}

// New validates opts and returns an Aggregator holding the default snapshot.
func New(opts Options) (*Aggregator, error) {
	if opts.StrideLength == 0 {
		opts.StrideLength = DefaultStrideLength
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}

	a := &Aggregator{
		opts:           opts,
		clock:          opts.Clock,
		notifier:       opts.Notifier,
		state:          Snapshot{FeedbackMessage: MessageReady},
		lastMovementAt: opts.Clock.Now(),
		observers:      make(map[string]Observer),
	}
	initial := a.state.clone()
	a.current.Store(&initial)
	return a, nil
}

// Options returns the effective options, with defaults applied.
func (a *Aggregator) Options() Options {
	return a.opts
}

// Snapshot returns an immutable copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	return a.current.Load().clone()
}

// DistanceDisplay formats the current distance with the configured stride.
func (a *Aggregator) DistanceDisplay() string {
	s := a.Snapshot()
	return DistanceDisplayWithStride(s.DistanceMeters, s.Steps, a.opts.StrideLength)
}

// Subscribe registers an observer and returns the ID used to unsubscribe.
func (a *Aggregator) Subscribe(obs Observer) string {
	id := uuid.NewString()
	a.observerMu.Lock()
	defer a.observerMu.Unlock()
	a.observers[id] = obs
	return id
}

// Unsubscribe removes an observer. Unknown IDs are ignored.
func (a *Aggregator) Unsubscribe(id string) {
	a.observerMu.Lock()
	defer a.observerMu.Unlock()
	delete(a.observers, id)
}

// Start marks the aggregator as tracking and starts both sources. Calling
// Start while already tracking does nothing. A source that fails to start is
// logged and left silent.
func (a *Aggregator) Start() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	a.mu.Lock()
	if a.state.Tracking {
		a.mu.Unlock()
		return
	}
	now := a.clock.Now()
	a.session++
	sink := sessionSink{a: a, session: a.session}
	a.state.Tracking = true
	a.state.FeedbackMessage = MessageStarted
	a.lastMovementAt = now
	a.lastMilestone = 0
	a.publishLocked()
	a.mu.Unlock()

	monitoring.SetTracking(true)

	if a.opts.Motion != nil {
		if err := a.opts.Motion.Start(a.opts.AccelRateHz, a.opts.GyroRateHz, sink); err != nil {
			monitoring.RecordSourceStartFailure("motion")
			monitoring.Logf("motion source unavailable: %v", err)
		}
	}
	if a.opts.Steps != nil {
		if err := a.opts.Steps.Start(now, sink); err != nil {
			monitoring.RecordSourceStartFailure("steps")
			monitoring.Logf("step source unavailable: %v", err)
		}
	}
}

// Stop ends tracking and stops both sources. Steps, distance and vectors are
// kept. Once Stop returns no producer delivery can change the snapshot until
// the next Start.
func (a *Aggregator) Stop() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	a.mu.Lock()
	if !a.state.Tracking {
		a.mu.Unlock()
		return
	}
	// Invalidate the current sink before the sources are told to stop so
	// in-flight deliveries are rejected.
	a.session++
	a.state.Tracking = false
	a.state.FeedbackMessage = MessageStopped
	a.publishLocked()
	a.mu.Unlock()

	monitoring.SetTracking(false)

	if a.opts.Motion != nil {
		a.opts.Motion.Stop()
	}
	if a.opts.Steps != nil {
		a.opts.Steps.Stop()
	}
}

// RunInactivityClock feeds OnInactivityTick at the configured interval until
// ctx is cancelled. It runs regardless of tracking state.
func (a *Aggregator) RunInactivityClock(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			a.OnInactivityTick(now)
		}
	}
}

// publishLocked stores a fresh copy of the state and hands it to every
// observer. Callers must hold mu.
func (a *Aggregator) publishLocked() {
	snap := a.state.clone()
	a.current.Store(&snap)

	a.observerMu.Lock()
	observers := make([]Observer, 0, len(a.observers))
	for _, obs := range a.observers {
		observers = append(observers, obs)
	}
	a.observerMu.Unlock()

	for _, obs := range observers {
		obs(snap.clone())
	}
}
