package activity

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/activity.report/internal/monitoring"
)

// effect is a side effect decided under the lock and fired after it is released.
type effect int

const (
	effectNone effect = iota
	effectSuccess
	effectWarning
)

// MilestoneMessage is the feedback shown when steps reaches a milestone.
func MilestoneMessage(steps int) string {
	return fmt.Sprintf("Great job. %d steps reached.", steps)
}

// OnMotionEvent applies an acceleration and a rotation rate sample as one
// mutation.
func (a *Aggregator) OnMotionEvent(acceleration, rotationRate Vector) {
	a.apply(anySession, accelerationStream, func(now time.Time) effect {
		a.applyAcceleration(acceleration, now)
		monitoring.RecordEvent(rotationStream)
		return a.applyRotationRate(rotationRate, now)
	})
}

// OnAcceleration applies a single accelerometer sample.
func (a *Aggregator) OnAcceleration(v Vector) {
	a.apply(anySession, accelerationStream, func(now time.Time) effect {
		return a.applyAcceleration(v, now)
	})
}

// OnRotationRate applies a single gyroscope sample.
func (a *Aggregator) OnRotationRate(v Vector) {
	a.apply(anySession, rotationStream, func(now time.Time) effect {
		return a.applyRotationRate(v, now)
	})
}

// OnStepEvent applies a pedometer update and runs the milestone rule.
func (a *Aggregator) OnStepEvent(ev StepEvent) {
	a.apply(anySession, stepsStream, func(now time.Time) effect {
		return a.applySteps(ev, now)
	})
}

// OnInactivityTick recomputes the idle state at now. The warning fires only
// on the transition into the inactive state. Observers are notified only when
// the tick changes the snapshot.
func (a *Aggregator) OnInactivityTick(now time.Time) {
	a.mu.Lock()
	before := a.state
	eff := a.applyTick(now)
	changed := before.Inactive != a.state.Inactive || before.FeedbackMessage != a.state.FeedbackMessage
	if changed {
		a.publishLocked()
	}
	a.mu.Unlock()

	monitoring.RecordEvent(tickStream)
	a.fire(eff)
}

// apply runs fn under the state lock and publishes the result. Deliveries
// bound to a producer session are dropped once that session has ended.
func (a *Aggregator) apply(session uint64, stream string, fn func(now time.Time) effect) {
	a.mu.Lock()
	if session != anySession && (session != a.session || !a.state.Tracking) {
		a.mu.Unlock()
		return
	}
	eff := fn(a.clock.Now())
	a.publishLocked()
	a.mu.Unlock()

	monitoring.RecordEvent(stream)
	a.fire(eff)
}

func (a *Aggregator) fire(eff effect) {
	switch eff {
	case effectSuccess:
		monitoring.RecordMilestone()
		a.notifier.NotifySuccess()
	case effectWarning:
		monitoring.RecordInactivityWarning()
		a.notifier.NotifyWarning()
	}
}

func (a *Aggregator) applyAcceleration(v Vector, now time.Time) effect {
	a.state.Acceleration = v
	if v.Magnitude() > a.opts.MovementThreshold {
		a.lastMovementAt = now
	}
	return effectNone
}

func (a *Aggregator) applyRotationRate(v Vector, now time.Time) effect {
	a.state.RotationRate = v
	if !v.IsZero() {
		a.lastMovementAt = now
	}
	return effectNone
}

func (a *Aggregator) applySteps(ev StepEvent, now time.Time) effect {
	steps := ev.Steps
	if steps < 0 {
		steps = 0
	}
	a.state.Steps = steps
	a.state.DistanceMeters = sanitizeDistance(ev.DistanceMeters)
	a.state.Inactive = false
	a.lastMovementAt = now
	monitoring.SetSteps(steps)

	size := a.opts.MilestoneSize
	reached := steps / size * size
	if reached < a.lastMilestone {
		// The cumulative count went backwards; rebase so the next crossing fires.
		a.lastMilestone = reached
	}
	if reached > 0 && reached > a.lastMilestone {
		a.lastMilestone = reached
		a.state.FeedbackMessage = MilestoneMessage(reached)
		return effectSuccess
	}
	return effectNone
}

func (a *Aggregator) applyTick(now time.Time) effect {
	idle := now.Sub(a.lastMovementAt)
	if idle < a.opts.InactivityTimeout {
		a.state.Inactive = false
		return effectNone
	}
	wasInactive := a.state.Inactive
	a.state.Inactive = true
	if wasInactive {
		return effectNone
	}
	a.state.FeedbackMessage = MessageInactive
	return effectWarning
}

// sanitizeDistance copies d, treating negative or non-finite values as absent.
func sanitizeDistance(d *float64) *float64 {
	if d == nil || *d < 0 || math.IsNaN(*d) || math.IsInf(*d, 0) {
		return nil
	}
	v := *d
	return &v
}
