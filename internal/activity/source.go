package activity

import "time"

// MotionSink receives accelerometer and gyroscope samples. The two streams
// are independently timed.
type MotionSink interface {
	DeliverAcceleration(Vector)
	DeliverRotationRate(Vector)
}

// StepSink receives pedometer updates.
type StepSink interface {
	DeliverSteps(StepEvent)
}

// MotionSource produces acceleration (g) and rotation rate (rad/s) samples.
// Start returns an error when the hardware is unavailable. After Stop returns
// the source must not call the sink again. Stop must tolerate repeated calls.
type MotionSource interface {
	Start(accelRateHz, gyroRateHz float64, sink MotionSink) error
	Stop()
}

// StepSource produces cumulative step counts measured since from. Counts are
// monotonic within one started session.
type StepSource interface {
	Start(from time.Time, sink StepSink) error
	Stop()
}

// sessionSink binds producer deliveries to the Start call that created it.
// Deliveries from an older session are dropped by the aggregator.
type sessionSink struct {
	a       *Aggregator
	session uint64
}

func (s sessionSink) DeliverAcceleration(v Vector) {
	s.a.apply(s.session, accelerationStream, func(now time.Time) effect {
		return s.a.applyAcceleration(v, now)
	})
}

func (s sessionSink) DeliverRotationRate(v Vector) {
	s.a.apply(s.session, rotationStream, func(now time.Time) effect {
		return s.a.applyRotationRate(v, now)
	})
}

func (s sessionSink) DeliverSteps(ev StepEvent) {
	s.a.apply(s.session, stepsStream, func(now time.Time) effect {
		return s.a.applySteps(ev, now)
	})
}
