package sensor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/serialmux"
)

// ErrUnavailable wraps failures to enable a sensor stream.
var ErrUnavailable = errors.New("sensor unavailable")

// MotionSource streams accelerometer and gyroscope samples from the device.
type MotionSource struct {
	mux serialmux.SerialMuxInterface

	mu  sync.Mutex
	sub *subscription
}

var _ activity.MotionSource = (*MotionSource)(nil)

func NewMotionSource(mux serialmux.SerialMuxInterface) *MotionSource {
	return &MotionSource{mux: mux}
}

// Start configures both sample rates, enables the streams and forwards
// samples to sink. Starting a running source is a no-op.
func (m *MotionSource) Start(accelRateHz, gyroRateHz float64, sink activity.MotionSink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return nil
	}

	// Subscribe first so the first samples after A1/G1 are not missed.
	sub := subscribe(m.mux, func(l Line) {
		switch l.Type {
		case TypeAccel:
			sink.DeliverAcceleration(l.Vector())
		case TypeGyro:
			sink.DeliverRotationRate(l.Vector())
		}
	})

	err := sendAll(m.mux,
		AccelRateCommand(accelRateHz),
		GyroRateCommand(gyroRateHz),
		CommandAccelOn,
		CommandGyroOn,
	)
	if err != nil {
		sub.close()
		return fmt.Errorf("%w: motion: %v", ErrUnavailable, err)
	}
	m.sub = sub
	return nil
}

// Stop disables both streams. No sample reaches the sink after Stop returns.
func (m *MotionSource) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub == nil {
		return
	}
	m.sub.close()
	m.sub = nil

	if err := sendAll(m.mux, CommandAccelOff, CommandGyroOff); err != nil {
		logf("failed to disable motion streams: %v", err)
	}
}
