package sensor

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/serialmux"
)

// StepSource streams cumulative pedometer counts from the device.
type StepSource struct {
	mux serialmux.SerialMuxInterface

	mu  sync.Mutex
	sub *subscription
}

var _ activity.StepSource = (*StepSource)(nil)

func NewStepSource(mux serialmux.SerialMuxInterface) *StepSource {
	return &StepSource{mux: mux}
}

// Start asks the device to count steps from the given instant. Reports whose
// end time precedes from belong to an earlier session and are dropped.
func (s *StepSource) Start(from time.Time, sink activity.StepSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return nil
	}

	cutoff := from.Truncate(time.Second)
	sub := subscribe(s.mux, func(l Line) {
		if l.Type != TypeSteps {
			return
		}
		ev := l.StepEvent()
		if !ev.EndTime.IsZero() && ev.EndTime.Before(cutoff) {
			return
		}
		sink.DeliverSteps(ev)
	})

	if err := s.mux.SendCommand(PedometerStartCommand(from)); err != nil {
		sub.close()
		return fmt.Errorf("%w: pedometer: %v", ErrUnavailable, err)
	}
	s.sub = sub
	return nil
}

// Stop disables pedometer reports. No update reaches the sink after Stop
// returns.
func (s *StepSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return
	}
	s.sub.close()
	s.sub = nil

	if err := s.mux.SendCommand(CommandPedometerOff); err != nil {
		logf("failed to disable pedometer: %v", err)
	}
}
