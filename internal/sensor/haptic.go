package sensor

import (
	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/serialmux"
)

// HapticNotifier plays the device's success and warning vibration patterns.
// Write failures are logged and otherwise ignored.
type HapticNotifier struct {
	mux serialmux.SerialMuxInterface
}

var _ activity.Notifier = HapticNotifier{}

func NewHapticNotifier(mux serialmux.SerialMuxInterface) HapticNotifier {
	return HapticNotifier{mux: mux}
}

func (h HapticNotifier) NotifySuccess() { h.send(CommandHapticSuccess) }

func (h HapticNotifier) NotifyWarning() { h.send(CommandHapticWarning) }

func (h HapticNotifier) send(command string) {
	if err := h.mux.SendCommand(command); err != nil {
		logf("haptic %s failed: %v", command, err)
	}
}
