package sensor

import (
	"maps"
	"sync"

	"github.com/banshee-data/activity.report/internal/serialmux"
)

// DeviceStatus keeps the latest values reported on status lines
// (firmware version, battery level, configured rates).
type DeviceStatus struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewDeviceStatus() *DeviceStatus {
	return &DeviceStatus{values: make(map[string]any)}
}

// Update merges a status line into the current state.
func (d *DeviceStatus) Update(l Line) {
	if l.Type != TypeStatus {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	maps.Copy(d.values, l.Raw)
}

// Values returns a copy of the current state.
func (d *DeviceStatus) Values() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.values)
}

// Follow records status lines from mux until the returned stop function is
// called or the mux closes. The subscription is in place when Follow returns.
func (d *DeviceStatus) Follow(mux serialmux.SerialMuxInterface) (stop func()) {
	sub := subscribe(mux, func(l Line) {
		if l.Type == TypeStatus {
			logf("status %v", l.Raw)
			d.Update(l)
		}
	})
	var once sync.Once
	return func() { once.Do(sub.close) }
}
