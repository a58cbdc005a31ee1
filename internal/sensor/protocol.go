// Package sensor drives a serial motion sensor (accelerometer, gyroscope and
// pedometer) through serialmux and adapts its line protocol to the activity
// aggregator's source and notifier contracts.
//
// The device emits one JSON object per line:
//
//	{"type":"accel","x":0.01,"y":-0.02,"z":0.98}           acceleration in g
//	{"type":"gyro","x":0.1,"y":0,"z":-0.3}                 rotation rate in rad/s
//	{"type":"steps","steps":512,"distance_m":390.2,"end_time":1767258000.5}
//	{"type":"status","firmware":"1.4.2","battery":87}
//
// and accepts newline terminated commands (see the Command* helpers).
package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/monitoring"
)

// Line types emitted by the device.
const (
	TypeAccel  = "accel"
	TypeGyro   = "gyro"
	TypeSteps  = "steps"
	TypeStatus = "status"
)

// Device commands without arguments.
const (
	CommandAccelOn       = "A1"
	CommandAccelOff      = "A0"
	CommandGyroOn        = "G1"
	CommandGyroOff       = "G0"
	CommandPedometerOff  = "P0"
	CommandHapticSuccess = "HS"
	CommandHapticWarning = "HW"
)

var ErrMalformedLine = errors.New("malformed sensor line")

var (
	logf    = monitoring.Named("sensor")
	simLogf = monitoring.Named("sim")
)

// AccelRateCommand sets the accelerometer sample rate.
func AccelRateCommand(hz float64) string { return fmt.Sprintf("AR=%g", hz) }

// GyroRateCommand sets the gyroscope sample rate.
func GyroRateCommand(hz float64) string { return fmt.Sprintf("GR=%g", hz) }

// PedometerStartCommand starts cumulative step counting from the given time.
func PedometerStartCommand(from time.Time) string { return fmt.Sprintf("P=%d", from.Unix()) }

// Line is one decoded device line. Fields not used by Type are zero.
type Line struct {
	Type string `json:"type"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	Steps     int      `json:"steps"`
	DistanceM *float64 `json:"distance_m,omitempty"`
	EndTime   float64  `json:"end_time"`

	// Raw holds the undecoded status object.
	Raw map[string]any `json:"-"`
}

// ParseLine decodes a single device line.
func ParseLine(payload string) (Line, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "{") {
		return Line{}, fmt.Errorf("%w: not a JSON object: %q", ErrMalformedLine, payload)
	}

	var l Line
	if err := json.Unmarshal([]byte(payload), &l); err != nil {
		return Line{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	switch l.Type {
	case TypeAccel, TypeGyro:
		if !finite(l.X) || !finite(l.Y) || !finite(l.Z) {
			return Line{}, fmt.Errorf("%w: non-finite %s vector", ErrMalformedLine, l.Type)
		}
	case TypeSteps:
		if l.Steps < 0 {
			return Line{}, fmt.Errorf("%w: negative step count %d", ErrMalformedLine, l.Steps)
		}
	case TypeStatus:
		if err := json.Unmarshal([]byte(payload), &l.Raw); err != nil {
			return Line{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		delete(l.Raw, "type")
	default:
		return Line{}, fmt.Errorf("%w: unknown type %q", ErrMalformedLine, l.Type)
	}
	return l, nil
}

// Vector returns the x, y and z fields as an activity.Vector.
func (l Line) Vector() activity.Vector {
	return activity.Vector{X: l.X, Y: l.Y, Z: l.Z}
}

// StepEvent converts a steps line. A missing end_time is left as the zero time.
func (l Line) StepEvent() activity.StepEvent {
	ev := activity.StepEvent{Steps: l.Steps}
	if l.DistanceM != nil {
		d := *l.DistanceM
		ev.DistanceMeters = &d
	}
	if l.EndTime > 0 {
		sec, frac := math.Modf(l.EndTime)
		ev.EndTime = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return ev
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
