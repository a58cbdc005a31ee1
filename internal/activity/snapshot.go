// Package activity fuses accelerometer, gyroscope and pedometer streams with a
// periodic inactivity clock into a single observable ActivitySnapshot.
//
// The Aggregator is the only writer of the snapshot. Every handler runs under
// one mutex, and observers receive a full copy of the snapshot after each
// mutation. Sensor sources push events through a per-session sink, so a
// source that keeps delivering after Stop cannot alter the state.
package activity

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Vector is a device-relative three axis reading.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm of the vector.
func (v Vector) Magnitude() float64 {
	return floats.Norm([]float64{v.X, v.Y, v.Z}, 2)
}

// IsZero reports whether every axis is exactly zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Snapshot is the complete derived activity state published to observers.
type Snapshot struct {
	Tracking bool `json:"tracking"`
	Steps    int  `json:"steps"`
	// DistanceMeters is nil when the step source does not supply a distance.
	DistanceMeters  *float64 `json:"distance_meters,omitempty"`
	Acceleration    Vector   `json:"acceleration"`
	RotationRate    Vector   `json:"rotation_rate"`
	FeedbackMessage string   `json:"feedback_message"`
	Inactive        bool     `json:"inactive"`
}

// clone returns a deep copy so published snapshots never alias the
// aggregator's working state.
func (s Snapshot) clone() Snapshot {
	out := s
	if s.DistanceMeters != nil {
		d := *s.DistanceMeters
		out.DistanceMeters = &d
	}
	return out
}

// DistanceDisplay formats the snapshot distance using the default stride.
func (s Snapshot) DistanceDisplay() string {
	return DistanceDisplay(s.DistanceMeters, s.Steps)
}

// StepEvent is one pedometer delivery: the cumulative count for the current
// session, an optional native distance and the end of the sampled interval.
type StepEvent struct {
	Steps          int
	DistanceMeters *float64
	EndTime        time.Time
}
