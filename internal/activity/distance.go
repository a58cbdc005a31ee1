package activity

import "fmt"

// DefaultStrideLength is the distance in meters assumed per step when the
// step source does not report a distance.
const DefaultStrideLength = 0.78

// EstimateMarker prefixes distances derived from the step count.
const EstimateMarker = "~"

// DistanceDisplay renders a human readable distance. A native distance is
// shown as is; otherwise steps are converted with DefaultStrideLength and the
// result is marked as an estimate.
func DistanceDisplay(distanceMeters *float64, steps int) string {
	return DistanceDisplayWithStride(distanceMeters, steps, DefaultStrideLength)
}

// DistanceDisplayWithStride is DistanceDisplay with an explicit stride length.
func DistanceDisplayWithStride(distanceMeters *float64, steps int, strideMeters float64) string {
	if distanceMeters != nil {
		return formatMeters(*distanceMeters)
	}
	return EstimateMarker + formatMeters(float64(steps)*strideMeters)
}

func formatMeters(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%.2f km", m/1000)
	}
	return fmt.Sprintf("%.0f m", m)
}
