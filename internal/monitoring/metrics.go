package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stream labels for EventsTotal.
const (
	StreamAcceleration = "acceleration"
	StreamRotation     = "rotation"
	StreamSteps        = "steps"
	StreamInactivity   = "inactivity_tick"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "aggregator",
		Name:      "events_total",
		Help:      "Number of events applied to the activity snapshot, by stream.",
	}, []string{"stream"})

	milestoneCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "aggregator",
		Name:      "milestones_total",
		Help:      "Number of step milestones reached.",
	})

	inactivityCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "aggregator",
		Name:      "inactivity_warnings_total",
		Help:      "Number of transitions into the inactive state.",
	})

	stepsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity",
		Subsystem: "aggregator",
		Name:      "steps",
		Help:      "Last known cumulative step count.",
	})

	trackingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity",
		Subsystem: "aggregator",
		Name:      "tracking",
		Help:      "1 while sensor sources are started, 0 otherwise.",
	})

	sourceFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "aggregator",
		Name:      "source_start_failures_total",
		Help:      "Number of sensor sources that could not be started.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(eventsCounter, milestoneCounter, inactivityCounter, stepsGauge, trackingGauge, sourceFailureCounter)
}

// RecordEvent counts one applied event on the given stream.
func RecordEvent(stream string) {
	eventsCounter.WithLabelValues(stream).Inc()
}

func RecordMilestone() {
	milestoneCounter.Inc()
}

func RecordInactivityWarning() {
	inactivityCounter.Inc()
}

// SetSteps publishes the latest cumulative step count.
func SetSteps(steps int) {
	stepsGauge.Set(float64(steps))
}

func SetTracking(tracking bool) {
	if tracking {
		trackingGauge.Set(1)
		return
	}
	trackingGauge.Set(0)
}

// RecordSourceStartFailure counts a sensor source that refused to start.
func RecordSourceStartFailure(source string) {
	sourceFailureCounter.WithLabelValues(source).Inc()
}
