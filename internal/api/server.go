// Package api exposes the activity aggregator over HTTP: JSON snapshot and
// control endpoints, a Server-Sent Events stream, the effective tuning
// configuration and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/config"
	"github.com/banshee-data/activity.report/internal/httputil"
	"github.com/banshee-data/activity.report/internal/version"
)

// DefaultKeepAlive is how often an idle activity stream is pinged.
const DefaultKeepAlive = 15 * time.Second

// Tracker is the part of *activity.Aggregator the server drives.
type Tracker interface {
	Snapshot() activity.Snapshot
	Start()
	Stop()
	Subscribe(activity.Observer) string
	Unsubscribe(id string)
}

var _ Tracker = (*activity.Aggregator)(nil)

// StatusReporter supplies the latest device status values.
type StatusReporter interface {
	Values() map[string]any
}

// ActivityResponse is the JSON body for every activity endpoint.
type ActivityResponse struct {
	activity.Snapshot
	DistanceDisplay string `json:"distance_display"`
}

// ConfigResponse reports the tuning values in effect.
type ConfigResponse struct {
	MilestoneSize          int     `json:"milestone_size"`
	InactivityTimeout      string  `json:"inactivity_timeout"`
	InactivityTickInterval string  `json:"inactivity_tick_interval"`
	MovementAccelThreshold float64 `json:"movement_accel_threshold"`
	AccelSampleRateHz      float64 `json:"accel_sample_rate_hz"`
	GyroSampleRateHz       float64 `json:"gyro_sample_rate_hz"`
	StrideLengthMeters     float64 `json:"stride_length_meters"`
}

type Server struct {
	tracker Tracker
	config  *config.ActivityConfig
	status  StatusReporter

	// listPorts enumerates serial devices; replaced in tests.
	listPorts func() ([]string, error)
	keepAlive time.Duration
}

// NewServer builds a server for tracker. A nil cfg reports the defaults and a
// nil status reports an empty device status.
func NewServer(tracker Tracker, cfg *config.ActivityConfig, status StatusReporter) *Server {
	if cfg == nil {
		cfg = config.DefaultActivityConfig()
	}
	return &Server{
		tracker:   tracker,
		config:    cfg,
		status:    status,
		listPorts: defaultListPorts,
		keepAlive: DefaultKeepAlive,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/activity", s.showActivity)
	mux.HandleFunc("/api/activity/start", s.startTracking)
	mux.HandleFunc("/api/activity/stop", s.stopTracking)
	mux.HandleFunc("/api/activity/stream", s.streamActivity)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/device", s.showDevice)
	mux.HandleFunc("/api/serial/devices", s.listSerialDevices)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) response(snap activity.Snapshot) ActivityResponse {
	return ActivityResponse{
		Snapshot:        snap,
		DistanceDisplay: activity.DistanceDisplayWithStride(snap.DistanceMeters, snap.Steps, s.config.GetStrideLengthMeters()),
	}
}

func (s *Server) showActivity(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, s.response(s.tracker.Snapshot()))
}

func (s *Server) startTracking(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.tracker.Start()
	httputil.WriteJSONOK(w, s.response(s.tracker.Snapshot()))
}

func (s *Server) stopTracking(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.tracker.Stop()
	httputil.WriteJSONOK(w, s.response(s.tracker.Snapshot()))
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	c := s.config
	httputil.WriteJSONOK(w, ConfigResponse{
		MilestoneSize:          c.GetMilestoneSize(),
		InactivityTimeout:      c.GetInactivityTimeout().String(),
		InactivityTickInterval: c.GetInactivityTickInterval().String(),
		MovementAccelThreshold: c.GetMovementAccelThreshold(),
		AccelSampleRateHz:      c.GetAccelSampleRateHz(),
		GyroSampleRateHz:       c.GetGyroSampleRateHz(),
		StrideLengthMeters:     c.GetStrideLengthMeters(),
	})
}

func (s *Server) showDevice(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	values := map[string]any{}
	if s.status != nil {
		values = s.status.Values()
	}
	httputil.WriteJSONOK(w, values)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
