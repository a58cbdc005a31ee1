package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/config"
	"github.com/banshee-data/activity.report/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func newAggregator(t *testing.T) *activity.Aggregator {
	t.Helper()
	agg, err := activity.New(activity.DefaultOptions())
	require.NoError(t, err)
	return agg
}

type staticStatus map[string]any

func (s staticStatus) Values() map[string]any { return s }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestShowActivity(t *testing.T) {
	agg := newAggregator(t)
	srv := NewServer(agg, nil, nil)

	rec := serve(srv, http.MethodGet, "/api/activity")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ActivityResponse](t, rec)
	assert.False(t, got.Tracking)
	assert.Equal(t, activity.MessageReady, got.FeedbackMessage)
	assert.Equal(t, "~0 m", got.DistanceDisplay)

	agg.OnStepEvent(activity.StepEvent{Steps: 1282})
	got = decode[ActivityResponse](t, serve(srv, http.MethodGet, "/api/activity"))
	assert.Equal(t, 1282, got.Steps)
	assert.Nil(t, got.DistanceMeters)
	assert.Equal(t, "~1000 m", got.DistanceDisplay)

	d := 3210.0
	agg.OnStepEvent(activity.StepEvent{Steps: 1300, DistanceMeters: &d})
	got = decode[ActivityResponse](t, serve(srv, http.MethodGet, "/api/activity"))
	require.NotNil(t, got.DistanceMeters)
	assert.Equal(t, "3.21 km", got.DistanceDisplay)
}

func TestShowActivity_UsesConfiguredStride(t *testing.T) {
	cfg := config.DefaultActivityConfig()
	stride := 0.5
	cfg.StrideLengthMeters = &stride

	agg := newAggregator(t)
	agg.OnStepEvent(activity.StepEvent{Steps: 100})

	got := decode[ActivityResponse](t, serve(NewServer(agg, cfg, nil), http.MethodGet, "/api/activity"))
	assert.Equal(t, "~50 m", got.DistanceDisplay)
}

func TestStartStop(t *testing.T) {
	agg := newAggregator(t)
	srv := NewServer(agg, nil, nil)

	rec := serve(srv, http.MethodPost, "/api/activity/start")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ActivityResponse](t, rec)
	assert.True(t, got.Tracking)
	assert.Equal(t, activity.MessageStarted, got.FeedbackMessage)

	rec = serve(srv, http.MethodPost, "/api/activity/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[ActivityResponse](t, rec)
	assert.False(t, got.Tracking)
	assert.Equal(t, activity.MessageStopped, got.FeedbackMessage)
}

func TestMethodChecks(t *testing.T) {
	srv := NewServer(newAggregator(t), nil, nil)

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/activity"},
		{http.MethodGet, "/api/activity/start"},
		{http.MethodGet, "/api/activity/stop"},
		{http.MethodPost, "/api/activity/stream"},
		{http.MethodDelete, "/api/config"},
		{http.MethodPut, "/api/device"},
		{http.MethodPost, "/api/serial/devices"},
		{http.MethodPost, "/api/version"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(srv, tt.method, tt.path)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestShowConfig(t *testing.T) {
	cfg := config.DefaultActivityConfig()
	size := 250
	cfg.MilestoneSize = &size

	got := decode[ConfigResponse](t, serve(NewServer(newAggregator(t), cfg, nil), http.MethodGet, "/api/config"))
	assert.Equal(t, ConfigResponse{
		MilestoneSize:          250,
		InactivityTimeout:      "30m0s",
		InactivityTickInterval: "10s",
		MovementAccelThreshold: 0.03,
		AccelSampleRateHz:      50,
		GyroSampleRateHz:       50,
		StrideLengthMeters:     0.78,
	}, got)
}

func TestShowDevice(t *testing.T) {
	got := decode[map[string]any](t, serve(NewServer(newAggregator(t), nil, nil), http.MethodGet, "/api/device"))
	assert.Empty(t, got)

	srv := NewServer(newAggregator(t), nil, staticStatus{"firmware": "1.4.2"})
	got = decode[map[string]any](t, serve(srv, http.MethodGet, "/api/device"))
	assert.Equal(t, map[string]any{"firmware": "1.4.2"}, got)
}

func TestShowVersion(t *testing.T) {
	got := decode[map[string]string](t, serve(NewServer(newAggregator(t), nil, nil), http.MethodGet, "/api/version"))
	assert.Equal(t, "dev", got["version"])
	assert.Contains(t, got, "git_sha")
}

func TestListSerialDevices(t *testing.T) {
	srv := NewServer(newAggregator(t), nil, nil)
	srv.listPorts = func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/ttyACM1", "/dev/rfcomm0", "/dev/cu.usbserial"}, nil
	}

	got := decode[[]SerialDeviceInfo](t, serve(srv, http.MethodGet, "/api/serial/devices"))
	assert.Equal(t, []SerialDeviceInfo{
		{PortPath: "/dev/ttyUSB0", FriendlyName: "USB Serial Adapter (ttyUSB0)"},
		{PortPath: "/dev/ttyACM1", FriendlyName: "USB CDC Device (ttyACM1)"},
		{PortPath: "/dev/rfcomm0", FriendlyName: "Bluetooth Serial (rfcomm0)"},
		{PortPath: "/dev/cu.usbserial", FriendlyName: "cu.usbserial"},
	}, got)

	srv.listPorts = func() ([]string, error) { return nil, errors.New("no sysfs") }
	rec := serve(srv, http.MethodGet, "/api/serial/devices")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	srv.listPorts = func() ([]string, error) { return nil, nil }
	rec = serve(srv, http.MethodGet, "/api/serial/devices")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	agg := newAggregator(t)
	agg.OnStepEvent(activity.StepEvent{Steps: 7})

	rec := serve(NewServer(agg, nil, nil), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "activity_aggregator_events_total")
}

func TestStreamActivity(t *testing.T) {
	agg := newAggregator(t)
	srv := NewServer(agg, nil, nil)
	srv.keepAlive = 10 * time.Millisecond

	ts := httptest.NewServer(LoggingMiddleware(srv.ServeMux()))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/activity/stream", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan ActivityResponse, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var ev ActivityResponse
			if json.Unmarshal([]byte(payload), &ev) == nil {
				events <- ev
			}
		}
	}()

	next := func() ActivityResponse {
		t.Helper()
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream closed")
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for stream event")
		}
		return ActivityResponse{}
	}

	initial := next()
	assert.Equal(t, activity.MessageReady, initial.FeedbackMessage)

	agg.Start()
	started := next()
	assert.True(t, started.Tracking)

	agg.OnStepEvent(activity.StepEvent{Steps: 500})
	milestone := next()
	for milestone.Steps != 500 {
		milestone = next()
	}
	assert.Equal(t, activity.MilestoneMessage(500), milestone.FeedbackMessage)

	cancel()
	agg.Stop()
}
