package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/activity.report/internal/httputil"
)

const snapshotJSON = `{
	"tracking": true,
	"steps": 512,
	"distance_meters": 390,
	"acceleration": {"x": 0, "y": 0.6, "z": 0.8},
	"rotation_rate": {"x": 0, "y": 0, "z": 0},
	"feedback_message": "Great job. 500 steps reached.",
	"inactive": false,
	"distance_display": "390 m"
}`

func TestRun_StatusSummary(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, snapshotJSON)
	var out bytes.Buffer

	err := run(context.Background(), []string{"-addr", "http://pi.local:8080", "status"}, &out, io.Discard, mock)
	require.NoError(t, err)

	assert.Equal(t,
		"tracking: 512 steps, 390 m\n"+
			"accel 1.00 g, rotation 0.00 rad/s\n"+
			"Great job. 500 steps reached.\n",
		out.String())
	require.Len(t, mock.Requests(), 1)
	assert.Equal(t, "http://pi.local:8080/api/activity", mock.Requests()[0].URL.String())
}

func TestRun_StartStopJSON(t *testing.T) {
	for _, cmd := range []string{"start", "stop"} {
		t.Run(cmd, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, snapshotJSON)
			var out bytes.Buffer

			require.NoError(t, run(context.Background(), []string{"-json", cmd}, &out, io.Discard, mock))
			assert.Contains(t, out.String(), `"distance_display": "390 m"`)
			assert.Equal(t, http.MethodPost, mock.Requests()[0].Method)
			assert.Equal(t, "/api/activity/"+cmd, mock.Requests()[0].URL.Path)
		})
	}
}

func TestRun_Config(t *testing.T) {
	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, `{"milestone_size":500,"inactivity_timeout":"30m0s"}`)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"config"}, &out, io.Discard, mock))
	assert.Contains(t, out.String(), `"milestone_size": 500`)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, run(ctx, nil, io.Discard, io.Discard, httputil.NewMockHTTPClient()))
	assert.EqualError(t, run(ctx, []string{"dance"}, io.Discard, io.Discard, httputil.NewMockHTTPClient()), `unknown command "dance"`)

	mock := httputil.NewMockHTTPClient().AddResponse(http.StatusInternalServerError, `{"error":"boom"}`)
	err := run(ctx, []string{"status"}, io.Discard, io.Discard, mock)
	assert.EqualError(t, err, "GET /api/activity: 500: boom")
}
