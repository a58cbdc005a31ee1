package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/activity.report/internal/serialmux"
	"github.com/banshee-data/activity.report/internal/timeutil"
)

func TestHapticNotifier(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	n := NewHapticNotifier(serialmux.NewSerialMux(port))

	n.NotifySuccess()
	n.NotifyWarning()
	assert.Equal(t, []string{"HS", "HW"}, port.Commands())

	// Failures are swallowed.
	port.SetWriteError(errors.New("unplugged"))
	n.NotifySuccess()
	assert.Len(t, port.Commands(), 2)
}

func TestDeviceStatus_Follow(t *testing.T) {
	port, mux := monitoredMux(t)
	status := NewDeviceStatus()
	stop := status.Follow(mux)

	port.AddLine(`{"type":"status","firmware":"1.4.2","battery":87}`)
	port.AddLine(`{"type":"accel","x":0,"y":0,"z":1}`)
	port.AddLine(`{"type":"status","battery":86}`)

	require.Eventually(t, func() bool {
		return status.Values()["battery"] == float64(86)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]any{"firmware": "1.4.2", "battery": float64(86)}, status.Values())

	// Values is a copy.
	status.Values()["firmware"] = "tampered"
	assert.Equal(t, "1.4.2", status.Values()["firmware"])

	stop()
	stop()
	port.AddLine(`{"type":"status","battery":10}`)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, float64(86), status.Values()["battery"])
}

func TestDeviceStatus_FollowEndsWithMux(t *testing.T) {
	mux := serialmux.NewDisabledSerialMux()
	stop := NewDeviceStatus().Follow(mux)

	require.NoError(t, mux.Close())
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop blocked after the mux closed")
	}
}

func TestSimulatedDevice(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	dev := NewSimulatedDevice(clock, 1)
	mux := serialmux.NewSerialMux(dev)
	t.Cleanup(func() { mux.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go mux.Monitor(ctx)

	status := NewDeviceStatus()
	t.Cleanup(status.Follow(mux))

	src := NewMotionSource(mux)
	steps := NewStepSource(mux)
	sink := newChanSink()

	require.NoError(t, mux.Initialise())
	require.NoError(t, src.Start(50, 50, sink))
	require.NoError(t, steps.Start(clock.Now(), sink))

	// Advance one tick at a time so the generator sees every period.
	advanceUntil(t, clock, func() bool { return len(sink.accel) > 0 && len(sink.rot) > 0 })
	accel := <-sink.accel
	assert.InDelta(t, 1.0, accel.Z, 0.2, "simulated walker should read about 1 g vertically")

	advanceUntil(t, clock, func() bool { return len(sink.steps) > 0 })
	ev := <-sink.steps
	assert.Positive(t, ev.Steps)
	require.NotNil(t, ev.DistanceMeters)
	assert.InDelta(t, float64(ev.Steps)*simStrideM, *ev.DistanceMeters, 0.1)

	assert.Eventually(t, func() bool {
		return status.Values()["firmware"] == "simulated"
	}, time.Second, 5*time.Millisecond)

	src.Stop()
	steps.Stop()
	NewHapticNotifier(mux).NotifyWarning()
	advanceUntil(t, clock, func() bool { return status.Values()["last_haptic"] == "warning" })
}

func TestSimulatedDevice_Commands(t *testing.T) {
	dev := NewSimulatedDevice(timeutil.NewMockClock(time.Unix(0, 0)), 7)

	n, err := dev.Write([]byte("AR=25\nGR=abc\nA1\nG1\nG0\nXYZ\n"))
	require.NoError(t, err)
	assert.Equal(t, len("AR=25\nGR=abc\nA1\nG1\nG0\nXYZ\n"), n)

	dev.mu.Lock()
	assert.Equal(t, 25.0, dev.accelHz)
	assert.Equal(t, 50.0, dev.gyroHz, "invalid rate leaves the previous value")
	assert.True(t, dev.accelOn)
	assert.False(t, dev.gyroOn)
	dev.mu.Unlock()

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
	_, err = dev.Write([]byte("A1\n"))
	assert.Error(t, err)

	buf := make([]byte, 8)
	_, err = dev.Read(buf)
	assert.Error(t, err)
}

func advanceUntil(t *testing.T, clock *timeutil.MockClock, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met while advancing the simulated clock")
		}
		clock.Advance(SimulatedTick)
		time.Sleep(time.Millisecond)
	}
}
