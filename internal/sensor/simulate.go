package sensor

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/activity.report/internal/serialmux"
	"github.com/banshee-data/activity.report/internal/timeutil"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimulatedTick is the generator's base period and caps every stream at 100 Hz.
const SimulatedTick = 10 * time.Millisecond

const (
	simCadence     = 1.8  // steps per second
	simStrideM     = 0.74 // metres per step
	simStepsPeriod = time.Second
)

// SimulatedDevice is a SerialPorter that behaves like a slow walker wearing
// the sensor. It honours the stream, rate, pedometer and haptic commands and
// is used for development without hardware.
type SimulatedDevice struct {
	clock timeutil.Clock
	pr    *io.PipeReader
	pw    *io.PipeWriter

	mu          sync.Mutex
	rng         *rand.Rand
	jitter      distuv.Normal
	accelOn     bool
	gyroOn      bool
	pedometerOn bool
	accelHz     float64
	gyroHz      float64
	steps       float64
	lastAccel   time.Time
	lastGyro    time.Time
	lastSteps   time.Time
	pending     []string
	closed      bool

	quit chan struct{}
	done chan struct{}
}

var _ serialmux.SerialPorter = (*SimulatedDevice)(nil)

// NewSimulatedDevice starts a simulated device driven by clock.
func NewSimulatedDevice(clock timeutil.Clock, seed uint64) *SimulatedDevice {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	pr, pw := io.Pipe()
	d := &SimulatedDevice{
		clock:   clock,
		pr:      pr,
		pw:      pw,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		jitter:  distuv.Normal{Mu: 0, Sigma: 0.004, Src: rand.NewPCG(seed+1, seed)},
		accelHz: 50,
		gyroHz:  50,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	ticker := clock.NewTicker(SimulatedTick)
	go d.run(ticker)
	return d
}

func (d *SimulatedDevice) Read(b []byte) (int, error) {
	return d.pr.Read(b)
}

// Write accepts one or more newline separated commands.
func (d *SimulatedDevice) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}
	for _, command := range strings.Split(string(b), "\n") {
		if command = strings.TrimSpace(command); command != "" {
			d.handleLocked(command)
		}
	}
	return len(b), nil
}

func (d *SimulatedDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	close(d.quit)
	err := d.pw.Close()
	<-d.done
	return err
}

func (d *SimulatedDevice) handleLocked(command string) {
	now := d.clock.Now()
	key, value, _ := strings.Cut(command, "=")
	switch key {
	case "AR", "GR":
		hz, err := strconv.ParseFloat(value, 64)
		if err != nil || hz <= 0 {
			simLogf("bad rate command %q", command)
			return
		}
		if key == "AR" {
			d.accelHz = hz
		} else {
			d.gyroHz = hz
		}
	case CommandAccelOn:
		d.accelOn = true
	case CommandAccelOff:
		d.accelOn = false
	case CommandGyroOn:
		d.gyroOn = true
	case CommandGyroOff:
		d.gyroOn = false
	case "P":
		// The count restarts at the command rather than at the given instant.
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			simLogf("bad pedometer command %q", command)
			return
		}
		d.pedometerOn = true
		d.steps = 0
		d.lastSteps = now
	case CommandPedometerOff:
		d.pedometerOn = false
	case "OJ":
		d.queueStatusLocked(map[string]any{"firmware": "simulated", "battery": 100})
	case "C":
		// Clock sync; the simulator always uses its own clock.
	case CommandHapticSuccess:
		d.queueStatusLocked(map[string]any{"last_haptic": "success"})
	case CommandHapticWarning:
		d.queueStatusLocked(map[string]any{"last_haptic": "warning"})
	default:
		simLogf("ignoring unknown command %q", command)
	}
}

func (d *SimulatedDevice) queueStatusLocked(fields map[string]any) {
	fields["type"] = TypeStatus
	b, err := json.Marshal(fields)
	if err != nil {
		return
	}
	d.pending = append(d.pending, string(b))
}

func (d *SimulatedDevice) run(ticker timeutil.Ticker) {
	defer close(d.done)
	defer ticker.Stop()
	for {
		select {
		case <-d.quit:
			return
		case now := <-ticker.C():
			for _, line := range d.sample(now) {
				if _, err := io.WriteString(d.pw, line+"\n"); err != nil {
					return
				}
			}
		}
	}
}

// sample returns the lines due at now.
func (d *SimulatedDevice) sample(now time.Time) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines := d.pending
	d.pending = nil

	// One sway cycle per two steps.
	phase := 2 * math.Pi * (simCadence / 2) * float64(now.UnixNano()) / 1e9
	if d.accelOn && due(now, d.lastAccel, d.accelHz) {
		d.lastAccel = now
		lines = append(lines, fmt.Sprintf(`{"type":"accel","x":%.4f,"y":%.4f,"z":%.4f}`,
			0.05*math.Sin(phase)+d.noise(),
			0.03*math.Cos(phase)+d.noise(),
			1+0.12*math.Abs(math.Sin(phase))+d.noise()))
	}
	if d.gyroOn && due(now, d.lastGyro, d.gyroHz) {
		d.lastGyro = now
		lines = append(lines, fmt.Sprintf(`{"type":"gyro","x":%.4f,"y":%.4f,"z":%.4f}`,
			0.4*math.Sin(phase)+d.noise(),
			0.2*math.Cos(phase)+d.noise(),
			d.noise()))
	}
	if d.pedometerOn && now.Sub(d.lastSteps) >= simStepsPeriod {
		elapsed := now.Sub(d.lastSteps).Seconds()
		d.lastSteps = now
		d.steps += elapsed * simCadence * (0.8 + 0.4*d.rng.Float64())
		steps := int(d.steps)
		lines = append(lines, fmt.Sprintf(`{"type":"steps","steps":%d,"distance_m":%.1f,"end_time":%.3f}`,
			steps, float64(steps)*simStrideM, float64(now.UnixMilli())/1e3))
	}
	return lines
}

func (d *SimulatedDevice) noise() float64 {
	return d.jitter.Rand()
}

func due(now, last time.Time, hz float64) bool {
	if hz <= 0 {
		return false
	}
	period := time.Duration(float64(time.Second) / hz)
	return now.Sub(last) >= period
}
