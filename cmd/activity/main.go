package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/activity.report/internal/activity"
	"github.com/banshee-data/activity.report/internal/api"
	"github.com/banshee-data/activity.report/internal/config"
	"github.com/banshee-data/activity.report/internal/sensor"
	"github.com/banshee-data/activity.report/internal/serialmux"
	"github.com/banshee-data/activity.report/internal/timeutil"
	"github.com/banshee-data/activity.report/internal/version"
)

type options struct {
	listen        string
	port          string
	baudRate      int
	configPath    string
	devMode       bool
	disableSensor bool
	autoStart     bool
	showVersion   bool
}

// parseFlags reads command line flags. Defaults come from the environment.
func parseFlags(args []string, env config.ProcessEnv, output io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.listen, "listen", env.Listen, "Listen address")
	fs.StringVar(&o.port, "port", env.SerialPort, "Serial port of the motion sensor (ignored in dev mode)")
	fs.IntVar(&o.baudRate, "baud", env.BaudRate, "Serial baud rate")
	fs.StringVar(&o.configPath, "config", env.ConfigPath, "Path to a tuning config JSON file (defaults built in when empty)")
	fs.BoolVar(&o.devMode, "dev", env.DevMode, "Run against a simulated sensor")
	fs.BoolVar(&o.disableSensor, "disable-sensor", env.DisableSensor, "Run without a motion sensor")
	fs.BoolVar(&o.autoStart, "autostart", env.AutoStart, "Start tracking immediately")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.listen == "" {
		return o, errors.New("listen address is required")
	}
	if !o.devMode && !o.disableSensor && o.port == "" {
		return o, errors.New("serial port is required")
	}
	return o, nil
}

func loadConfig(path string) (*config.ActivityConfig, error) {
	if path == "" {
		return config.DefaultActivityConfig(), nil
	}
	return config.LoadActivityConfig(path)
}

// aggregatorOptions maps tuning values onto aggregator options.
func aggregatorOptions(cfg *config.ActivityConfig) activity.Options {
	o := activity.DefaultOptions()
	o.MilestoneSize = cfg.GetMilestoneSize()
	o.InactivityTimeout = cfg.GetInactivityTimeout()
	o.TickInterval = cfg.GetInactivityTickInterval()
	o.MovementThreshold = cfg.GetMovementAccelThreshold()
	o.AccelRateHz = cfg.GetAccelSampleRateHz()
	o.GyroRateHz = cfg.GetGyroSampleRateHz()
	o.StrideLength = cfg.GetStrideLengthMeters()
	return o
}

func openMux(o options) (serialmux.SerialMuxInterface, error) {
	switch {
	case o.disableSensor:
		return serialmux.NewDisabledSerialMux(), nil
	case o.devMode:
		dev := sensor.NewSimulatedDevice(timeutil.RealClock{}, uint64(time.Now().UnixNano()))
		return serialmux.NewSerialMux(dev), nil
	default:
		return serialmux.NewRealSerialMux(o.port, serialmux.PortOptions{BaudRate: o.baudRate})
	}
}

// run wires the sensor, aggregator and HTTP server and blocks until ctx is
// done or the server fails.
func run(ctx context.Context, o options, ready func(addr string)) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sensorMux, err := openMux(o)
	if err != nil {
		return fmt.Errorf("failed to open sensor: %w", err)
	}
	defer sensorMux.Close()

	status := sensor.NewDeviceStatus()
	stopStatus := status.Follow(sensorMux)
	defer stopStatus()

	if err := sensorMux.Initialise(); err != nil {
		// The aggregator reports sources as unavailable on Start.
		log.Printf("failed to initialise device: %v", err)
	}

	aggOpts := aggregatorOptions(cfg)
	aggOpts.Motion = sensor.NewMotionSource(sensorMux)
	aggOpts.Steps = sensor.NewStepSource(sensorMux)
	aggOpts.Notifier = activity.MultiNotifier{activity.LogNotifier{}, sensor.NewHapticNotifier(sensorMux)}
	agg, err := activity.New(aggOpts)
	if err != nil {
		return err
	}
	defer agg.Stop()

	ln, err := net.Listen("tcp", o.listen)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create a wait group for the HTTP server, serial monitor and inactivity
	// clock routines
	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sensorMux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := agg.RunInactivityClock(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("inactivity clock stopped: %v", err)
		}
		log.Print("inactivity clock terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(agg, cfg, status).ServeMux()
		sensorMux.AttachAdminRoutes(mux)

		server := &http.Server{
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("failed to start server: %w", err)
				cancel()
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	log.Printf("activity %s listening on %s", version.String(), ln.Addr())
	if ready != nil {
		ready(ln.Addr().String())
	}
	if o.autoStart {
		agg.Start()
	}

	wg.Wait()

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

func main() {
	env, err := config.ParseProcessEnv()
	if err != nil {
		log.Fatal(err)
	}
	o, err := parseFlags(os.Args[1:], env, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	if o.showVersion {
		fmt.Printf("activity %s\n", version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, nil); err != nil {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}
