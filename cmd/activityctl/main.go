// Command activityctl queries and controls a running activity server.
//
//	activityctl [-addr http://localhost:8080] [-json] status|start|stop|config
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/banshee-data/activity.report/internal/api"
	"github.com/banshee-data/activity.report/internal/httputil"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		log.Fatal(err)
	}
}

// run executes one command. A nil client uses http.DefaultClient.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, client httputil.HTTPClient) error {
	fs := flag.NewFlagSet("activityctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "http://localhost:8080", "Base URL of the activity server")
	asJSON := fs.Bool("json", false, "Print the raw JSON response")
	timeout := fs.Duration("timeout", 5*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one command: status, start, stop or config")
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	c := api.NewClient(*addr, client)

	var (
		out any
		err error
	)
	switch cmd := fs.Arg(0); cmd {
	case "status":
		out, err = c.Activity(ctx)
	case "start":
		out, err = c.Start(ctx)
	case "stop":
		out, err = c.Stop(ctx)
	case "config":
		out, err = c.Config(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	if snap, ok := out.(api.ActivityResponse); ok && !*asJSON {
		printSummary(stdout, snap)
		return nil
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSummary(w io.Writer, s api.ActivityResponse) {
	state := "paused"
	if s.Tracking {
		state = "tracking"
	}
	if s.Inactive {
		state += ", inactive"
	}
	fmt.Fprintf(w, "%s: %d steps, %s\n", state, s.Steps, s.DistanceDisplay)
	fmt.Fprintf(w, "accel %.2f g, rotation %.2f rad/s\n", s.Acceleration.Magnitude(), s.RotationRate.Magnitude())
	fmt.Fprintln(w, s.FeedbackMessage)
}
