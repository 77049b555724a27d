package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line. Set records which flags were
// given explicitly so that config file values are only overridden on demand.
type AppOptions struct {
	ConfigFile       string
	Surface          string
	Centerline       string
	Endpoints        string
	Output           string
	CenterlineOutput string
	Inspect          string
	Render           string
	GeoJSON          string
	Report           string
	MqttMode         bool

	Clockwise         bool
	UseCmUnit         bool
	ScaleByRadius     bool
	UseCurveEndpoints bool
	MinPoints         int
	Workers           int

	Set map[string]bool
}

// Runner is implemented by App; tests substitute a mock.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunExtract(ctx context.Context) error
	RunInspect(ctx context.Context) error
}

var errNothingToDo = errors.New("nothing to do: pass --surface/--centerline, --config or --inspect")

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("tractslice", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Surface, "surface", "", "Closed surface mesh (STL)")
	fs.StringVar(&opts.Centerline, "centerline", "", "Centerline points (X;Y;Z CSV)")
	fs.StringVar(&opts.Endpoints, "endpoints", "", "Optional 2-point centerline endpoints (X;Y;Z CSV)")
	fs.StringVar(&opts.Output, "output", "", "Tube CSV output path")
	fs.StringVar(&opts.CenterlineOutput, "centerline-output", "", "Adjusted centerline CSV output path")
	fs.StringVar(&opts.Inspect, "inspect", "", "Re-analyse an existing tube CSV instead of extracting")
	fs.StringVar(&opts.Render, "render", "", "Render the tube model to an .svg or .png file")
	fs.StringVar(&opts.GeoJSON, "geojson", "", "Write the tube model as GeoJSON")
	fs.StringVar(&opts.Report, "report", "", "Write a JSON inspection report")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish the run summary to MQTT (MQTT_BROKER or mqtt.broker)")
	fs.BoolVar(&opts.Clockwise, "clockwise", false, "Order contour points clockwise")
	fs.BoolVar(&opts.UseCmUnit, "cm", false, "Write centers and radius scales in centimeters (input in mm)")
	fs.BoolVar(&opts.ScaleByRadius, "scale-by-radius", false, "Normalize contours by their equivalent radius")
	fs.BoolVar(&opts.UseCurveEndpoints, "use-curve-endpoints", true, "Keep the centerline's own first and last points")
	fs.IntVar(&opts.MinPoints, "min-points", 3, "Minimum contour points per slice")
	fs.IntVar(&opts.Workers, "workers", 1, "Parallel section workers")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "tractslice version: %s\n", Version)
	if *showVersion {
		return nil
	}

	opts.Set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.Set[f.Name] = true })
	app.ApplyOptions(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Inspect != "":
		return app.RunInspect(ctx)
	case opts.Surface != "" || opts.ConfigFile != "":
		return app.RunExtract(ctx)
	default:
		fs.Usage()
		return errNothingToDo
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("Error: %v", err)
	}
}
