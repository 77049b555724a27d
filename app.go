package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tdewolff/canvas"

	"github.com/kwv/tractslice/mesh"
)

// defaultTubeCSV is used when neither flags nor config name an output.
const defaultTubeCSV = "tube.csv"

// App encapsulates the application state and dependencies
type App struct {
	Opts   AppOptions
	Out    io.Writer
	Logger *log.Logger

	// Overridable for tests
	Surface       mesh.SurfaceProvider
	NewMQTTClient func(mesh.MQTTConfig) (mqtt.Client, error)
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Out:           os.Stdout,
		NewMQTTClient: mesh.NewMQTTClient,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.Opts = opts
}

// loadConfig reads the config file, if any, and overlays flags and env.
func (a *App) loadConfig() (*mesh.Config, error) {
	cfg := &mesh.Config{Options: mesh.DefaultOptions()}
	if a.Opts.ConfigFile != "" {
		loaded, err := mesh.LoadConfig(a.Opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Printf("[Config] Loaded %s", a.Opts.ConfigFile)
	}

	o := a.Opts
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Input.Surface, o.Surface)
	overlay(&cfg.Input.Centerline, o.Centerline)
	overlay(&cfg.Input.Endpoints, o.Endpoints)
	overlay(&cfg.Output.TubeCSV, o.Output)
	overlay(&cfg.Output.CenterlineCSV, o.CenterlineOutput)
	overlay(&cfg.Output.Render, o.Render)
	overlay(&cfg.Output.GeoJSON, o.GeoJSON)
	overlay(&cfg.Output.Report, o.Report)

	if o.Set["clockwise"] {
		cfg.Options.ClockwiseContour = o.Clockwise
	}
	if o.Set["cm"] {
		cfg.Options.UseCmUnit = o.UseCmUnit
	}
	if o.Set["scale-by-radius"] {
		cfg.Options.ScaleByRadius = o.ScaleByRadius
	}
	if o.Set["use-curve-endpoints"] {
		cfg.Options.UseCurveEndpoints = o.UseCurveEndpoints
	}
	if o.Set["min-points"] {
		cfg.Options.MinPointsPerSlice = o.MinPoints
	}
	if o.Set["workers"] {
		cfg.Options.Workers = o.Workers
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunExtract cuts sections along the centerline and writes all outputs.
func (a *App) RunExtract(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Input.Centerline == "" {
		return fmt.Errorf("%w: no centerline given (--centerline or input.centerline)", mesh.ErrInput)
	}

	surface := a.Surface
	if surface == nil {
		if cfg.Input.Surface == "" {
			return fmt.Errorf("%w: no surface given (--surface or input.surface)", mesh.ErrInput)
		}
		surface = mesh.STLSurface{Path: cfg.Input.Surface}
	}
	if cfg.Output.TubeCSV == "" {
		cfg.Output.TubeCSV = defaultTubeCSV
	}

	p := &mesh.Pipeline{
		Surface: surface,
		Centerline: mesh.FileCenterline{
			CurvePath:     cfg.Input.Centerline,
			EndpointsPath: cfg.Input.Endpoints,
		},
		Options: cfg.Options,
		Logger:  a.Logger,
	}
	res, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("extracting sections: %w", err)
	}
	if err := mesh.WriteResult(res, cfg.Output, cfg.Options); err != nil {
		return err
	}
	return a.writeExtras(res, cfg)
}

// RunInspect re-analyses an existing tube CSV.
func (a *App) RunInspect(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	records, err := mesh.ParseTubeFile(a.Opts.Inspect)
	if err != nil {
		return err
	}
	sections := mesh.SectionsFromRecords(records)
	segments, err := mesh.AnalyzeSections(ctx, sections, cfg.Options.Workers)
	if err != nil {
		return err
	}
	res := &mesh.Result{Sections: sections, Segments: segments}

	a.printPairs(res)
	return a.writeExtras(res, cfg)
}

func (a *App) printPairs(res *mesh.Result) {
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%d sections, %d segments, %d issues\n", len(res.Sections), len(res.Segments), res.IssueCount())
	for k, seg := range res.Segments {
		radius := "inf"
		if !math.IsInf(seg.CurvatureRadius, 0) {
			radius = fmt.Sprintf("%.3f", seg.CurvatureRadius)
		}
		line := fmt.Sprintf("%03d -> %03d  length=%.3f  radius=%s  angle=%.2f°",
			seg.From, seg.To, seg.Length, radius, seg.CurvatureAngle*180/math.Pi)
		if issues := res.Sections[k].Issues; len(issues) > 0 {
			names := make([]string, len(issues))
			for i, is := range issues {
				names[i] = string(is)
			}
			line += "  [" + strings.Join(names, ", ") + "]"
		}
		fmt.Fprintln(out, line)
	}
}

// writeExtras writes the optional report, GeoJSON and rendering, and
// publishes over MQTT when requested.
func (a *App) writeExtras(res *mesh.Result, cfg *mesh.Config) error {
	report := mesh.ReportFromResult(res)

	if path := cfg.Output.Report; path != "" {
		if err := mesh.WriteFileAtomic(path, func(w io.Writer) error {
			return mesh.WriteReport(w, report)
		}); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("[Report] Wrote %s", path)
	}

	if path := cfg.Output.GeoJSON; path != "" {
		if err := mesh.WriteFileAtomic(path, func(w io.Writer) error {
			return mesh.WriteGeoJSON(w, res, cfg.Render.Simplify)
		}); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("[GeoJSON] Wrote %s", path)
	}

	if path := cfg.Output.Render; path != "" {
		if err := renderFile(path, res, cfg.Render); err != nil {
			return fmt.Errorf("rendering %s: %w", path, err)
		}
		log.Printf("[Render] Wrote %s", path)
	}

	if a.Opts.MqttMode {
		if cfg.MQTT.Broker == "" {
			log.Println("[MQTT] Disabled: MQTT_BROKER not set")
			return nil
		}
		client, err := a.NewMQTTClient(cfg.MQTT)
		if err != nil {
			return err
		}
		if err := mesh.PublishResult(client, cfg.MQTT.PublishPrefix, report); err != nil {
			return fmt.Errorf("publishing report: %w", err)
		}
	}
	return nil
}

func renderFile(path string, res *mesh.Result, rc mesh.RenderConfig) error {
	r := mesh.NewVectorRenderer(res)
	if rc.Padding > 0 {
		r.Padding = rc.Padding
	}
	if rc.Resolution > 0 {
		r.Resolution = canvas.DPI(rc.Resolution)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return mesh.WriteFileAtomic(path, r.RenderToSVG)
	case ".png":
		return mesh.WriteFileAtomic(path, r.RenderToPNG)
	default:
		return fmt.Errorf("%w: unsupported render format %q (want .svg or .png)", mesh.ErrInput, filepath.Ext(path))
	}
}
