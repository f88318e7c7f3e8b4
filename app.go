package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/beaconmesh/mesh"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *mesh.Config
	Store      *mesh.ResultStore
	MQTTClient *mesh.MQTTClient
	Publisher  *mesh.Publisher
	Out        io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile      string
	InputFile       string
	PoseCache       string
	NoCache         bool
	AllOrientations bool
	OutputFile      string
	RenderFormat    string
	GridSpacing     float64
	HttpPort        int
}

// NewApp creates a new App writing its report to out
func NewApp(out io.Writer) *App {
	return &App{Out: out}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.InputFile = opts.InputFile
	a.PoseCache = opts.PoseCache
	a.NoCache = opts.NoCache
	a.AllOrientations = opts.AllOrientations
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.GridSpacing = opts.GridSpacing
	a.HttpPort = opts.HttpPort
}

// loadConfig reads the config file, falling back to defaults when it is
// missing, and applies flag overrides.
func (a *App) loadConfig() (*mesh.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	config, err := mesh.LoadConfigOrDefault(a.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", a.ConfigFile, err)
	}
	if a.AllOrientations {
		config.Alignment.ProperRotationsOnly = false
	}
	a.Config = config
	return config, nil
}

func (a *App) cachePath() string {
	if a.NoCache {
		return ""
	}
	return a.PoseCache
}

func (a *App) store() *mesh.ResultStore {
	if a.Store == nil {
		a.Store = mesh.NewResultStoreWithCache(a.cachePath())
	}
	return a.Store
}

// RunParseOnly parses the input report and prints a summary
func (a *App) RunParseOnly() error {
	scanners, err := mesh.LoadReport(context.Background(), a.InputFile)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", a.InputFile, err)
	}

	summary := mesh.Summarize(scanners)
	fmt.Fprintf(a.Out, "\n=== %s ===\n", filepath.Base(a.InputFile))
	fmt.Fprintf(a.Out, "Scanners: %d\n", summary.Scanners)
	fmt.Fprintf(a.Out, "Beacon reports: %d (min %d, max %d per scanner)\n",
		summary.TotalBeacons, summary.MinBeacons, summary.MaxBeacons)
	for _, s := range scanners {
		fmt.Fprintf(a.Out, "  %s: %d beacons\n", s.Label, len(s.Local))
	}
	return nil
}

// solveInput parses the input report and places every scanner
func (a *App) solveInput(ctx context.Context) ([]*mesh.Scanner, *mesh.Result, error) {
	config, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	scanners, err := mesh.LoadReport(ctx, a.InputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", a.InputFile, err)
	}
	log.Printf("Loaded %d scanners from %s", len(scanners), a.InputFile)

	start := time.Now()
	result, err := a.store().Solve(ctx, scanners, config.Alignment)
	if err != nil {
		return nil, nil, fmt.Errorf("solving %s: %w", a.InputFile, err)
	}
	log.Printf("Solved %d scanners in %v (%d aligned, %d from cache)",
		len(scanners), time.Since(start).Round(time.Millisecond),
		len(result.Placements), len(scanners)-1-len(result.Placements))

	return scanners, result, nil
}

// RunSolve prints the distinct beacon count and the largest scanner
// separation, then writes any configured exports.
func (a *App) RunSolve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanners, result, err := a.solveInput(ctx)
	if err != nil {
		return err
	}

	a.printResult(result)
	return a.writeOutputs(scanners)
}

func (a *App) printResult(result *mesh.Result) {
	fmt.Fprintf(a.Out, "\nDistinct beacons: %d\n", result.BeaconCount)
	fmt.Fprintf(a.Out, "Largest Manhattan distance: %d (%s to %s)\n",
		result.MaxManhattan, result.FarthestPair[0], result.FarthestPair[1])
	fmt.Fprintln(a.Out, "\nScanner positions:")
	for _, sp := range result.Scanners {
		fmt.Fprintf(a.Out, "  %-20s origin=%-20s rot=%s\n", sp.Label, sp.Origin, sp.Rotation)
	}
}

// writeOutputs writes the exports named in the output config section
func (a *App) writeOutputs(scanners []*mesh.Scanner) error {
	out := a.Config.Output

	if out.GeoJSON != "" {
		if err := mesh.WriteGeoJSON(out.GeoJSON, scanners); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Wrote %s\n", out.GeoJSON)
	}
	if out.SVG != "" {
		r := a.vectorRenderer(scanners)
		if err := r.RenderToFile(out.SVG); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Wrote %s\n", out.SVG)
	}
	if out.PNG != "" {
		if err := mesh.NewRasterRenderer(scanners).RenderToFile(out.PNG); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Wrote %s\n", out.PNG)
	}
	return nil
}

func (a *App) vectorRenderer(scanners []*mesh.Scanner) *mesh.VectorRenderer {
	r := mesh.NewVectorRenderer(scanners)
	r.GridSpacing = a.GridSpacing
	if a.Config != nil {
		r.Padding = a.Config.Output.Padding
	}
	return r
}

// RunRender solves the input report and renders a top-down map to OutputFile
func (a *App) RunRender() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanners, result, err := a.solveInput(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(a.RenderFormat) {
	case "raster":
		if !strings.EqualFold(filepath.Ext(a.OutputFile), ".png") {
			return fmt.Errorf("raster output must be a .png file, got %s", a.OutputFile)
		}
		err = mesh.NewRasterRenderer(scanners).RenderToFile(a.OutputFile)
	case "vector", "":
		err = a.vectorRenderer(scanners).RenderToFile(a.OutputFile)
	default:
		return fmt.Errorf("unknown render format %q (want vector or raster)", a.RenderFormat)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Rendered %d beacons and %d scanners to %s\n",
		result.BeaconCount, len(result.Scanners), a.OutputFile)
	return nil
}

// handleReport solves a report received over MQTT and publishes the outcome
func (a *App) handleReport(ctx context.Context, topic string, scanners []*mesh.Scanner, parseErr error) {
	if parseErr != nil {
		a.publishFailure(topic, parseErr)
		return
	}

	result, err := a.store().Solve(ctx, scanners, a.Config.Alignment)
	if err != nil {
		log.Printf("Error solving report from %s: %v", topic, err)
		a.publishFailure(topic, err)
		return
	}
	log.Printf("%s: %d scanners -> %d beacons, max distance %d",
		topic, len(scanners), result.BeaconCount, result.MaxManhattan)

	if a.Publisher != nil {
		if err := a.Publisher.PublishResult(result); err != nil {
			log.Printf("Error publishing result: %v", err)
		}
	}
}

func (a *App) publishFailure(topic string, err error) {
	if a.Publisher == nil {
		return
	}
	if pubErr := a.Publisher.PublishFailure(topic, err); pubErr != nil {
		log.Printf("Error publishing failure: %v", pubErr)
	}
}

// RunService solves reports as they arrive over MQTT and serves the latest
// result over HTTP until interrupted.
func (a *App) RunService() error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}
	store := a.store()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Solve the local report first, if there is one
	if a.hasInitialReport() {
		if _, result, err := a.solveInput(ctx); err != nil {
			log.Printf("Warning: initial report not solved: %v", err)
		} else {
			log.Printf("Initial report: %d beacons, max distance %d", result.BeaconCount, result.MaxManhattan)
		}
	}

	mqttClient, err := mesh.InitMQTT(config, func(topic string, scanners []*mesh.Scanner, err error) {
		a.handleReport(ctx, topic, scanners, err)
	})
	if err != nil {
		return fmt.Errorf("initializing MQTT: %w", err)
	}
	if mqttClient != nil {
		a.MQTTClient = mqttClient
		a.Publisher = mesh.NewPublisher(mqttClient.GetClient(), config.MQTT.PublishPrefix)
		fmt.Fprintln(a.Out, "MQTT result publisher initialized")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
		Handler:           newHTTPServer(store, config),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	a.printServiceInfo(config)

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		err = fmt.Errorf("HTTP server: %w", err)
	}

	fmt.Fprintln(a.Out, "\nShutting down service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("[HTTP] Shutdown error: %v", shutdownErr)
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.Out, "Service stopped")
	return err
}

func (a *App) hasInitialReport() bool {
	if mesh.IsRemoteReport(a.InputFile) {
		return true
	}
	_, err := os.Stat(a.InputFile)
	return err == nil
}

func (a *App) printServiceInfo(config *mesh.Config) {
	fmt.Fprintln(a.Out, "\nService Running")
	fmt.Fprintln(a.Out, "===============")

	if a.MQTTClient != nil {
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintf(a.Out, "  Subscribed topic: %s\n", config.MQTT.InputTopic)
		prefix := a.Publisher.Prefix()
		fmt.Fprintf(a.Out, "  Publishing to: %s/result, %s/beacons, %s/scanner/{label}\n", prefix, prefix, prefix)
	} else {
		fmt.Fprintln(a.Out, "\nMQTT: disabled (no broker configured)")
	}

	fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
	fmt.Fprintln(a.Out, "  GET /health           - Health check")
	fmt.Fprintln(a.Out, "  GET /result.json      - Latest solve")
	fmt.Fprintln(a.Out, "  GET /beacons.geojson  - Beacons and scanner origins")
	fmt.Fprintln(a.Out, "  GET /map.svg          - Top-down vector map")
	fmt.Fprintln(a.Out, "  GET /map.png          - Top-down raster map")

	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")
}
